package port

import (
	"context"

	"grounder/internal/domain"
)

// SearchOptions carries provider-level filters for one search call.
type SearchOptions struct {
	IncludeDomains []string
	Recent         bool
	MaxResults     int
}

// SearchProvider issues a single query against one search engine.
// Implementations must tolerate missing credentials by returning an empty
// result list rather than an error.
type SearchProvider interface {
	// Name identifies the engine; it is stamped on every result.
	Name() string

	// Search runs one query variant. A nil result with nil error means the
	// provider had nothing to offer (unconfigured or zero hits).
	Search(ctx context.Context, query string, opts SearchOptions) ([]domain.SearchResult, error)
}
