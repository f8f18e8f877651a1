package port

import (
	"context"

	"grounder/internal/domain"
)

// EvidenceSource supplies local evidence items for a query. The pipeline
// treats the supplier's index as read-only.
type EvidenceSource interface {
	Collect(ctx context.Context, query domain.Query) ([]domain.EvidenceItem, error)
}
