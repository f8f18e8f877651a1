package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"grounder/internal/adapter/cache"
	"grounder/internal/domain"
	"grounder/internal/port"
)

// Executor runs planned query variants against an ordered provider chain
// under a query budget. A failed call for one variant is logged and
// skipped; it never aborts the batch.
type Executor struct {
	providers   []port.SearchProvider
	cache       *cache.SearchCache
	callTimeout time.Duration
	maxResults  int
	logger      *zap.Logger
}

// NewExecutor creates a search executor. Providers are tried in order
// until one yields results or the chain is exhausted. The cache is
// optional.
func NewExecutor(providers []port.SearchProvider, c *cache.SearchCache, callTimeout time.Duration, maxResults int, logger *zap.Logger) *Executor {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	if maxResults <= 0 {
		maxResults = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		providers:   providers,
		cache:       c,
		callTimeout: callTimeout,
		maxResults:  maxResults,
		logger:      logger,
	}
}

// Execute issues at most budget.MaxQueries variants. When the plan asked
// for recent results and the filtered batch comes back empty, the batch
// is retried once without the filter. If the first provider yields
// nothing at all, the next provider runs the same variants under the same
// budget.
func (e *Executor) Execute(ctx context.Context, plan domain.SearchPlan, budget domain.Budget) []domain.SearchResult {
	variants := plan.Variants
	if budget.MaxQueries > 0 && len(variants) > budget.MaxQueries {
		variants = variants[:budget.MaxQueries]
	}
	if len(variants) == 0 {
		return nil
	}

	for _, provider := range e.providers {
		results := e.runBatch(ctx, provider, variants, plan.IncludeDomains, plan.Recent)
		if len(results) == 0 && plan.Recent {
			e.logger.Debug("retrying without recency filter",
				zap.String("engine", provider.Name()))
			results = e.runBatch(ctx, provider, variants, plan.IncludeDomains, false)
		}
		if len(results) > 0 {
			return results
		}
		e.logger.Debug("provider yielded no results, falling through",
			zap.String("engine", provider.Name()))
	}

	return nil
}

// runBatch issues every variant against one provider, each under its own
// timeout, collecting results first-variant-first.
func (e *Executor) runBatch(ctx context.Context, provider port.SearchProvider, variants []string, domains []string, recent bool) []domain.SearchResult {
	var results []domain.SearchResult

	opts := port.SearchOptions{
		IncludeDomains: domains,
		Recent:         recent,
		MaxResults:     e.maxResults,
	}

	for _, variant := range variants {
		if ctx.Err() != nil {
			break
		}

		if e.cache != nil {
			if cached, hit := e.cache.Get(provider.Name(), variant, domains, recent); hit {
				results = append(results, cached...)
				continue
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		hits, err := provider.Search(callCtx, variant, opts)
		cancel()
		if err != nil {
			e.logger.Warn("search variant failed",
				zap.String("engine", provider.Name()),
				zap.String("query", variant),
				zap.Error(err))
			continue
		}

		if e.cache != nil && len(hits) > 0 {
			e.cache.Put(provider.Name(), variant, domains, recent, hits)
		}
		results = append(results, hits...)
	}

	return results
}
