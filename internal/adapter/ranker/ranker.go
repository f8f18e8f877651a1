package ranker

import (
	"sort"

	"grounder/internal/adapter/analyzer"
	"grounder/internal/domain"
)

const dedupPrefixChars = 80

// Ranker unifies local and web evidence into one schema, scores it
// against the query, deduplicates and selects a top-k. Selection is
// greedy top-k by score, not true maximal marginal relevance.
type Ranker struct {
	topK int
}

// NewRanker creates an evidence ranker.
func NewRanker(topK int) *Ranker {
	if topK <= 0 {
		topK = 10
	}
	return &Ranker{topK: topK}
}

// Rank projects local items and web passages into the common evidence
// shape (local before web, preserving input order), scores each by query
// token overlap, drops duplicates by (url, leading text) keeping the
// first occurrence, and returns at most topK items by descending score
// with ties broken by input order.
func (r *Ranker) Rank(queryText string, local []domain.EvidenceItem, web []domain.Passage) []domain.EvidenceItem {
	unified := make([]domain.EvidenceItem, 0, len(local)+len(web))
	for _, item := range local {
		item.Source = domain.SourceLocal
		unified = append(unified, item)
	}
	for _, p := range web {
		unified = append(unified, domain.EvidenceItem{
			Text:   p.Text,
			URL:    p.URL,
			Title:  p.Title,
			Date:   p.Date,
			Source: domain.SourceWeb,
		})
	}

	queryTokens := analyzer.OverlapTokens(queryText)
	for i := range unified {
		unified[i].Score = overlapScore(queryTokens, unified[i].Text)
	}

	deduped := dedupe(unified)

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Score > deduped[j].Score
	})

	if len(deduped) > r.topK {
		deduped = deduped[:r.topK]
	}
	return deduped
}

// overlapScore is the fraction of query tokens present in the item text.
func overlapScore(queryTokens map[string]struct{}, text string) float64 {
	if len(queryTokens) == 0 || text == "" {
		return 0
	}
	itemTokens := analyzer.OverlapTokens(text)
	matched := 0
	for t := range queryTokens {
		if _, ok := itemTokens[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

// dedupe drops later items sharing the same (url, leading text) key.
func dedupe(items []domain.EvidenceItem) []domain.EvidenceItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.EvidenceItem, 0, len(items))
	for _, item := range items {
		key := item.URL + "\x00" + leadingChars(item.Text, dedupPrefixChars)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func leadingChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
