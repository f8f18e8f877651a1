package local

import (
	"context"
	"sort"

	"grounder/internal/adapter/analyzer"
	"grounder/internal/domain"
)

// Index is the slice of the store the supplier needs.
type Index interface {
	GetPostings(term string) ([]domain.Posting, error)
	GetPassage(id string) (domain.StoredPassage, error)
	GetDoc(id string) (domain.Document, error)
}

// StoreSource supplies local evidence from the indexed knowledge store.
// Candidates are gathered through the postings lists of the query tokens
// and scored by query token coverage.
type StoreSource struct {
	index Index
	topK  int
}

func NewStoreSource(index Index, topK int) *StoreSource {
	if topK <= 0 {
		topK = 5
	}
	return &StoreSource{index: index, topK: topK}
}

// Collect returns the best-matching indexed passages as evidence items.
// An empty query or an empty index yields no items and no error.
func (s *StoreSource) Collect(ctx context.Context, query domain.Query) ([]domain.EvidenceItem, error) {
	if len(query.Tokens) == 0 {
		return nil, nil
	}

	candidateIDs := make(map[string]struct{})
	ordered := make([]string, 0)
	for _, token := range query.Tokens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		postings, err := s.index.GetPostings(token)
		if err != nil {
			return nil, err
		}
		for _, p := range postings {
			if _, ok := candidateIDs[p.PassageID]; ok {
				continue
			}
			candidateIDs[p.PassageID] = struct{}{}
			ordered = append(ordered, p.PassageID)
		}
	}

	queryTokens := analyzer.OverlapTokens(query.Text)

	var items []domain.EvidenceItem
	for _, id := range ordered {
		passage, err := s.index.GetPassage(id)
		if err != nil {
			continue
		}
		items = append(items, domain.EvidenceItem{
			Text:   passage.Text,
			Title:  s.docPath(passage.DocID),
			Source: domain.SourceLocal,
			Score:  coverage(queryTokens, passage.Text),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	if len(items) > s.topK {
		items = items[:s.topK]
	}
	return items, nil
}

func (s *StoreSource) docPath(docID string) string {
	doc, err := s.index.GetDoc(docID)
	if err != nil {
		return ""
	}
	return doc.Path
}

// coverage is the fraction of query tokens found in the passage text.
func coverage(queryTokens map[string]struct{}, text string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	passageTokens := analyzer.OverlapTokens(text)
	matched := 0
	for t := range queryTokens {
		if _, ok := passageTokens[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}
