package merge

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"grounder/internal/domain"
)

// Merger assembles the final bounded context string and a deduplicated,
// normalized citation list from ranked evidence.
type Merger struct {
	mergeTop        int
	maxContextChars int
}

// NewMerger creates a context merger. mergeTop caps how many ranked items
// are merged even when the ranker kept more.
func NewMerger(mergeTop, maxContextChars int) *Merger {
	if mergeTop <= 0 {
		mergeTop = 8
	}
	return &Merger{
		mergeTop:        mergeTop,
		maxContextChars: maxContextChars,
	}
}

// Merge builds labeled source blocks from evidence with usable text and a
// parallel citation list deduplicated by URL in first-seen order. When no
// item yields text the fallback context is returned unchanged.
func (m *Merger) Merge(ranked []domain.EvidenceItem, fallbackContext string, now time.Time) domain.MergedContext {
	items := ranked
	if len(items) > m.mergeTop {
		items = items[:m.mergeTop]
	}

	var blocks []string
	var citations []domain.Citation
	for i, item := range items {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Source %d (%s):\n%s", i+1, sourceLabel(item), text))
		citations = append(citations, normalizeCitation(item, now))
	}

	if len(blocks) == 0 {
		return domain.MergedContext{Context: fallbackContext}
	}

	context := strings.Join(blocks, "\n")
	if m.maxContextChars > 0 {
		context = Truncate(context, m.maxContextChars)
	}

	return domain.MergedContext{
		Context:   context,
		Citations: dedupeCitations(citations),
	}
}

// Truncate cuts s to at most max bytes without splitting a rune. The cut
// point backs off to the nearest rune boundary.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func sourceLabel(item domain.EvidenceItem) string {
	if item.Title != "" {
		return item.Title
	}
	if item.URL != "" {
		return item.URL
	}
	return string(item.Source)
}

// normalizeCitation projects evidence metadata into the citation shape.
// Web items get an access timestamp; local items have none.
func normalizeCitation(item domain.EvidenceItem, now time.Time) domain.Citation {
	c := domain.Citation{
		URL:                item.URL,
		Title:              item.Title,
		PublishedOrUpdated: item.Date,
	}
	if item.Source == domain.SourceWeb && item.URL != "" {
		c.AccessedAt = now.UTC().Format(time.RFC3339)
	}
	return c
}

// dedupeCitations keeps the first citation per non-empty URL.
func dedupeCitations(citations []domain.Citation) []domain.Citation {
	seen := make(map[string]struct{}, len(citations))
	out := make([]domain.Citation, 0, len(citations))
	for _, c := range citations {
		if c.URL == "" {
			continue
		}
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out
}
