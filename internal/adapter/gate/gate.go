package gate

import (
	"strings"

	"grounder/internal/domain"
)

// webTriggers are query keywords that signal recency or specificity the
// local knowledge base is unlikely to cover.
var webTriggers = []string{
	"article",
	"review",
	"news",
	"latest",
	"today",
	"update",
	"price",
	"law",
}

// Gate decides whether local evidence alone can answer the query. It is a
// pure function of its inputs.
type Gate struct {
	minLocalHits    int
	minPassageChars int
}

// NewGate creates a sufficiency gate with the given thresholds.
func NewGate(minLocalHits, minPassageChars int) *Gate {
	if minLocalHits < 1 {
		minLocalHits = 1
	}
	return &Gate{
		minLocalHits:    minLocalHits,
		minPassageChars: minPassageChars,
	}
}

// Decide counts local items long enough to carry real content, tests the
// query against the trigger set, and applies the decision table. The
// borderline cases deliberately lean towards gathering more evidence.
func (g *Gate) Decide(query domain.Query, local []domain.EvidenceItem) (domain.Decision, domain.Deficit) {
	hits := 0
	for _, item := range local {
		if len(item.Text) >= g.minPassageChars {
			hits++
		}
	}

	lower := strings.ToLower(query.Text)
	trigger := false
	for _, t := range webTriggers {
		if strings.Contains(lower, t) {
			trigger = true
			break
		}
	}

	coverage := hits >= g.minLocalHits

	switch {
	case trigger && !coverage:
		return domain.DecisionInsufficient, domain.DeficitTriggerAndLowCoverage
	case coverage && !trigger:
		return domain.DecisionSufficient, domain.DeficitNone
	default:
		return domain.DecisionInsufficient, domain.DeficitBorderline
	}
}
