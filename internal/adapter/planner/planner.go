package planner

import (
	"regexp"
	"strings"

	"grounder/internal/adapter/analyzer"
	"grounder/internal/domain"
)

const (
	maxKeywordTokens = 8
	fallbackVariant  = "overview"
)

var (
	siteHintPattern = regexp.MustCompile(`(?i)site:([\w.-]+)`)
	yearPattern     = regexp.MustCompile(`\b20\d{2}\b`)
)

// recencyCues flag queries that should prefer fresh results.
var recencyCues = []string{"latest", "today", "this week", "this month"}

// Planner derives search query variants and provider filters from the raw
// question text.
type Planner struct {
	tokenizer   *analyzer.Tokenizer
	anchorTerms []string
}

// NewPlanner creates a search planner. anchorTerms are optional
// domain-relevant entity tokens; when two of them co-occur in a query an
// extra entity-pair variant is emitted.
func NewPlanner(tokenizer *analyzer.Tokenizer, anchorTerms []string) *Planner {
	return &Planner{
		tokenizer:   tokenizer,
		anchorTerms: anchorTerms,
	}
}

// BuildPlan normalizes the question, extracts an explicit site: hint,
// builds deduplicated query variants and detects recency cues. The
// returned plan always carries at least one variant.
func (p *Planner) BuildPlan(raw string) domain.SearchPlan {
	normalized := p.tokenizer.Normalize(raw)
	lower := strings.ToLower(normalized)

	var siteHint string
	if m := siteHintPattern.FindStringSubmatch(lower); m != nil {
		siteHint = m[1]
		normalized = strings.TrimSpace(siteHintPattern.ReplaceAllString(normalized, ""))
		normalized = strings.Join(strings.Fields(normalized), " ")
		lower = strings.ToLower(normalized)
	}

	tokens := p.tokenizer.Tokenize(lower)

	var variants []string
	if normalized != "" {
		variants = append(variants, normalized)
	}

	if kw := keywordVariant(tokens); kw != "" {
		variants = append(variants, kw)
	}

	if pair := p.anchorVariant(tokens); pair != "" {
		variants = append(variants, pair)
	}

	variants = dedupe(variants)

	plan := domain.SearchPlan{
		Recent: hasRecencyCue(lower),
	}

	if siteHint != "" {
		for i, v := range variants {
			variants[i] = v + " site:" + siteHint
		}
		plan.IncludeDomains = []string{siteHint}
	}

	if len(variants) == 0 {
		variants = []string{fallbackVariant}
	}
	plan.Variants = variants

	return plan
}

// keywordVariant joins the first surviving tokens into a compact query.
func keywordVariant(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	n := len(tokens)
	if n > maxKeywordTokens {
		n = maxKeywordTokens
	}
	return strings.Join(tokens[:n], " ")
}

// anchorVariant composes an entity-pair phrase when at least two anchor
// terms appear among the query tokens.
func (p *Planner) anchorVariant(tokens []string) string {
	var found []string
	for _, anchor := range p.anchorTerms {
		for _, t := range tokens {
			if strings.Contains(t, anchor) {
				found = append(found, anchor)
				break
			}
		}
		if len(found) == 2 {
			return found[0] + " " + found[1] + " article"
		}
	}
	return ""
}

func hasRecencyCue(lower string) bool {
	for _, cue := range recencyCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return yearPattern.MatchString(lower)
}

// dedupe removes duplicate variants preserving first-seen order.
func dedupe(variants []string) []string {
	seen := make(map[string]struct{}, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
