package analyzer

import (
	"strings"
	"unicode"

	"grounder/internal/domain"
)

// Tokenizer normalizes raw question text and splits it into tokens for
// planning and scoring.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer creates a new Tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		stopwords: defaultStopwords(),
	}
}

// Normalize replaces smart quotes with ASCII equivalents, strips
// possessive suffixes and collapses whitespace.
func (t *Tokenizer) Normalize(text string) string {
	r := strings.NewReplacer(
		"’", "'",
		"‘", "'",
		"“", `"`,
		"”", `"`,
	)
	text = r.Replace(text)
	text = stripPossessives(text)
	return strings.Join(strings.Fields(text), " ")
}

// Tokenize splits normalized text into lower-cased query tokens and drops
// stopwords. Tokens keep letters, digits, '.', '-' and '_' so that domain
// names and identifiers survive intact.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitQueryWords(strings.ToLower(text))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if _, isStop := t.stopwords[w]; isStop {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// OverlapTokens splits text into the lower-cased word/hyphen token set
// used for overlap scoring. Stopwords are kept: scoring measures raw
// coverage of the question, not salience.
func OverlapTokens(text string) map[string]struct{} {
	set := make(map[string]struct{})
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			set[current.String()] = struct{}{}
			current.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return set
}

// LatestUtterance returns the most recent non-empty message content.
func LatestUtterance(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if c := strings.TrimSpace(messages[i].Content); c != "" {
			return c
		}
	}
	return ""
}

// NewQuery builds the per-turn immutable query value from conversation
// history.
func (t *Tokenizer) NewQuery(messages []domain.Message) domain.Query {
	text := t.Normalize(LatestUtterance(messages))
	return domain.Query{
		Text:   text,
		Tokens: t.Tokenize(text),
	}
}

// stripPossessives removes trailing 's possessive markers from words.
func stripPossessives(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		trimmed := strings.TrimSuffix(strings.TrimSuffix(w, "'s"), "’s")
		if trimmed != "" {
			words[i] = trimmed
		}
	}
	return strings.Join(words, " ")
}

// splitQueryWords splits on anything that is not a letter, digit, '.',
// '-' or '_', then trims leading and trailing punctuation so a sentence
// ending like "report." tokenizes to "report".
func splitQueryWords(text string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		w := strings.Trim(current.String(), ".-")
		if w != "" {
			words = append(words, w)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_' {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return words
}

// defaultStopwords returns the small stopword set dropped during query
// planning.
func defaultStopwords() map[string]struct{} {
	stops := []string{
		"the", "a", "an", "about", "please", "can", "you", "tell",
		"me", "of", "on", "to", "for", "is", "are", "be", "and",
		"what", "whats", "how", "why", "when", "do", "does", "did",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
