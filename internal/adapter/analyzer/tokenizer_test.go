package analyzer

import (
	"reflect"
	"testing"

	"grounder/internal/domain"
)

func TestNormalize(t *testing.T) {
	tok := NewTokenizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "smart quotes become ascii",
			input:    "what is “Acme” doing",
			expected: `what is "Acme" doing`,
		},
		{
			name:     "possessive suffix stripped",
			input:    "Acme’s latest report",
			expected: "Acme latest report",
		},
		{
			name:     "ascii possessive stripped",
			input:    "the vendor's policy",
			expected: "the vendor policy",
		},
		{
			name:     "whitespace collapsed",
			input:    "  too   many\tspaces \n here ",
			expected: "too many spaces here",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Normalize(tt.input)
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	tok := NewTokenizer()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "stopwords dropped",
			input:    "what is the pricing model",
			expected: []string{"pricing", "model"},
		},
		{
			name:     "domain names survive",
			input:    "outage on status.acme.com today",
			expected: []string{"outage", "status.acme.com", "today"},
		},
		{
			name:     "trailing punctuation trimmed",
			input:    "read the report.",
			expected: []string{"read", "report"},
		},
		{
			name:     "hyphenated terms kept whole",
			input:    "rate-limit settings",
			expected: []string{"rate-limit", "settings"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Tokenize(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestOverlapTokensKeepsStopwords(t *testing.T) {
	set := OverlapTokens("what is the price")
	for _, want := range []string{"what", "is", "the", "price"} {
		if _, ok := set[want]; !ok {
			t.Errorf("OverlapTokens missing %q", want)
		}
	}
}

func TestLatestUtterance(t *testing.T) {
	messages := []domain.Message{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "an answer"},
		{Role: "user", Content: "  "},
	}
	got := LatestUtterance(messages)
	if got != "an answer" {
		t.Errorf("LatestUtterance = %q, want %q", got, "an answer")
	}

	if got := LatestUtterance(nil); got != "" {
		t.Errorf("LatestUtterance(nil) = %q, want empty", got)
	}
}

func TestNewQueryIsDeterministic(t *testing.T) {
	tok := NewTokenizer()
	messages := []domain.Message{{Role: "user", Content: "What’s Acme’s latest pricing?"}}

	first := tok.NewQuery(messages)
	second := tok.NewQuery(messages)

	if first.Text != second.Text || !reflect.DeepEqual(first.Tokens, second.Tokens) {
		t.Errorf("NewQuery not deterministic: %+v vs %+v", first, second)
	}
	if first.Text != "What Acme latest pricing?" {
		t.Errorf("unexpected normalized text: %q", first.Text)
	}
}
