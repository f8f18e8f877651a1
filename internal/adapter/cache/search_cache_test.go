package cache

import (
	"testing"
	"time"

	"grounder/internal/domain"
)

func results(url string) []domain.SearchResult {
	return []domain.SearchResult{{Title: "t", URL: url}}
}

func TestGetPutRoundTrip(t *testing.T) {
	c := NewSearchCache(10, time.Minute)

	c.Put("tavily", "q", nil, false, results("https://a.example"))

	got, hit := c.Get("tavily", "q", nil, false)
	if !hit {
		t.Fatal("expected cache hit")
	}
	if got[0].URL != "https://a.example" {
		t.Errorf("got %q", got[0].URL)
	}
}

func TestKeyIncludesEngineAndFilters(t *testing.T) {
	c := NewSearchCache(10, time.Minute)
	c.Put("tavily", "q", nil, false, results("https://a.example"))

	tests := []struct {
		name    string
		engine  string
		query   string
		domains []string
		recent  bool
	}{
		{"different engine", "duckduckgo", "q", nil, false},
		{"different query", "tavily", "q2", nil, false},
		{"different domains", "tavily", "q", []string{"acme.com"}, false},
		{"different recency", "tavily", "q", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, hit := c.Get(tt.engine, tt.query, tt.domains, tt.recent); hit {
				t.Error("unexpected cache hit")
			}
		})
	}
}

func TestTTLExpiry(t *testing.T) {
	c := NewSearchCache(10, 10*time.Millisecond)
	c.Put("tavily", "q", nil, false, results("https://a.example"))

	time.Sleep(20 * time.Millisecond)

	if _, hit := c.Get("tavily", "q", nil, false); hit {
		t.Error("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Errorf("Size = %d after expiry cleanup, want 0", c.Size())
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewSearchCache(2, time.Minute)
	c.Put("e", "a", nil, false, results("https://a.example"))
	c.Put("e", "b", nil, false, results("https://b.example"))

	// Touch "a" so "b" becomes the eviction candidate.
	c.Get("e", "a", nil, false)
	c.Put("e", "c", nil, false, results("https://c.example"))

	if _, hit := c.Get("e", "a", nil, false); !hit {
		t.Error("recently used entry was evicted")
	}
	if _, hit := c.Get("e", "b", nil, false); hit {
		t.Error("oldest entry survived eviction")
	}
}

func TestInvalidate(t *testing.T) {
	c := NewSearchCache(10, time.Minute)
	c.Put("e", "a", nil, false, results("https://a.example"))
	c.Put("e", "b", nil, false, results("https://b.example"))

	c.Invalidate()

	if c.Size() != 0 {
		t.Errorf("Size = %d after invalidate, want 0", c.Size())
	}
	if _, hit := c.Get("e", "a", nil, false); hit {
		t.Error("entry survived invalidation")
	}
}
