package search

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"grounder/internal/port"
)

const ddgFixture = `<html><body>
<div class="results">
  <div class="result results_links">
    <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.example%2Fone&rut=abc">First Result</a>
    <a class="result__snippet" href="#">Snippet <b>one</b> here.</a>
  </div>
  <div class="result results_links">
    <a class="result__a" href="https://b.example/two">Second Result</a>
  </div>
  <div class="result results_links">
    <a class="result__a" href="https://c.example/three"></a>
  </div>
</div>
</body></html>`

func TestDuckDuckGoSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		io.WriteString(w, ddgFixture)
	}))
	defer srv.Close()

	p := NewDuckDuckGoProviderWithBaseURL(srv.URL, time.Second)
	results, err := p.Search(context.Background(), "acme outage", port.SearchOptions{
		IncludeDomains: []string{"acme.com"},
		MaxResults:     5,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if gotQuery != "acme outage site:acme.com" {
		t.Errorf("query = %q", gotQuery)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (titleless anchor dropped)", len(results))
	}
	if results[0].URL != "https://a.example/one" {
		t.Errorf("redirect not unwrapped: %q", results[0].URL)
	}
	if results[0].Title != "First Result" || results[0].Snippet != "Snippet one here." {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].URL != "https://b.example/two" || results[1].Rank != 2 {
		t.Errorf("second result = %+v", results[1])
	}
	if results[0].Engine != "duckduckgo" {
		t.Errorf("engine = %q", results[0].Engine)
	}
}

func TestDuckDuckGoMaxResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, ddgFixture)
	}))
	defer srv.Close()

	p := NewDuckDuckGoProviderWithBaseURL(srv.URL, time.Second)
	results, err := p.Search(context.Background(), "q", port.SearchOptions{MaxResults: 1})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestCleanRedirect(t *testing.T) {
	tests := []struct {
		href     string
		expected string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.example%2Fpage&rut=x", "https://a.example/page"},
		{"https://direct.example/page", "https://direct.example/page"},
	}
	for _, tt := range tests {
		if got := cleanRedirect(tt.href); got != tt.expected {
			t.Errorf("cleanRedirect(%q) = %q, want %q", tt.href, got, tt.expected)
		}
	}
}
