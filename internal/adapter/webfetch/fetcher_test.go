package webfetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"grounder/internal/domain"
)

func htmlPage(title, body string) string {
	return fmt.Sprintf(`<html><head><title>%s</title></head><body><article><p>%s</p></article></body></html>`, title, body)
}

func TestFetchPassages(t *testing.T) {
	content := strings.Repeat("lorem ipsum evidence text ", 40)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, htmlPage("Page", content))
	}))
	defer srv.Close()

	f := NewFetcher(Options{WindowChars: 300, OverlapChars: 50, MinPassageChars: 100}, nil)
	passages := f.FetchPassages(context.Background(), []string{srv.URL + "/a"}, domain.Budget{
		MaxPages:       6,
		MaxWebPassages: 16,
	})

	if len(passages) == 0 {
		t.Fatal("expected passages")
	}
	for _, p := range passages {
		if p.URL != srv.URL+"/a" {
			t.Errorf("passage URL = %q", p.URL)
		}
		if p.Title != "Page" {
			t.Errorf("passage title = %q", p.Title)
		}
		if len(p.Text) < 100 {
			t.Errorf("passage below minimum length: %d", len(p.Text))
		}
	}
}

func TestFetchPassagesSkipsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"not": "html"}`)
	}))
	defer srv.Close()

	f := NewFetcher(Options{}, nil)
	passages := f.FetchPassages(context.Background(), []string{srv.URL}, domain.Budget{MaxPages: 6})

	if len(passages) != 0 {
		t.Errorf("expected no passages from a JSON endpoint, got %d", len(passages))
	}
}

func TestFetchPassagesHonorsPageBudget(t *testing.T) {
	var mu sync.Mutex
	served := make(map[string]int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		served[r.URL.Path]++
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, htmlPage("Page", strings.Repeat("text ", 100)))
	}))
	defer srv.Close()

	urls := make([]string, 10)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/p%d", srv.URL, i)
	}

	f := NewFetcher(Options{WindowChars: 200, OverlapChars: 20, MinPassageChars: 50}, nil)
	f.FetchPassages(context.Background(), urls, domain.Budget{MaxPages: 3, MaxWebPassages: 100})

	mu.Lock()
	defer mu.Unlock()
	if len(served) != 3 {
		t.Errorf("fetched %d distinct pages, want 3", len(served))
	}
}

func TestFetchPassagesCapsTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, htmlPage("Page", strings.Repeat("evidence text here ", 200)))
	}))
	defer srv.Close()

	f := NewFetcher(Options{WindowChars: 200, OverlapChars: 20, MinPassageChars: 50}, nil)
	passages := f.FetchPassages(context.Background(), []string{srv.URL + "/a", srv.URL + "/b"}, domain.Budget{
		MaxPages:       6,
		MaxWebPassages: 4,
	})

	if len(passages) != 4 {
		t.Errorf("got %d passages, want 4", len(passages))
	}
}

func TestFetchPassagesFailureIsolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, htmlPage("Good", strings.Repeat("usable evidence text ", 50)))
	}))
	defer srv.Close()

	f := NewFetcher(Options{WindowChars: 300, OverlapChars: 50, MinPassageChars: 50}, nil)
	passages := f.FetchPassages(context.Background(), []string{srv.URL + "/bad", srv.URL + "/good"}, domain.Budget{
		MaxPages:       6,
		MaxWebPassages: 16,
	})

	if len(passages) == 0 {
		t.Fatal("expected passages from the healthy URL")
	}
	for _, p := range passages {
		if strings.HasSuffix(p.URL, "/bad") {
			t.Errorf("passage attributed to failed URL")
		}
	}
}

// memPageCache is an in-memory PageCache for tests.
type memPageCache struct {
	mu    sync.Mutex
	pages map[string]domain.CachedPage
	gets  int
	puts  int
}

func newMemPageCache() *memPageCache {
	return &memPageCache{pages: make(map[string]domain.CachedPage)}
}

func (c *memPageCache) GetPage(url string) (domain.CachedPage, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	p, ok := c.pages[url]
	return p, ok, nil
}

func (c *memPageCache) PutPage(page domain.CachedPage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.pages[page.URL] = page
	return nil
}

func TestFetchPassagesUsesCache(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, htmlPage("Cached", strings.Repeat("cached evidence text ", 50)))
	}))
	defer srv.Close()

	c := newMemPageCache()
	f := NewFetcher(Options{WindowChars: 300, OverlapChars: 50, MinPassageChars: 50, Cache: c}, nil)
	budget := domain.Budget{MaxPages: 6, MaxWebPassages: 16}

	f.FetchPassages(context.Background(), []string{srv.URL}, budget)
	f.FetchPassages(context.Background(), []string{srv.URL}, budget)

	mu.Lock()
	defer mu.Unlock()
	if hits != 1 {
		t.Errorf("server hit %d times, want 1 (second run cached)", hits)
	}
	if c.puts != 1 {
		t.Errorf("cache puts = %d, want 1", c.puts)
	}
}
