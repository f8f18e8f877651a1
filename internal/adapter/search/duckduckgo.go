package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"grounder/internal/domain"
	"grounder/internal/port"
)

const duckDuckGoBaseURL = "https://html.duckduckgo.com/html/"

// DuckDuckGoProvider is the keyless fallback provider. It scrapes the
// DuckDuckGo HTML endpoint, so results carry no date metadata.
type DuckDuckGoProvider struct {
	baseURL string
	client  *http.Client
}

// NewDuckDuckGoProvider creates the fallback provider.
func NewDuckDuckGoProvider(timeout time.Duration) *DuckDuckGoProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DuckDuckGoProvider{
		baseURL: duckDuckGoBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewDuckDuckGoProviderWithBaseURL is used by tests to point at a stub
// server.
func NewDuckDuckGoProviderWithBaseURL(baseURL string, timeout time.Duration) *DuckDuckGoProvider {
	p := NewDuckDuckGoProvider(timeout)
	p.baseURL = baseURL
	return p
}

func (p *DuckDuckGoProvider) Name() string { return "duckduckgo" }

// Search issues one query against the HTML endpoint. The include_domains
// filter is emulated with a site: operator; the recent filter is
// unsupported and ignored.
func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, opts port.SearchOptions) ([]domain.SearchResult, error) {
	q := query
	if len(opts.IncludeDomains) > 0 && !strings.Contains(q, "site:") {
		q += " site:" + opts.IncludeDomains[0]
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?q="+url.QueryEscape(q), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 8
	}

	return p.parseResults(string(body), maxResults)
}

// parseResults extracts hits from the result__a / result__snippet anchors
// of the DuckDuckGo HTML page.
func (p *DuckDuckGoProvider) parseResults(content string, maxResults int) ([]domain.SearchResult, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var results []domain.SearchResult

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") {
			if r, ok := extractHit(n); ok {
				r.Rank = len(results) + 1
				r.Engine = p.Name()
				results = append(results, r)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return results, nil
}

func extractHit(n *html.Node) (domain.SearchResult, bool) {
	var r domain.SearchResult

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			switch {
			case hasClass(n, "result__a"):
				r.URL = cleanRedirect(attrValue(n, "href"))
				r.Title = textContent(n)
			case hasClass(n, "result__snippet"):
				r.Snippet = textContent(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return r, r.URL != "" && r.Title != ""
}

// cleanRedirect unwraps DuckDuckGo's uddg redirect links.
func cleanRedirect(href string) string {
	if i := strings.Index(href, "uddg="); i >= 0 {
		raw := href[i+len("uddg="):]
		if j := strings.IndexByte(raw, '&'); j >= 0 {
			raw = raw[:j]
		}
		if decoded, err := url.QueryUnescape(raw); err == nil {
			return decoded
		}
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
