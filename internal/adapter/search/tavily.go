package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"grounder/internal/domain"
	"grounder/internal/port"
)

const tavilyBaseURL = "https://api.tavily.com/search"

// recentDays bounds the recency window Tavily applies when the planner
// asked for fresh results.
const recentDays = 30

// TavilyProvider searches the web through the Tavily API.
type TavilyProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewTavilyProvider creates a Tavily search provider. An empty API key is
// allowed; searches then return no results instead of failing.
func NewTavilyProvider(apiKey string, timeout time.Duration) *TavilyProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TavilyProvider{
		apiKey:  apiKey,
		baseURL: tavilyBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewTavilyProviderWithBaseURL is used by tests to point at a stub server.
func NewTavilyProviderWithBaseURL(apiKey, baseURL string, timeout time.Duration) *TavilyProvider {
	p := NewTavilyProvider(apiKey, timeout)
	p.baseURL = baseURL
	return p
}

func (p *TavilyProvider) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	IncludeAnswer  bool     `json:"include_answer"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	Days           int      `json:"days,omitempty"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
	News    []tavilyResult `json:"news"`
	Error   string         `json:"error,omitempty"`
}

type tavilyResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	PublishedDate string `json:"published_date"`
}

// Search issues one query. Missing credentials yield an empty result list.
func (p *TavilyProvider) Search(ctx context.Context, query string, opts port.SearchOptions) ([]domain.SearchResult, error) {
	if p.apiKey == "" {
		return nil, nil
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 8
	}

	reqBody := tavilyRequest{
		APIKey:         p.apiKey,
		Query:          query,
		IncludeAnswer:  false,
		SearchDepth:    "advanced",
		MaxResults:     maxResults,
		IncludeDomains: opts.IncludeDomains,
	}
	if opts.Recent {
		reqBody.Days = recentDays
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("tavily error: %s", parsed.Error)
	}

	items := parsed.Results
	if len(items) == 0 && len(parsed.News) > 0 {
		items = parsed.News
	}

	results := make([]domain.SearchResult, 0, len(items))
	for i, item := range items {
		if item.URL == "" {
			continue
		}
		results = append(results, domain.SearchResult{
			Title:   item.Title,
			URL:     item.URL,
			Snippet: item.Content,
			Rank:    i + 1,
			Date:    item.PublishedDate,
			Engine:  p.Name(),
		})
	}

	return results, nil
}
