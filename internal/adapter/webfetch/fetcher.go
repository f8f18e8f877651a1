package webfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"grounder/internal/domain"
)

const maxBodyBytes = 2 << 20

// PageCache stores extracted pages between requests. Implementations are
// optional; a nil cache disables reuse.
type PageCache interface {
	GetPage(url string) (domain.CachedPage, bool, error)
	PutPage(page domain.CachedPage) error
}

// Fetcher retrieves a bounded set of URLs concurrently, extracts readable
// text and slices it into overlapping passages. Failures for one URL are
// logged and never abort the batch.
type Fetcher struct {
	client          *http.Client
	concurrency     int
	perPageTimeout  time.Duration
	windowChars     int
	overlapChars    int
	minPassageChars int
	cache           PageCache
	cacheTTL        time.Duration
	logger          *zap.Logger
}

// Options configures a Fetcher. Zero values fall back to defaults.
type Options struct {
	Concurrency     int
	PerPageTimeout  time.Duration
	WindowChars     int
	OverlapChars    int
	MinPassageChars int
	Cache           PageCache
	CacheTTL        time.Duration
}

// NewFetcher creates a content fetcher.
func NewFetcher(opts Options, logger *zap.Logger) *Fetcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 6
	}
	if opts.PerPageTimeout <= 0 {
		opts.PerPageTimeout = 12 * time.Second
	}
	if opts.WindowChars <= 0 {
		opts.WindowChars = 800
	}
	if opts.OverlapChars <= 0 {
		opts.OverlapChars = 200
	}
	if opts.MinPassageChars <= 0 {
		opts.MinPassageChars = 200
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client:          &http.Client{Timeout: opts.PerPageTimeout},
		concurrency:     opts.Concurrency,
		perPageTimeout:  opts.PerPageTimeout,
		windowChars:     opts.WindowChars,
		overlapChars:    opts.OverlapChars,
		minPassageChars: opts.MinPassageChars,
		cache:           opts.Cache,
		cacheTTL:        opts.CacheTTL,
		logger:          logger,
	}
}

// FetchPassages fetches the first budget.MaxPages distinct URLs with a
// bounded worker pool and windows the extracted text into passages,
// stopping once budget.MaxWebPassages is reached. Page order follows the
// input URL order regardless of fetch completion order.
func (f *Fetcher) FetchPassages(ctx context.Context, urls []string, budget domain.Budget) []domain.Passage {
	urls = distinct(urls)
	if budget.MaxPages > 0 && len(urls) > budget.MaxPages {
		urls = urls[:budget.MaxPages]
	}
	if len(urls) == 0 {
		return nil
	}

	pages := make([]domain.CachedPage, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			page, err := f.fetchPage(gctx, u)
			if err != nil {
				f.logger.Warn("page fetch failed", zap.String("url", u), zap.Error(err))
				return nil // isolated failure
			}
			pages[i] = page
			return nil
		})
	}
	// Workers never return errors; Wait only observes context cancellation.
	_ = g.Wait()

	maxPassages := budget.MaxWebPassages
	if maxPassages <= 0 {
		maxPassages = budget.MaxPages
	}

	var passages []domain.Passage
	for _, page := range pages {
		if page.Text == "" {
			continue
		}
		for _, w := range Window(page.Text, f.windowChars, f.overlapChars, f.minPassageChars) {
			if maxPassages > 0 && len(passages) >= maxPassages {
				return passages
			}
			passages = append(passages, domain.Passage{
				URL:   page.URL,
				Title: page.Title,
				Text:  w,
			})
		}
	}

	return passages
}

// fetchPage returns the extracted page, consulting the cache first. Pages
// that are not HTML or yield no readable text produce an empty Text and
// no error.
func (f *Fetcher) fetchPage(ctx context.Context, pageURL string) (domain.CachedPage, error) {
	if f.cache != nil {
		if cached, ok, err := f.cache.GetPage(pageURL); err == nil && ok {
			if time.Since(time.Unix(cached.FetchedAt, 0)) <= f.cacheTTL {
				return cached, nil
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.perPageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.CachedPage{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; grounder/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.CachedPage{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.CachedPage{}, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	ctype := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(ctype, "text/html") {
		f.logger.Debug("skipping non-HTML response",
			zap.String("url", pageURL), zap.String("content_type", ctype))
		return domain.CachedPage{URL: pageURL}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.CachedPage{}, fmt.Errorf("failed to read body: %w", err)
	}

	title, text, err := ExtractReadable(string(body))
	if err != nil {
		return domain.CachedPage{}, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if text == "" {
		f.logger.Debug("no readable text extracted", zap.String("url", pageURL))
		return domain.CachedPage{URL: pageURL}, nil
	}

	page := domain.CachedPage{
		URL:       pageURL,
		Title:     title,
		Text:      text,
		FetchedAt: time.Now().Unix(),
	}

	if f.cache != nil {
		if err := f.cache.PutPage(page); err != nil {
			f.logger.Warn("page cache write failed", zap.String("url", pageURL), zap.Error(err))
		}
	}

	return page, nil
}

// distinct removes duplicate URLs preserving first-seen order.
func distinct(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
