package coinafrique

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"

	"coinafrique-scraper/config"
	"coinafrique-scraper/models"
)

// Fetcher retrieves one listing page of a category as a parsed document.
type Fetcher interface {
	Fetch(ctx context.Context, category models.Category, page int) (*goquery.Document, error)
}

// FetchError is a per-page network, status or parse failure.
type FetchError struct {
	Page int
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d (%s): %v", e.Page, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PageURL appends the page query parameter to a category base URL.
func PageURL(base string, page int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// HTTPFetcher issues a plain GET per page.
type HTTPFetcher struct {
	client    *http.Client
	baseURLs  map[models.Category]string
	userAgent string
}

// NewHTTPFetcher creates an HTTPFetcher for the given category table.
func NewHTTPFetcher(baseURLs map[models.Category]string, timeout time.Duration, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		baseURLs:  baseURLs,
		userAgent: userAgent,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, category models.Category, page int) (*goquery.Document, error) {
	pageURL, err := resolvePageURL(f.baseURLs, category, page)
	if err != nil {
		return nil, &FetchError{Page: page, URL: pageURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{Page: page, URL: pageURL, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Page: page, URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{Page: page, URL: pageURL, Err: fmt.Errorf("bad status code: %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FetchError{Page: page, URL: pageURL, Err: fmt.Errorf("parse html: %w", err)}
	}
	return doc, nil
}

func resolvePageURL(baseURLs map[models.Category]string, category models.Category, page int) (string, error) {
	base, ok := baseURLs[category]
	if !ok {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
	}
	if page < 1 {
		return base, fmt.Errorf("page index must be >= 1, got %d", page)
	}
	return PageURL(base, page)
}

// NewFetcher builds the fetcher selected by cfg.FetchMode ("http" or
// "browser"). The returned function releases its resources.
func NewFetcher(cfg *config.Config) (Fetcher, func() error, error) {
	switch cfg.FetchMode {
	case "", "http":
		return NewHTTPFetcher(cfg.CategoryURLs, cfg.FetchTimeout, cfg.UserAgent), func() error { return nil }, nil
	case "browser":
		b, err := NewBrowserFetcher(cfg.CategoryURLs, cfg.FetchTimeout, cfg.ChromeBin, cfg.UserAgent)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown fetch mode %q", cfg.FetchMode)
}
