package linkpreview

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultTTL is how long a successful scrape is served from cache.
	DefaultTTL = time.Hour
	// DefaultTimeout bounds a single scrape.
	DefaultTimeout = 3 * time.Second
	// DefaultUserAgent labels outbound requests so sites that block anonymous
	// bots still answer.
	DefaultUserAgent = "PromptfolioBot/1.0 (+https://github.com/promptfolio/api; link preview)"
)

var (
	// ErrTimeout is wrapped by FetchError when the scrape exceeded its timeout.
	ErrTimeout = errors.New("link preview fetch timed out")
	// ErrNoPreview is returned by scrapers when a page yields nothing usable.
	ErrNoPreview = errors.New("no preview data")
)

// Record summarises a remote page.
type Record struct {
	URL         string   `json:"url"`
	Title       string   `json:"title,omitempty"`
	SiteName    string   `json:"site_name,omitempty"`
	Description string   `json:"description,omitempty"`
	MediaType   string   `json:"media_type,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	Images      []string `json:"images"`
	Videos      []string `json:"videos"`
	Favicons    []string `json:"favicons"`
}

// Scraper fetches preview metadata for a URL. Implementations must honour
// ctx cancellation.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Record, error)
}

// ScraperFunc adapts a function to Scraper.
type ScraperFunc func(ctx context.Context, url string) (*Record, error)

func (f ScraperFunc) Scrape(ctx context.Context, url string) (*Record, error) {
	return f(ctx, url)
}

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// FetchError reports a failed scrape. It is never cached.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch preview %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusError is returned by HTTPScraper for non-2xx responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}
