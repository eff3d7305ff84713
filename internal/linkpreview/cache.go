package linkpreview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const instrumentationName = "github.com/promptfolio/api/internal/linkpreview"

type entry struct {
	record    *Record
	createdAt time.Time
}

// Cache serves link previews from a process-local, time-bounded map keyed by
// the exact URL string. Expired entries are ignored on lookup and replaced on
// the next successful fetch; nothing sweeps them in the background.
// Failed fetches are never stored.
type Cache struct {
	scraper    Scraper
	ttl        time.Duration
	timeout    time.Duration
	maxEntries int
	clock      Clock
	tracer     trace.Tracer
	metrics    *cacheMetrics

	mu      sync.RWMutex
	entries map[string]entry

	// Concurrent misses for one URL share a single scrape.
	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets how long entries stay valid.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithTimeout bounds each scrape.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) { c.timeout = d }
}

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithMaxEntries caps the number of stored URLs. Zero means unbounded.
// When full, storing a new URL evicts the oldest entry.
func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

// WithMeter records cache metrics on meter instead of the global provider.
func WithMeter(meter metric.Meter) Option {
	return func(c *Cache) { c.metrics = newCacheMetrics(meter) }
}

// NewCache creates a Cache in front of scraper.
func NewCache(scraper Scraper, opts ...Option) *Cache {
	c := &Cache{
		scraper: scraper,
		ttl:     DefaultTTL,
		timeout: DefaultTimeout,
		clock:   realClock{},
		tracer:  otel.Tracer(instrumentationName),
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = newCacheMetrics(otel.Meter(instrumentationName))
	}
	return c
}

// Get returns the preview for url, scraping it on a miss. Errors are always
// *FetchError.
func (c *Cache) Get(ctx context.Context, url string) (*Record, error) {
	if rec, ok := c.lookup(url); ok {
		c.metrics.lookup(ctx, "hit")
		return rec, nil
	}
	c.metrics.lookup(ctx, "miss")

	v, err, shared := c.group.Do(url, func() (interface{}, error) {
		// A flight that finished between lookup and Do already stored it.
		if rec, ok := c.lookup(url); ok {
			return rec, nil
		}
		return c.fetch(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("link preview fetch shared", "url", url)
	}
	return v.(*Record), nil
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) lookup(url string) (*Record, bool) {
	c.mu.RLock()
	e, ok := c.entries[url]
	c.mu.RUnlock()
	if !ok || c.clock.Now().Sub(e.createdAt) >= c.ttl {
		return nil, false
	}
	return e.record, true
}

func (c *Cache) fetch(ctx context.Context, url string) (*Record, error) {
	// Detach from the first caller's cancellation: other callers may be
	// waiting on this flight. The timeout still bounds the scrape.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "linkpreview.scrape",
		trace.WithAttributes(attribute.String("url.full", url)))
	defer span.End()

	start := c.clock.Now()
	rec, err := c.scraper.Scrape(ctx, url)
	c.metrics.fetched(ctx, c.clock.Now().Sub(start), err)

	if err == nil && rec == nil {
		err = ErrNoPreview
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "scrape failed")
		slog.Warn("link preview fetch failed", "url", url, "error", err)
		return nil, &FetchError{URL: url, Err: err}
	}

	c.store(url, rec)
	return rec, nil
}

func (c *Cache) store(url string, rec *Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[url]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[url] = entry{record: rec, createdAt: c.clock.Now()}
}

func (c *Cache) evictOldestLocked() {
	var oldest string
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.createdAt.Before(oldestAt) {
			oldest, oldestAt, first = k, e.createdAt, false
		}
	}
	if !first {
		delete(c.entries, oldest)
	}
}
