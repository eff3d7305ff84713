package linkpreview

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type cacheMetrics struct {
	lookups  metric.Int64Counter
	fetches  metric.Int64Counter
	duration metric.Float64Histogram
}

func newCacheMetrics(meter metric.Meter) *cacheMetrics {
	m, err := buildCacheMetrics(meter)
	if err != nil {
		slog.Warn("link preview metrics disabled", "error", err)
		m, _ = buildCacheMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	}
	return m
}

func buildCacheMetrics(meter metric.Meter) (*cacheMetrics, error) {
	lookups, err := meter.Int64Counter("linkpreview.cache.lookups",
		metric.WithDescription("Link preview cache lookups by result"))
	if err != nil {
		return nil, err
	}
	fetches, err := meter.Int64Counter("linkpreview.fetches",
		metric.WithDescription("Link preview scrapes by outcome"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("linkpreview.fetch.duration",
		metric.WithDescription("Link preview scrape latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &cacheMetrics{lookups: lookups, fetches: fetches, duration: duration}, nil
}

func (m *cacheMetrics) lookup(ctx context.Context, result string) {
	m.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *cacheMetrics) fetched(ctx context.Context, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.fetches.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
