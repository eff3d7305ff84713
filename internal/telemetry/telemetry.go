// Package telemetry wires OpenTelemetry traces, metrics and logs.
//
// Export is opt-in: when telemetry is disabled Setup registers nothing and
// the global providers stay no-ops, so instrumented code costs nothing.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	logglobal "go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/promptfolio/api/internal/config"
)

// Providers holds the SDK providers created by Setup.
type Providers struct {
	// LogHandler forwards slog records to the OTLP log pipeline. Nil when
	// telemetry is disabled.
	LogHandler slog.Handler

	shutdowns []func(context.Context) error
}

// Enabled reports whether exporters were configured.
func (p *Providers) Enabled() bool {
	return len(p.shutdowns) > 0
}

// Shutdown flushes and stops every provider, in reverse creation order.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(p.shutdowns) - 1; i >= 0; i-- {
		if err := p.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.shutdowns = nil
	return errors.Join(errs...)
}

// Setup initialises tracing, metrics and log export for cfg.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (*Providers, error) {
	p := &Providers{}
	if !cfg.Enabled || cfg.Endpoint == "" {
		return p, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building resource: %w", err)
	}

	traceExporter, err := newTraceExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	p.shutdowns = append(p.shutdowns, tp.Shutdown)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := newMetricExporter(ctx, cfg)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	p.shutdowns = append(p.shutdowns, mp.Shutdown)
	otel.SetMeterProvider(mp)

	if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("starting runtime metrics: %w", err)
	}

	logExporter, err := newLogExporter(ctx, cfg)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("creating log exporter: %w", err)
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	p.shutdowns = append(p.shutdowns, lp.Shutdown)
	logglobal.SetLoggerProvider(lp)
	p.LogHandler = otelslog.NewHandler(cfg.ServiceName, otelslog.WithLoggerProvider(lp))

	return p, nil
}

func newTraceExporter(ctx context.Context, cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	if cfg.Protocol == "grpc" {
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(cfg.Endpoint))
	}
	return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(signalURL(cfg.Endpoint, "traces")))
}

func newMetricExporter(ctx context.Context, cfg config.TelemetryConfig) (sdkmetric.Exporter, error) {
	if cfg.Protocol == "grpc" {
		return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(cfg.Endpoint))
	}
	return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(signalURL(cfg.Endpoint, "metrics")))
}

func newLogExporter(ctx context.Context, cfg config.TelemetryConfig) (sdklog.Exporter, error) {
	if cfg.Protocol == "grpc" {
		return otlploggrpc.New(ctx, otlploggrpc.WithEndpointURL(cfg.Endpoint))
	}
	return otlploghttp.New(ctx, otlploghttp.WithEndpointURL(signalURL(cfg.Endpoint, "logs")))
}

// signalURL appends the OTLP/HTTP path for signal to a collector base URL.
func signalURL(endpoint, signal string) string {
	return strings.TrimRight(endpoint, "/") + "/v1/" + signal
}
