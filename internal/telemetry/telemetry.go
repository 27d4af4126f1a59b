// Package telemetry initializes OpenTelemetry tracing and metrics exporters
// and registers gauges for the warehouse connection pool.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Shutdown flushes and stops the exporters.
type Shutdown func(ctx context.Context) error

// Settings selects the OTLP endpoint and resource identity.
type Settings struct {
	Endpoint    string // host:port of an OTLP/HTTP collector; empty disables export
	Insecure    bool
	ServiceName string
	Version     string
}

// Init configures the global tracer and meter providers. With no endpoint
// the global no-op providers stay in place and Shutdown does nothing.
func Init(ctx context.Context, s Settings) (Shutdown, error) {
	if s.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(s.ServiceName),
			semconv.ServiceVersionKey.String(s.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create resource: %w", err)
	}

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(s.Endpoint)}
	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(s.Endpoint)}
	if s.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	traceExp, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	// Propagate W3C trace context into outbound calls to Cortex and the
	// model providers.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExp, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry: create metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(15*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// Meter returns the global meter for the given instrumentation scope.
func Meter(name string) metric.Meter {
	return otel.GetMeterProvider().Meter(name)
}

// Tracer returns the global tracer for the given instrumentation scope.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// RegisterPoolMetrics exports pgxpool statistics as observable gauges.
func RegisterPoolMetrics(pool *pgxpool.Pool) error {
	meter := Meter("vigil/storage")

	total, err := meter.Int64ObservableGauge("vigil.db.pool.connections",
		metric.WithDescription("Open warehouse connections"))
	if err != nil {
		return fmt.Errorf("telemetry: pool gauge: %w", err)
	}
	acquired, err := meter.Int64ObservableGauge("vigil.db.pool.acquired",
		metric.WithDescription("Warehouse connections currently in use"))
	if err != nil {
		return fmt.Errorf("telemetry: pool gauge: %w", err)
	}
	waits, err := meter.Int64ObservableCounter("vigil.db.pool.empty_acquires",
		metric.WithDescription("Acquires that waited for a free connection"))
	if err != nil {
		return fmt.Errorf("telemetry: pool gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		st := pool.Stat()
		o.ObserveInt64(total, int64(st.TotalConns()))
		o.ObserveInt64(acquired, int64(st.AcquiredConns()))
		o.ObserveInt64(waits, st.EmptyAcquireCount())
		return nil
	}, total, acquired, waits)
	if err != nil {
		return fmt.Errorf("telemetry: register pool callback: %w", err)
	}
	return nil
}
