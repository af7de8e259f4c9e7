package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/cachekit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The caller shuts it down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Lookup results recorded on cache.lookups.
const (
	LookupHit  = "hit"
	LookupMiss = "miss"
)

// Metrics holds the instruments shared by the cache and the resilient client.
// A nil *Metrics records nothing.
type Metrics struct {
	cacheLookups       metric.Int64Counter
	clientCalls        metric.Int64Counter
	clientDuration     metric.Float64Histogram
	retryAttempts      metric.Int64Counter
	breakerTransitions metric.Int64Counter
	limiterQueued      metric.Int64Counter
	bulkheadRejected   metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	cacheLookups, err := meter.Int64Counter("cache.lookups",
		metric.WithDescription("Cache lookups by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cache.lookups counter: %w", err)
	}

	clientCalls, err := meter.Int64Counter("client.calls",
		metric.WithDescription("Calls that reached the resilience chain, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating client.calls counter: %w", err)
	}

	clientDuration, err := meter.Float64Histogram("client.call.duration",
		metric.WithDescription("Duration of resilient calls including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating client.call.duration histogram: %w", err)
	}

	retryAttempts, err := meter.Int64Counter("retry.attempts",
		metric.WithDescription("Retries scheduled after a recoverable failure"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating retry.attempts counter: %w", err)
	}

	breakerTransitions, err := meter.Int64Counter("breaker.transitions",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating breaker.transitions counter: %w", err)
	}

	limiterQueued, err := meter.Int64Counter("ratelimiter.queued",
		metric.WithDescription("Requests that waited for a rate limit window"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ratelimiter.queued counter: %w", err)
	}

	bulkheadRejected, err := meter.Int64Counter("bulkhead.rejected",
		metric.WithDescription("Calls turned away by a full bulkhead"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bulkhead.rejected counter: %w", err)
	}

	return &Metrics{
		cacheLookups:       cacheLookups,
		clientCalls:        clientCalls,
		clientDuration:     clientDuration,
		retryAttempts:      retryAttempts,
		breakerTransitions: breakerTransitions,
		limiterQueued:      limiterQueued,
		bulkheadRejected:   bulkheadRejected,
	}, nil
}

// RecordLookup records a cache hit or miss.
func (m *Metrics) RecordLookup(ctx context.Context, cache string, hit bool) {
	if m == nil {
		return
	}
	result := LookupMiss
	if hit {
		result = LookupHit
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("result", result),
	))
}

// RecordCall records a completed resilient call.
func (m *Metrics) RecordCall(ctx context.Context, client, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.clientCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client", client),
		attribute.String("status", status),
	))
	m.clientDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("client", client),
	))
}

// RecordRetry records one scheduled retry.
func (m *Metrics) RecordRetry(ctx context.Context, client string) {
	if m == nil {
		return
	}
	m.retryAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client", client),
	))
}

// RecordTransition records a circuit breaker state change.
func (m *Metrics) RecordTransition(ctx context.Context, breaker, from, to string) {
	if m == nil {
		return
	}
	m.breakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker", breaker),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordQueued records a request that had to wait for the rate limiter.
func (m *Metrics) RecordQueued(ctx context.Context, limiter string) {
	if m == nil {
		return
	}
	m.limiterQueued.Add(ctx, 1, metric.WithAttributes(
		attribute.String("limiter", limiter),
	))
}

// RecordRejected records a call the bulkhead refused.
func (m *Metrics) RecordRejected(ctx context.Context, bulkhead string) {
	if m == nil {
		return
	}
	m.bulkheadRejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("bulkhead", bulkhead),
	))
}
