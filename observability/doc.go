// Package observability provides OpenTelemetry tracing and metrics for
// cachekit.
//
// Setup installs OTLP/HTTP exporters when enabled:
//
//	shutdown, err := observability.Setup(ctx, cfg.Observability, "cachekit", version.Version, "production")
//	defer shutdown(ctx)
//
// Metrics exposes the instruments the client records:
// cache.lookups, client.calls, client.call.duration, retry.attempts,
// breaker.transitions, ratelimiter.queued and bulkhead.rejected.
//
//	metrics, err := observability.NewMetrics(observability.Meter("cachekit"))
//	ctx, op := observability.StartOperation(ctx, observability.SpanClientGet, "users", requestID, metrics)
//	defer op.End(ctx, observability.StatusOK, "", nil)
package observability
