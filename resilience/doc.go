// Package resilience provides the fault-tolerance primitives used by the
// cachekit client.
//
// This package includes:
//   - Retry: retries recoverable failures with exponential backoff and jitter
//   - CircuitBreaker: fails fast while a dependency is unhealthy
//   - RateLimiter: fixed-window limiter that queues excess requests in FIFO order
//   - Bulkhead: caps concurrent calls into a dependency
//
// Composed the way the client does it, each attempt is rate limited and
// guarded by the breaker, and the breaker's rejection stops the retry loop:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("pricing"))
//	rl := resilience.NewRateLimiter(resilience.DefaultRateLimiterConfig("pricing"))
//
//	price, err := resilience.Retry(ctx, resilience.DefaultRetryPolicy(), func(ctx context.Context) (float64, error) {
//	    if err := rl.Wait(ctx); err != nil {
//	        return 0, err
//	    }
//	    return resilience.Call(cb, func() (float64, error) {
//	        return fetchPrice(ctx, sku)
//	    })
//	})
package resilience
