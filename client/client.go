package client

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/kbukum/cachekit/cache"
	"github.com/kbukum/cachekit/logger"
	"github.com/kbukum/cachekit/observability"
	"github.com/kbukum/cachekit/resilience"
)

// Operation loads a value from the protected dependency. It must honor ctx.
type Operation[V any] func(ctx context.Context) (V, error)

// Client is a read-through cache in front of an unreliable dependency.
//
// A Get that hits the cache returns immediately. A miss is coalesced with
// concurrent misses for the same key, then runs the operation through the
// bulkhead (if configured) and the retry loop. Every attempt first waits for
// the rate limiter and then goes through the circuit breaker. A successful
// result is cached.
type Client[K comparable, V any] struct {
	name    string
	cfg     Config
	cache   *cache.Cache[K, V]
	retry   resilience.RetryPolicy
	breaker *resilience.CircuitBreaker
	limiter *resilience.RateLimiter
	// bulkhead is nil when disabled.
	bulkhead *resilience.Bulkhead
	group    singleflight.Group
	flights  *flights[K]

	log     *logger.Logger
	metrics *observability.Metrics
	newID   func() string

	stopped  atomic.Bool
	calls    atomic.Uint64
	attempts atomic.Uint64
	failures atomic.Uint64
	rejected atomic.Uint64
}

// New creates a client from cfg. Defaults are applied before validation.
func New[K comparable, V any](cfg Config, opts ...Option) (*Client[K, V], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client[K, V]{
		name:    cfg.Name,
		cfg:     cfg,
		log:     o.log,
		metrics: o.metrics,
		flights: newFlights[K](),
		newID:   uuid.NewString,
	}
	if c.log == nil {
		c.log = logger.Get(cfg.Name)
	}
	c.log = c.log.WithComponent("client")

	cacheOpts := o.cacheOpts
	if cfg.Cache.MaxEntries > 0 {
		cacheOpts = append(cacheOpts, cache.WithMaxEntries(cfg.Cache.MaxEntries))
	}
	c.cache = cache.New[K, V](cacheOpts...)

	c.retry = cfg.Retry
	if o.retryIf != nil {
		c.retry.RetryIf = o.retryIf
	}

	breakerCfg := cfg.Breaker
	if o.isFailure != nil {
		breakerCfg.IsFailure = o.isFailure
	}
	breakerCfg.OnStateChange = c.onStateChange
	c.breaker = resilience.NewCircuitBreaker(breakerCfg)

	limiterCfg := cfg.RateLimit
	limiterCfg.OnQueue = c.onQueue
	c.limiter = resilience.NewRateLimiter(limiterCfg)

	if cfg.Bulkhead.MaxConcurrent > 0 {
		bulkheadCfg := cfg.Bulkhead
		bulkheadCfg.OnReject = c.onReject
		c.bulkhead = resilience.NewBulkhead(bulkheadCfg)
	}

	return c, nil
}

// Get returns the cached value for key, or loads it with op and caches it
// for the configured default TTL.
func (c *Client[K, V]) Get(ctx context.Context, key K, op Operation[V]) (V, error) {
	return c.GetWithTTL(ctx, key, c.cfg.Cache.DefaultTTL, op)
}

// GetWithTTL is Get with a per-call TTL. A ttl <= 0 stores without expiry.
//
// Cache hits are served whatever the breaker state, since they make no call.
// Concurrent misses for equal keys share a single load; if the caller that
// started the load is cancelled, the others start a fresh one. A load that
// was invalidated while running returns its value without caching it.
func (c *Client[K, V]) GetWithTTL(ctx context.Context, key K, ttl time.Duration, op Operation[V]) (V, error) {
	var zero V
	if c.stopped.Load() {
		c.rejected.Add(1)
		return zero, errStopped(c.name)
	}

	if v, ok := c.cache.Get(key); ok {
		c.metrics.RecordLookup(ctx, c.name, true)
		return v, nil
	}
	c.metrics.RecordLookup(ctx, c.name, false)

	fields := logger.Fields(logger.FieldKey, fmt.Sprint(key))
	for {
		v, shared, err := c.load(ctx, key, ttl, fields, op)
		if err != nil && shared && ctx.Err() == nil && isCancellation(err) {
			continue
		}
		return v, err
	}
}

// load joins or starts the coalesced load for key and waits for it or for
// ctx, whichever comes first.
func (c *Client[K, V]) load(ctx context.Context, key K, ttl time.Duration, fields map[string]interface{}, op Operation[V]) (V, bool, error) {
	var zero V
	fl := c.flights.acquire(key)
	defer c.flights.release(key, fl)

	ch := c.group.DoChan(fl.id, func() (interface{}, error) {
		v, err := c.execute(ctx, observability.SpanClientGet, fields, op)
		if err != nil {
			return v, err
		}
		c.flights.settle(fl, func() { c.cache.SetWithTTL(key, v, ttl) })
		return v, nil
	})

	select {
	case <-ctx.Done():
		_, err := c.translate(ctx, resilience.Cancellation(ctx.Err()))
		return zero, false, err
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Shared, r.Err
		}
		v, _ := r.Val.(V)
		return v, r.Shared, nil
	}
}

// Do runs op through the resilience chain without caching or coalescing.
func (c *Client[K, V]) Do(ctx context.Context, op Operation[V]) (V, error) {
	return c.execute(ctx, observability.SpanClientDo, nil, op)
}

// Invalidate removes key from the cache. A load already in flight for key
// is detached: its result is not cached and the next Get starts a new one.
func (c *Client[K, V]) Invalidate(key K) {
	if id, ok := c.flights.detach(key, func() { c.cache.Delete(key) }); ok {
		c.group.Forget(id)
	}
}

// Purge empties the cache and detaches every load in flight.
func (c *Client[K, V]) Purge() {
	for _, id := range c.flights.detachAll(c.cache.Clear) {
		c.group.Forget(id)
	}
}

// BreakerState returns the circuit breaker's current state.
func (c *Client[K, V]) BreakerState() resilience.State {
	return c.breaker.State()
}

// Config returns the effective configuration.
func (c *Client[K, V]) Config() Config {
	return c.cfg
}

// execute runs one logical call: request ID, span, bulkhead, retry loop.
func (c *Client[K, V]) execute(ctx context.Context, spanName string, fields map[string]interface{}, op Operation[V]) (V, error) {
	var zero V
	if c.stopped.Load() {
		c.rejected.Add(1)
		return zero, errStopped(c.name)
	}

	id := c.newID()
	ctx = logger.ContextWithRequestID(ctx, id)
	ctx, track := observability.StartOperation(ctx, spanName, c.name, id, c.metrics)
	log := c.log.WithContext(ctx).WithFields(fields)
	c.calls.Add(1)

	policy := c.retry
	attemptTimeout := policy.AttemptTimeout
	// The attempt deadline starts after the rate limiter admits the attempt.
	policy.AttemptTimeout = 0
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.metrics.RecordRetry(ctx, c.name)
		log.Debug("retrying", logger.RetryFields(attempt, delay, err))
	}

	attempt := func(ctx context.Context) (V, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, err
		}
		return resilience.Call(c.breaker, func() (V, error) {
			track.Attempt()
			c.attempts.Add(1)
			if attemptTimeout <= 0 {
				return op(ctx)
			}
			attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
			defer cancel()
			return op(attemptCtx)
		})
	}

	run := func() (V, error) {
		return resilience.Retry(ctx, policy, attempt)
	}

	var (
		v   V
		err error
	)
	if c.bulkhead != nil {
		v, err = resilience.ExecuteWithResult(ctx, c.bulkhead, run)
	} else {
		v, err = run()
	}

	status, err := c.translate(ctx, err)
	track.End(ctx, status, errorCode(err), err)
	c.logOutcome(log, status, track, err)
	if err != nil {
		c.failures.Add(1)
		if status == observability.StatusCircuitOpen || status == observability.StatusRejected {
			c.rejected.Add(1)
		}
		return zero, err
	}
	return v, nil
}

func (c *Client[K, V]) logOutcome(log *logger.Logger, status string, track *observability.Operation, err error) {
	fields := logger.Fields(
		logger.FieldStatus, status,
		logger.FieldAttempt, track.Attempts(),
		logger.FieldDuration, track.Duration().Milliseconds(),
	)
	switch status {
	case observability.StatusOK:
		log.Debug("call succeeded", fields)
	case observability.StatusCancelled:
		log.Debug("call cancelled", fields)
	case observability.StatusCircuitOpen, observability.StatusRejected:
		log.WithError(err).Warn("call rejected", fields)
	default:
		log.WithError(err).Error("call failed", fields)
	}
}

func (c *Client[K, V]) onStateChange(name string, from, to resilience.State) {
	fields := logger.TransitionFields(name, from.String(), to.String())
	if to == resilience.StateOpen {
		c.log.Warn("circuit opened", fields)
	} else {
		c.log.Info("circuit state changed", fields)
	}
	c.metrics.RecordTransition(context.Background(), name, from.String(), to.String())
}

func (c *Client[K, V]) onQueue(name string, pending int) {
	c.metrics.RecordQueued(context.Background(), name)
	c.log.Debug("rate limited, queued", logger.Fields(logger.FieldLimiter, name, logger.FieldPending, pending))
}

func (c *Client[K, V]) onReject(name string) {
	c.metrics.RecordRejected(context.Background(), name)
	c.log.Debug("bulkhead full", logger.Fields("bulkhead", name))
}
