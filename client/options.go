package client

import (
	"github.com/kbukum/cachekit/cache"
	"github.com/kbukum/cachekit/logger"
	"github.com/kbukum/cachekit/observability"
)

type options struct {
	log       *logger.Logger
	metrics   *observability.Metrics
	retryIf   func(error) bool
	isFailure func(error) bool
	cacheOpts []cache.Option
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger. Defaults to logger.Get(cfg.Name).
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records client activity on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRetryIf overrides which failures are retried.
func WithRetryIf(fn func(error) bool) Option {
	return func(o *options) { o.retryIf = fn }
}

// WithFailureFilter overrides which errors count against the breaker.
func WithFailureFilter(fn func(error) bool) Option {
	return func(o *options) { o.isFailure = fn }
}

// WithCacheOptions passes options through to the underlying cache, e.g.
// cache.WithClock in tests.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(o *options) { o.cacheOpts = append(o.cacheOpts, opts...) }
}
