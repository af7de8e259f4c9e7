package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kbukum/cachekit/cache"
	"github.com/kbukum/cachekit/component"
	"github.com/kbukum/cachekit/resilience"
)

// Stats is a point-in-time snapshot of a client.
type Stats struct {
	Cache        cache.Stats `yaml:"cache"`
	BreakerState string      `yaml:"breaker_state"`
	Failures     int         `yaml:"consecutive_failures"`
	Pending      int         `yaml:"rate_limit_pending"`
	InFlight     int         `yaml:"in_flight"`
	Calls        uint64      `yaml:"calls"`
	Attempts     uint64      `yaml:"attempts"`
	Failed       uint64      `yaml:"failed"`
	Rejected     uint64      `yaml:"rejected"`
}

// Stats returns a snapshot of cache and resilience state.
func (c *Client[K, V]) Stats() Stats {
	s := Stats{
		Cache:        c.cache.Stats(),
		BreakerState: c.breaker.State().String(),
		Failures:     c.breaker.Failures(),
		Pending:      c.limiter.Pending(),
		Calls:        c.calls.Load(),
		Attempts:     c.attempts.Load(),
		Failed:       c.failures.Load(),
		Rejected:     c.rejected.Load(),
	}
	if c.bulkhead != nil {
		s.InFlight = c.bulkhead.InUse()
	}
	return s
}

var _ component.Component = (*Client[string, string])(nil)

// Name returns the client name.
func (c *Client[K, V]) Name() string { return c.name }

// Start resets the breaker and accepts calls.
func (c *Client[K, V]) Start(ctx context.Context) error {
	c.breaker.Reset()
	c.stopped.Store(false)
	c.log.Info("client started", map[string]interface{}{
		"max_retries": c.retry.MaxRetries,
		"threshold":   c.cfg.Breaker.FailureThreshold,
	})
	return nil
}

// Stop rejects new calls and empties the cache. Calls already running
// finish normally.
func (c *Client[K, V]) Stop(ctx context.Context) error {
	c.stopped.Store(true)
	c.Purge()
	c.log.Info("client stopped")
	return nil
}

// Health maps the breaker state: closed is healthy, half-open degraded and
// open unhealthy.
func (c *Client[K, V]) Health(ctx context.Context) component.Health {
	state := c.breaker.State()
	h := component.Health{
		Name: c.name,
		Details: map[string]string{
			"breaker":  state.String(),
			"failures": strconv.Itoa(c.breaker.Failures()),
			"pending":  strconv.Itoa(c.limiter.Pending()),
		},
	}
	switch {
	case c.stopped.Load():
		h.Status = component.StatusUnhealthy
		h.Message = "stopped"
	case state == resilience.StateOpen:
		h.Status = component.StatusUnhealthy
		h.Message = "circuit open"
	case state == resilience.StateHalfOpen:
		h.Status = component.StatusDegraded
		h.Message = "circuit half-open"
	default:
		h.Status = component.StatusHealthy
	}
	return h
}

// Describe summarizes the client configuration.
func (c *Client[K, V]) Describe() component.Description {
	return component.Description{
		Name: c.name,
		Type: "client",
		Details: fmt.Sprintf("ttl=%s retries=%d threshold=%d limit=%d/%s",
			c.cfg.Cache.DefaultTTL, c.retry.MaxRetries, c.cfg.Breaker.FailureThreshold,
			c.limiter.MaxRequests(), c.limiter.Window()),
	}
}
