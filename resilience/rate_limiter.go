package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	// Name identifies this rate limiter for metrics/logging.
	Name string `yaml:"name" mapstructure:"name"`
	// MaxRequests is the number of requests admitted per window.
	MaxRequests int `yaml:"max_requests" mapstructure:"max_requests" validate:"gte=0"`
	// Window is the length of a counting window.
	Window time.Duration `yaml:"window" mapstructure:"window" validate:"gte=0"`
	// OnQueue is called when a request has to wait, with the queue length
	// including that request.
	OnQueue func(name string, pending int) `yaml:"-" mapstructure:"-"`
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:        name,
		MaxRequests: 100,
		Window:      time.Second,
	}
}

type waiter struct {
	ready    chan struct{}
	admitted bool
}

// RateLimiter is a fixed-window limiter that queues instead of rejecting.
//
// Up to MaxRequests are admitted per window. Further requests wait in a FIFO
// queue and are released strictly in arrival order as new windows open.
// A request is never dropped; it only leaves the queue early if its context
// ends.
type RateLimiter struct {
	config RateLimiterConfig

	mu          sync.Mutex
	windowStart time.Time
	count       int
	queue       []*waiter
	timer       *time.Timer
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.MaxRequests <= 0 {
		config.MaxRequests = 100
	}
	if config.Window <= 0 {
		config.Window = time.Second
	}

	return &RateLimiter{
		config:      config,
		windowStart: time.Now(),
	}
}

// Wait blocks until the request is admitted or ctx is done. On ctx
// completion the request is withdrawn from the queue and ctx.Err() returned.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	rl.roll(time.Now())
	rl.drain()

	if len(rl.queue) == 0 && rl.count < rl.config.MaxRequests {
		rl.count++
		rl.mu.Unlock()
		return nil
	}

	w := &waiter{ready: make(chan struct{})}
	rl.queue = append(rl.queue, w)
	pending := len(rl.queue)
	rl.arm()
	rl.mu.Unlock()

	if rl.config.OnQueue != nil {
		rl.config.OnQueue(rl.config.Name, pending)
	}

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		rl.mu.Lock()
		defer rl.mu.Unlock()
		if w.admitted {
			// Released concurrently with cancellation; the slot is ours.
			return nil
		}
		rl.withdraw(w)
		return ctx.Err()
	}
}

// Execute waits for admission, then runs fn.
func (rl *RateLimiter) Execute(ctx context.Context, fn func() error) error {
	if err := rl.Wait(ctx); err != nil {
		return err
	}
	return fn()
}

// Pending returns the number of queued requests.
func (rl *RateLimiter) Pending() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.queue)
}

// Count returns the number of requests admitted in the current window.
func (rl *RateLimiter) Count() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.roll(time.Now())
	return rl.count
}

// MaxRequests returns the per-window limit.
func (rl *RateLimiter) MaxRequests() int {
	return rl.config.MaxRequests
}

// Window returns the window length.
func (rl *RateLimiter) Window() time.Duration {
	return rl.config.Window
}

// roll starts a new window if the current one has elapsed. Caller holds mu.
func (rl *RateLimiter) roll(now time.Time) {
	if now.Sub(rl.windowStart) >= rl.config.Window {
		rl.windowStart = now
		rl.count = 0
	}
}

// drain admits queued waiters in order while capacity remains. Caller holds mu.
func (rl *RateLimiter) drain() {
	n := 0
	for n < len(rl.queue) && rl.count < rl.config.MaxRequests {
		w := rl.queue[n]
		w.admitted = true
		close(w.ready)
		rl.count++
		n++
	}
	if n > 0 {
		clear(rl.queue[:n])
		rl.queue = rl.queue[n:]
	}
}

// arm schedules a release at the end of the current window if none is
// pending. Caller holds mu.
func (rl *RateLimiter) arm() {
	if rl.timer != nil || len(rl.queue) == 0 {
		return
	}
	wait := rl.config.Window - time.Since(rl.windowStart)
	if wait < 0 {
		wait = 0
	}
	rl.timer = time.AfterFunc(wait, rl.release)
}

// release runs when a window ends while requests are queued.
func (rl *RateLimiter) release() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.timer = nil
	rl.roll(time.Now())
	rl.drain()
	rl.arm()
}

// withdraw removes a waiter whose caller gave up. Caller holds mu.
func (rl *RateLimiter) withdraw(w *waiter) {
	for i, q := range rl.queue {
		if q == w {
			rl.queue = append(rl.queue[:i], rl.queue[i+1:]...)
			break
		}
	}
	if len(rl.queue) == 0 && rl.timer != nil {
		rl.timer.Stop()
		rl.timer = nil
	}
}
