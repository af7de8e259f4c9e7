package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Common retry errors.
var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrCancelled          = errors.New("cancelled")
)

// RetryError is returned when every attempt failed with a recoverable error.
// It matches ErrMaxRetriesExceeded and the last underlying error.
type RetryError struct {
	// Attempts is the number of attempts made, MaxRetries + 1.
	Attempts int
	// Last is the error returned by the final attempt.
	Last error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%v after %d attempts: %v", ErrMaxRetriesExceeded, e.Attempts, e.Last)
}

// Unwrap exposes both the sentinel and the last failure to errors.Is/As.
func (e *RetryError) Unwrap() []error {
	return []error{ErrMaxRetriesExceeded, e.Last}
}

// RetryPolicy configures retry behavior. It holds no mutable state.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	// 0 means exactly one attempt.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`
	// BaseDelay is the delay before the first retry; it doubles per retry.
	BaseDelay time.Duration `yaml:"base_delay" mapstructure:"base_delay" validate:"gte=0"`
	// MaxDelay caps the exponential part of the delay. 0 means no cap.
	MaxDelay time.Duration `yaml:"max_delay" mapstructure:"max_delay" validate:"gte=0"`
	// JitterRatio adds a random [0, delay*JitterRatio) on top of each delay.
	JitterRatio float64 `yaml:"jitter_ratio" mapstructure:"jitter_ratio" validate:"gte=0,lte=1"`
	// AttemptTimeout bounds each attempt. 0 means attempts only inherit the
	// caller's deadline.
	AttemptTimeout time.Duration `yaml:"attempt_timeout" mapstructure:"attempt_timeout" validate:"gte=0"`
	// RetryIf decides whether a failure is recoverable. Defaults to IsRecoverable.
	RetryIf func(error) bool `yaml:"-" mapstructure:"-"`
	// OnRetry is called before sleeping ahead of retry number attempt.
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-" mapstructure:"-"`
}

// DefaultRetryPolicy returns sensible defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		JitterRatio: 0.1,
		RetryIf:     IsRecoverable,
	}
}

// Delay returns the wait before retry number n (1-indexed):
// BaseDelay * 2^(n-1), capped at MaxDelay, plus jitter in [0, delay*JitterRatio).
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := float64(p.BaseDelay) * math.Pow(2, float64(n-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.JitterRatio > 0 {
		d += rand.Float64() * d * p.JitterRatio
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Retry runs fn until it succeeds, fails with a non-recoverable error, or the
// retry budget is spent.
//
// Outcomes:
//   - success: the value, no further attempts
//   - non-recoverable failure: that error, unchanged
//   - budget spent: *RetryError (matches ErrMaxRetriesExceeded)
//   - ctx done before an attempt or while backing off: an error matching
//     both ErrCancelled and ctx.Err()
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.RetryIf == nil {
		p.RetryIf = IsRecoverable
	}

	attempts := p.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, Cancellation(err)
		}

		result, err := runAttempt(ctx, p.AttemptTimeout, fn)
		if err == nil {
			return result, nil
		}

		// The caller gave up while the attempt was running.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, Cancellation(ctxErr)
		}

		if !p.RetryIf(err) {
			return zero, err
		}
		if attempt == attempts {
			return zero, &RetryError{Attempts: attempts, Last: err}
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, Cancellation(ctx.Err())
		case <-timer.C:
		}
	}
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	_, err := Retry(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

// Cancellation wraps a context error so it matches both ErrCancelled and cause.
func Cancellation(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
