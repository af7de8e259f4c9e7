package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errTransient = Recoverable(errors.New("transient"))

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
	}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	callCount := 0

	result, err := Retry(context.Background(), DefaultRetryPolicy(), func(context.Context) (string, error) {
		callCount++
		return "success", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %s", result)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	for _, failures := range []int{1, 2, 3} {
		callCount := 0
		result, err := Retry(context.Background(), fastPolicy(4), func(context.Context) (int, error) {
			callCount++
			if callCount <= failures {
				return 0, errTransient
			}
			return 7, nil
		})

		if err != nil {
			t.Fatalf("failures=%d: expected no error, got %v", failures, err)
		}
		if result != 7 {
			t.Errorf("failures=%d: expected 7, got %d", failures, result)
		}
		if callCount != failures+1 {
			t.Errorf("failures=%d: expected %d calls, got %d", failures, failures+1, callCount)
		}
	}
}

func TestRetry_ExceedsMaxRetries(t *testing.T) {
	callCount := 0

	_, err := Retry(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		callCount++
		return "", errTransient
	})

	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Fatalf("expected ErrMaxRetriesExceeded, got %v", err)
	}
	if !errors.Is(err, errTransient) {
		t.Errorf("expected last error to be wrapped, got %v", err)
	}
	var retryErr *RetryError
	if !errors.As(err, &retryErr) || retryErr.Attempts != 4 {
		t.Errorf("expected RetryError with 4 attempts, got %v", err)
	}
	if callCount != 4 {
		t.Errorf("expected MaxRetries+1 = 4 calls, got %d", callCount)
	}
}

func TestRetry_ZeroMaxRetriesMeansOneAttempt(t *testing.T) {
	callCount := 0

	_, err := Retry(context.Background(), fastPolicy(0), func(context.Context) (string, error) {
		callCount++
		return "", errTransient
	})

	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Errorf("expected ErrMaxRetriesExceeded, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected exactly 1 call, got %d", callCount)
	}
}

func TestRetry_NonRecoverablePropagatesImmediately(t *testing.T) {
	validationErr := errors.New("invalid sku")
	callCount := 0

	_, err := Retry(context.Background(), fastPolicy(5), func(context.Context) (string, error) {
		callCount++
		return "", validationErr
	})

	if err != validationErr {
		t.Errorf("expected the original error unchanged, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetry_CircuitOpenStopsRetrying(t *testing.T) {
	callCount := 0

	_, err := Retry(context.Background(), fastPolicy(5), func(context.Context) (string, error) {
		callCount++
		return "", &CircuitOpenError{Name: "x"}
	})

	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if errors.Is(err, ErrMaxRetriesExceeded) {
		t.Error("circuit rejection must not be reported as exhausted retries")
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetry_CancelledDuringBackoff(t *testing.T) {
	p := RetryPolicy{MaxRetries: 10, BaseDelay: 100 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	callCount := 0
	_, err := Retry(ctx, p, func(context.Context) (string, error) {
		callCount++
		return "", errTransient
	})

	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
	if errors.Is(err, ErrMaxRetriesExceeded) {
		t.Error("cancellation must not be reported as exhausted retries")
	}
	if callCount != 1 {
		t.Errorf("expected no attempt after cancellation, got %d calls", callCount)
	}
}

func TestRetry_CancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Retry(ctx, fastPolicy(3), func(context.Context) (string, error) {
		called = true
		return "x", nil
	})

	if !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
	if called {
		t.Error("expected no attempt with an already cancelled context")
	}
}

func TestRetry_CallerDeadlineIsCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := Retry(ctx, RetryPolicy{MaxRetries: 10, BaseDelay: 50 * time.Millisecond}, func(context.Context) (string, error) {
		return "", errTransient
	})

	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected ErrCancelled wrapping DeadlineExceeded, got %v", err)
	}
}

func TestRetry_AttemptTimeoutIsRecoverable(t *testing.T) {
	p := RetryPolicy{
		MaxRetries:     2,
		BaseDelay:      time.Millisecond,
		AttemptTimeout: 10 * time.Millisecond,
	}

	callCount := 0
	result, err := Retry(context.Background(), p, func(ctx context.Context) (string, error) {
		callCount++
		if callCount == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("expected the timed-out attempt to be retried, got %v", err)
	}
	if result != "ok" || callCount != 2 {
		t.Errorf("expected ok after 2 calls, got %q after %d", result, callCount)
	}
}

func TestRetry_RetryIfOverride(t *testing.T) {
	plain := errors.New("plain")
	p := fastPolicy(2)
	p.RetryIf = func(err error) bool { return errors.Is(err, plain) }

	callCount := 0
	_, err := Retry(context.Background(), p, func(context.Context) (string, error) {
		callCount++
		return "", plain
	})

	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Errorf("expected ErrMaxRetriesExceeded, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var retries []int
	var delays []time.Duration
	var mu sync.Mutex

	p := fastPolicy(2)
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		mu.Lock()
		retries = append(retries, attempt)
		delays = append(delays, delay)
		mu.Unlock()
	}

	_, _ = Retry(context.Background(), p, func(context.Context) (string, error) {
		return "", errTransient
	})

	mu.Lock()
	defer mu.Unlock()

	// OnRetry is called before each retry, not before the first attempt.
	if len(retries) != 2 {
		t.Fatalf("expected 2 OnRetry calls, got %d", len(retries))
	}
	if retries[0] != 1 || retries[1] != 2 {
		t.Errorf("expected attempts [1, 2], got %v", retries)
	}
	if delays[0] != time.Millisecond || delays[1] != 2*time.Millisecond {
		t.Errorf("expected delays [1ms 2ms], got %v", delays)
	}
}

func TestRetryFunc(t *testing.T) {
	callCount := 0

	err := RetryFunc(context.Background(), fastPolicy(3), func(context.Context) error {
		callCount++
		if callCount < 2 {
			return errTransient
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if callCount != 2 {
		t.Errorf("expected 2 calls, got %d", callCount)
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  time.Second,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{6, time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

func TestRetryPolicy_DelayJitterRange(t *testing.T) {
	p := RetryPolicy{BaseDelay: 100 * time.Millisecond, JitterRatio: 0.5}

	for i := 0; i < 200; i++ {
		d := p.Delay(2)
		if d < 200*time.Millisecond || d >= 300*time.Millisecond {
			t.Fatalf("expected delay in [200ms, 300ms), got %v", d)
		}
	}
}
