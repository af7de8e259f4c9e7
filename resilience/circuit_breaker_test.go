package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(threshold int, recovery time.Duration) (*CircuitBreaker, *manualClock) {
	clk := &manualClock{now: time.Unix(1_700_000_000, 0)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: threshold,
		RecoveryTimeout:  recovery,
	})
	cb.now = clk.Now
	return cb, clk
}

func fail() error { return errors.New("fail") }

func TestCircuitBreaker_StartsInClosedState(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
}

func TestCircuitBreaker_AllowsRequestsWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	var called bool
	err := cb.Execute(func() error {
		called = true
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !called {
		t.Error("function was not called")
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Second)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(fail)
	}

	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", cb.State())
	}

	err := cb.Execute(func() error {
		t.Error("function should not have been called")
		return nil
	})

	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	var openErr *CircuitOpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected *CircuitOpenError, got %T", err)
	}
	if openErr.Name != "test" || openErr.RetryAfter != time.Second {
		t.Errorf("unexpected rejection details %+v", openErr)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Second)

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	if cb.Failures() != 2 {
		t.Fatalf("expected 2 failures, got %d", cb.Failures())
	}

	_ = cb.Execute(func() error { return nil })
	if cb.Failures() != 0 {
		t.Errorf("expected success to reset failures, got %d", cb.Failures())
	}

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	if cb.State() != StateClosed {
		t.Errorf("expected non-consecutive failures to keep the circuit closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_TransitionsToHalfOpenAfterRecoveryTimeout(t *testing.T) {
	cb, clk := newTestBreaker(1, 50*time.Millisecond)

	_ = cb.Execute(fail)

	clk.Advance(49 * time.Millisecond)
	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen before the timeout, got %s", cb.State())
	}

	clk.Advance(time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Errorf("expected StateHalfOpen, got %s", cb.State())
	}
}

func TestCircuitBreaker_ClosesAfterSuccessfulTrial(t *testing.T) {
	cb, clk := newTestBreaker(1, 10*time.Millisecond)

	_ = cb.Execute(fail)
	clk.Advance(10 * time.Millisecond)

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})

	if err != nil || !called {
		t.Fatalf("expected trial call to run, err=%v called=%v", err, called)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
	if cb.Failures() != 0 {
		t.Errorf("expected failures reset, got %d", cb.Failures())
	}
}

func TestCircuitBreaker_ReopensOnFailedTrial(t *testing.T) {
	cb, clk := newTestBreaker(1, 10*time.Millisecond)

	_ = cb.Execute(fail)
	clk.Advance(10 * time.Millisecond)
	_ = cb.Execute(fail)

	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %s", cb.State())
	}

	// The recovery timeout restarts from the failed trial.
	clk.Advance(5 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected fast fail right after reopening, got %v", err)
	}
	clk.Advance(5 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Errorf("expected StateHalfOpen after a full timeout, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenAdmitsSingleTrial(t *testing.T) {
	cb, clk := newTestBreaker(1, 10*time.Millisecond)

	_ = cb.Execute(fail)
	clk.Advance(10 * time.Millisecond)

	inTrial := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(func() error {
			close(inTrial)
			<-release
			return nil
		})
	}()
	<-inTrial

	err := cb.Execute(func() error {
		t.Error("second call must not run during the trial")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen for concurrent trial, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("expected trial to succeed, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
}

func TestCircuitBreaker_IgnoresCancellation(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Second)

	_ = cb.Execute(func() error { return context.Canceled })

	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Errorf("expected cancellation not to count, state=%s failures=%d", cb.State(), cb.Failures())
	}
}

func TestCircuitBreaker_CustomIsFailure(t *testing.T) {
	notFound := errors.New("not found")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, notFound) },
	})

	_ = cb.Execute(func() error { return notFound })
	if cb.State() != StateClosed {
		t.Errorf("expected excluded error not to trip the breaker, got %s", cb.State())
	}
}

func TestCircuitBreaker_StaleResultIgnored(t *testing.T) {
	cb, clk := newTestBreaker(1, 10*time.Millisecond)

	inFlight := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = cb.Execute(func() error {
			close(inFlight)
			<-release
			return nil
		})
	}()
	<-inFlight

	// Trip the breaker while the slow call is still running.
	_ = cb.Execute(fail)
	clk.Advance(10 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected StateHalfOpen, got %s", cb.State())
	}

	close(release)
	<-done

	if cb.State() != StateHalfOpen {
		t.Errorf("expected a result admitted while closed not to close the breaker, got %s", cb.State())
	}
}

func TestCall_ReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	v, err := Call(cb, func() (int, error) { return 42, nil })
	if err != nil || v != 42 {
		t.Errorf("expected (42, nil), got (%d, %v)", v, err)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Hour)

	_ = cb.Execute(fail)
	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", cb.State())
	}

	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed after reset, got %s", cb.State())
	}
	if cb.Failures() != 0 {
		t.Errorf("expected 0 failures after reset, got %d", cb.Failures())
	}
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var stateChanges []struct{ from, to State }
	var mu sync.Mutex

	clk := &manualClock{now: time.Unix(0, 0)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		RecoveryTimeout:  10 * time.Millisecond,
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			stateChanges = append(stateChanges, struct{ from, to State }{from, to})
			mu.Unlock()
		},
	})
	cb.now = clk.Now

	_ = cb.Execute(fail)
	clk.Advance(10 * time.Millisecond)
	_ = cb.Execute(func() error { return nil })

	mu.Lock()
	defer mu.Unlock()

	want := []struct{ from, to State }{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	if len(stateChanges) != len(want) {
		t.Fatalf("expected %d state changes, got %v", len(want), stateChanges)
	}
	for i, w := range want {
		if stateChanges[i] != w {
			t.Errorf("change %d: expected %s->%s, got %s->%s", i, w.from, w.to, stateChanges[i].from, stateChanges[i].to)
		}
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Execute(func() error {
				return nil
			})
			_ = cb.State()
			_ = cb.Failures()
		}()
	}
	wg.Wait()

	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}
