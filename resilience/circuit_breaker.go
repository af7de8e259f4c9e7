package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows a single trial request.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is matched by every rejection from an open breaker.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitOpenError is returned when the breaker rejects a call without
// running it.
type CircuitOpenError struct {
	// Name is the breaker that rejected the call.
	Name string
	// RetryAfter is how long until a trial call will be admitted. Zero while a
	// half-open trial is already in flight.
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open", e.Name)
}

// Is reports ErrCircuitOpen as a match.
func (e *CircuitOpenError) Is(target error) bool { return target == ErrCircuitOpen }

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this circuit breaker for metrics/logging.
	Name string `yaml:"name" mapstructure:"name"`
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold" validate:"gte=0"`
	// RecoveryTimeout is how long the circuit stays open before a trial call.
	RecoveryTimeout time.Duration `yaml:"recovery_timeout" mapstructure:"recovery_timeout" validate:"gte=0"`
	// IsFailure decides whether an error counts against the breaker.
	// Defaults to every error except context.Canceled.
	IsFailure func(error) bool `yaml:"-" mapstructure:"-"`
	// OnStateChange is called when state changes, with the breaker locked.
	OnStateChange func(name string, from, to State) `yaml:"-" mapstructure:"-"`
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
	}
}

func defaultIsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// CircuitBreaker implements the circuit breaker pattern.
// It prevents cascading failures by failing fast when a dependency is unhealthy.
//
// States:
//   - Closed: requests pass through, consecutive failures are counted
//   - Open: requests fail immediately with *CircuitOpenError
//   - Half-Open: one trial request decides between Closed and Open
//
// The Open to Half-Open transition is evaluated when a call arrives; there
// is no timer.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu              sync.Mutex
	state           State
	failures        int
	lastFailureTime time.Time
	trialInFlight   bool
	// generation changes on every transition so results of calls admitted
	// under an earlier state are discarded.
	generation uint64
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.IsFailure == nil {
		config.IsFailure = defaultIsFailure
	}

	return &CircuitBreaker{
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
}

// Execute runs fn through the circuit breaker. It returns *CircuitOpenError
// without calling fn when the circuit is open; otherwise fn's error.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	gen, err := cb.admit()
	if err != nil {
		return err
	}

	err = fn()
	cb.record(gen, err)
	return err
}

// Call runs a value-returning fn through the circuit breaker.
func Call[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var result T
	err := cb.Execute(func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// State returns the current circuit breaker state. An open breaker whose
// recovery timeout has elapsed reports half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState(cb.now())
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset forces the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.toState(StateClosed)
	cb.failures = 0
}

// admit decides whether a call may run and returns the generation it runs under.
func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	switch cb.currentState(now) {
	case StateClosed:
		return cb.generation, nil
	case StateHalfOpen:
		if cb.trialInFlight {
			return 0, &CircuitOpenError{Name: cb.config.Name}
		}
		cb.trialInFlight = true
		return cb.generation, nil
	default:
		return 0, &CircuitOpenError{
			Name:       cb.config.Name,
			RetryAfter: cb.lastFailureTime.Add(cb.config.RecoveryTimeout).Sub(now),
		}
	}
}

// record applies the outcome of a call admitted under generation gen.
func (cb *CircuitBreaker) record(gen uint64, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	state := cb.currentState(now)
	if gen != cb.generation {
		return
	}

	failed := err != nil && cb.config.IsFailure(err)
	if state == StateHalfOpen {
		cb.trialInFlight = false
		if err != nil && !failed {
			// Neither success nor failure; let the next call try again.
			return
		}
	}

	if failed {
		cb.onFailure(state, now)
	} else if err == nil {
		cb.onSuccess(state)
	}
}

func (cb *CircuitBreaker) onSuccess(state State) {
	switch state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.toState(StateClosed)
	}
}

func (cb *CircuitBreaker) onFailure(state State, now time.Time) {
	switch state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.lastFailureTime = now
			cb.toState(StateOpen)
		}
	case StateHalfOpen:
		cb.lastFailureTime = now
		cb.toState(StateOpen)
	}
}

// currentState returns the current state, handling the recovery timeout.
func (cb *CircuitBreaker) currentState(now time.Time) State {
	if cb.state == StateOpen && now.Sub(cb.lastFailureTime) >= cb.config.RecoveryTimeout {
		cb.toState(StateHalfOpen)
	}
	return cb.state
}

// toState transitions to a new state.
func (cb *CircuitBreaker) toState(to State) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to
	cb.generation++
	cb.trialInFlight = false
	if to == StateClosed {
		cb.failures = 0
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
