package resilience

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// recoverableError marks an arbitrary error as transient.
type recoverableError struct {
	err error
}

func (e *recoverableError) Error() string { return e.err.Error() }
func (e *recoverableError) Unwrap() error { return e.err }

// Recoverable wraps err so that IsRecoverable reports true for it. The wrapped
// error stays reachable through errors.Is and errors.As.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &recoverableError{err: err}
}

// retryable is satisfied by error types that know whether a retry can help,
// such as *errors.AppError.
type retryable interface {
	IsRetryable() bool
}

// IsRecoverable is the default retry classifier. Only transient
// network/timeout-class failures are recoverable:
//   - errors wrapped with Recoverable
//   - errors implementing IsRetryable() bool that return true
//   - context.DeadlineExceeded (a per-attempt deadline)
//   - net.Error timeouts
//   - connection reset/refused/aborted, broken pipe, unexpected EOF
//
// Everything else, including context.Canceled and ErrCircuitOpen, is not.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCircuitOpen) {
		return false
	}

	var marked *recoverableError
	if errors.As(err, &marked) {
		return true
	}
	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	return false
}
