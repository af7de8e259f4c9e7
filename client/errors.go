package client

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/cachekit/errors"
	"github.com/kbukum/cachekit/observability"
	"github.com/kbukum/cachekit/resilience"
)

// translate maps a resilience outcome onto an AppError and a call status.
// The resilience error stays in the cause chain. Errors produced by the
// operation itself are returned unchanged.
func (c *Client[K, V]) translate(ctx context.Context, err error) (string, error) {
	if err == nil {
		return observability.StatusOK, nil
	}

	var (
		open      *resilience.CircuitOpenError
		exhausted *resilience.RetryError
	)
	switch {
	case stderrors.As(err, &open):
		return observability.StatusCircuitOpen, errors.CircuitOpen(open.Name, open.RetryAfter).WithCause(err)
	case stderrors.Is(err, resilience.ErrCancelled) || (ctx.Err() != nil && stderrors.Is(err, ctx.Err())):
		if !stderrors.Is(err, resilience.ErrCancelled) {
			err = resilience.Cancellation(err)
		}
		if stderrors.Is(err, context.DeadlineExceeded) {
			return observability.StatusCancelled, errors.Timeout(c.name).WithCause(err)
		}
		return observability.StatusCancelled, errors.Cancelled(c.name, err)
	case stderrors.As(err, &exhausted):
		return observability.StatusExhausted, errors.MaxRetriesExceeded(exhausted.Attempts, err)
	case stderrors.Is(err, resilience.ErrBulkheadFull), stderrors.Is(err, resilience.ErrBulkheadTimeout):
		return observability.StatusRejected, errors.ServiceUnavailable(c.name).WithCause(err)
	default:
		return observability.StatusError, err
	}
}

// isCancellation reports whether err came from a caller giving up rather
// than from the dependency.
func isCancellation(err error) bool {
	return stderrors.Is(err, resilience.ErrCancelled)
}

func errorCode(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return string(appErr.Code)
	}
	return ""
}

func errStopped(name string) error {
	return errors.ServiceUnavailable(name).WithDetail("reason", "client stopped")
}
