package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Call outcomes recorded on client.calls and span status.
const (
	StatusOK          = "ok"
	StatusError       = "error"
	StatusCircuitOpen = "circuit_open"
	StatusExhausted   = "retries_exhausted"
	StatusCancelled   = "cancelled"
	StatusRejected    = "rejected"
)

// Operation tracks one resilient call from start to finish: its span, its
// request ID and the metrics recorded when it ends.
type Operation struct {
	Client    string
	RequestID string
	StartTime time.Time

	metrics  *Metrics
	span     trace.Span
	attempts int
}

// StartOperation opens a span for a call and returns the span's context.
// metrics may be nil.
func StartOperation(ctx context.Context, spanName, client, requestID string, metrics *Metrics) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, spanName, trace.WithAttributes(
		attribute.String(AttrClientName, client),
		attribute.String(AttrRequestID, requestID),
	))
	return ctx, &Operation{
		Client:    client,
		RequestID: requestID,
		StartTime: time.Now(),
		metrics:   metrics,
		span:      span,
	}
}

// Attempt notes that one more attempt of the underlying operation ran.
func (o *Operation) Attempt() {
	o.attempts++
}

// Attempts returns the number of attempts noted so far.
func (o *Operation) Attempts() int {
	return o.attempts
}

// End closes the span and records the call. errorCode is empty on success.
func (o *Operation) End(ctx context.Context, status, errorCode string, err error) {
	o.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int(AttrAttempts, o.attempts),
	)
	if errorCode != "" {
		o.span.SetAttributes(attribute.String(AttrErrorCode, errorCode))
	}
	SetSpanError(o.span, err)
	o.span.End()

	o.metrics.RecordCall(ctx, o.Client, status, o.Duration())
}

// Duration returns the elapsed time since the operation started.
func (o *Operation) Duration() time.Duration {
	return time.Since(o.StartTime)
}
