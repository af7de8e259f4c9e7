package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldRequestID = "request_id"
	FieldOperation = "operation"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldDuration  = "duration_ms"

	FieldKey       = "key"
	FieldAttempt   = "attempt"
	FieldDelay     = "delay_ms"
	FieldBreaker   = "breaker"
	FieldFromState = "from_state"
	FieldToState   = "to_state"
	FieldPending   = "pending"
	FieldLimiter   = "limiter"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Info("loaded", logger.Fields("key", k, "attempt", 2))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}

// RetryFields describes a scheduled retry.
func RetryFields(attempt int, delay time.Duration, err error) map[string]interface{} {
	m := map[string]interface{}{
		FieldAttempt: attempt,
		FieldDelay:   delay.Milliseconds(),
	}
	if err != nil {
		m[FieldError] = err.Error()
	}
	return m
}

// TransitionFields describes a circuit breaker state change.
func TransitionFields(breaker, from, to string) map[string]interface{} {
	return map[string]interface{}{
		FieldBreaker:   breaker,
		FieldFromState: from,
		FieldToState:   to,
	}
}
