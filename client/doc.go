// Package client combines the cache and the resilience primitives into a
// read-through client for an unreliable dependency.
//
//	cfg := client.DefaultConfig("users")
//	users, err := client.New[string, *User](cfg, client.WithMetrics(metrics))
//	if err != nil {
//	    return err
//	}
//
//	u, err := users.Get(ctx, id, func(ctx context.Context) (*User, error) {
//	    return api.FetchUser(ctx, id)
//	})
//
// Failures come back as *errors.AppError with codes CIRCUIT_OPEN,
// MAX_RETRIES_EXCEEDED, CANCELLED, TIMEOUT or SERVICE_UNAVAILABLE. The
// resilience sentinel stays in the chain, so errors.Is(err,
// resilience.ErrCircuitOpen) keeps working. An error the operation returns
// that is not worth retrying reaches the caller unchanged.
//
// A Client is a component.Component and can be registered with a
// component.Registry for startup, shutdown and health reporting.
package client
