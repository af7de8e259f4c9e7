// Package errors provides the structured error type returned by cachekit.
// Every AppError carries a machine-readable code, a retryable flag used by the
// default retry classifier, and an optional cause that stays reachable through
// errors.Is and errors.As.
package errors
