// Package component defines lifecycle management for the long-lived parts of
// a cachekit process.
//
// Components are registered with a Registry, started in registration order,
// stopped in reverse order and polled for health. Overall folds the
// per-component results into a single status: any unhealthy component makes
// the whole unhealthy, otherwise any degraded one makes it degraded.
package component
