// Package cache provides a generic in-memory key/value cache with optional
// per-entry time-to-live.
//
// Expiration is lazy: an entry whose deadline has passed is treated as absent
// by every read and removed by that read. There is no background sweeper;
// callers that want to reclaim memory eagerly can call DeleteExpired.
//
//	c := cache.New[string, int]()
//	c.SetWithTTL("a", 42, 100*time.Millisecond)
//	v, ok := c.Get("a") // 42, true until the TTL elapses
//
// A cache created WithMaxEntries is bounded and evicts the least recently used
// entry when full.
package cache
