package cache

import (
	"sync"
	"time"
)

// Option configures a Cache.
type Option func(*settings)

type settings struct {
	now        func() time.Time
	maxEntries int
}

// WithClock replaces time.Now as the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithMaxEntries bounds the cache. When full, Set evicts the least recently
// used entry. n <= 0 means unbounded.
func WithMaxEntries(n int) Option {
	return func(s *settings) { s.maxEntries = n }
}

// Cache is a generic TTL-aware key/value store. It is safe for concurrent use;
// a single mutex guards every operation.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	store   store[K, V]
	now     func() time.Time
	onEvict func(K, V)

	maxEntries int
	// nextExpiry is no later than the earliest expiresAt in the store; zero
	// when no entry has a TTL.
	nextExpiry time.Time

	hits        uint64
	misses      uint64
	expirations uint64
	evictions   uint64
}

// New creates an empty cache.
func New[K comparable, V any](opts ...Option) *Cache[K, V] {
	return NewWithEvict[K, V](nil, opts...)
}

// NewWithEvict creates an empty cache that calls onEvict whenever an entry
// leaves the cache by expiring or by being pushed out of a bounded cache.
// Delete and Clear do not trigger it. onEvict runs with the cache locked and
// must not call back into the cache.
func NewWithEvict[K comparable, V any](onEvict func(K, V), opts ...Option) *Cache[K, V] {
	s := settings{now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	if s.now == nil {
		s.now = time.Now
	}

	c := &Cache[K, V]{now: s.now, onEvict: onEvict, maxEntries: s.maxEntries}
	if s.maxEntries > 0 {
		// NewLRU only fails for a non-positive size.
		st, _ := newLRUStore[K, V](s.maxEntries, c.evicted)
		c.store = st
	} else {
		c.store = newMapStore[K, V]()
	}
	return c
}

// Set stores value under key with no expiry, replacing any existing entry.
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key, replacing any existing entry. The entry
// expires ttl from now; ttl <= 0 means it never expires. A full bounded cache
// drops expired entries before it evicts a live one.
func (c *Cache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.maxEntries > 0 && c.store.len() >= c.maxEntries && c.mayHaveExpired(now) {
		if _, ok := c.store.peek(key); !ok {
			c.sweep()
		}
	}

	e := entry[V]{value: value}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
		if c.nextExpiry.IsZero() || e.expiresAt.Before(c.nextExpiry) {
			c.nextExpiry = e.expiresAt
		}
	}
	c.store.add(key, e)
}

// Get returns the value for key. An expired entry is removed and reported
// as absent.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.store.get(key)
	if !ok {
		c.misses++
		return zero, false
	}
	if e.expired(c.now()) {
		c.expire(key, e)
		c.misses++
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Has reports whether key holds a live entry. It does not count as a hit or
// miss and does not refresh LRU recency.
func (c *Cache[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store.peek(key)
	if !ok {
		return false
	}
	if e.expired(c.now()) {
		c.expire(key, e)
		return false
	}
	return true
}

// Delete removes key. Deleting an absent key is a no-op.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.remove(key)
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.purge()
	c.nextExpiry = time.Time{}
}

// Size returns the number of live entries. Expired entries found along the
// way are purged and never counted.
func (c *Cache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweep()
}

// Keys returns the keys of all live entries in no particular order.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := c.store.keys()
	live := keys[:0]
	for _, k := range keys {
		e, ok := c.store.peek(k)
		if !ok {
			continue
		}
		if e.expired(now) {
			c.expire(k, e)
			continue
		}
		live = append(live, k)
	}
	return live
}

// DeleteExpired removes every expired entry and returns how many were removed.
func (c *Cache[K, V]) DeleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.store.len()
	live := c.sweep()
	return before - live
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Expirations: c.expirations,
		Evictions:   c.evictions,
		Size:        c.sweep(),
	}
}

// sweep purges expired entries and returns the live count. Caller holds mu.
func (c *Cache[K, V]) sweep() int {
	now := c.now()
	live := 0
	var next time.Time
	for _, k := range c.store.keys() {
		e, ok := c.store.peek(k)
		if !ok {
			continue
		}
		if e.expired(now) {
			c.expire(k, e)
			continue
		}
		live++
		if !e.expiresAt.IsZero() && (next.IsZero() || e.expiresAt.Before(next)) {
			next = e.expiresAt
		}
	}
	c.nextExpiry = next
	return live
}

// mayHaveExpired reports whether some entry could be past its deadline.
// Caller holds mu.
func (c *Cache[K, V]) mayHaveExpired(now time.Time) bool {
	return !c.nextExpiry.IsZero() && !now.Before(c.nextExpiry)
}

// expire drops an expired entry. Caller holds mu.
func (c *Cache[K, V]) expire(key K, e entry[V]) {
	c.store.remove(key)
	c.expirations++
	if c.onEvict != nil {
		c.onEvict(key, e.value)
	}
}

// evicted is the capacity-eviction hook of the bounded store. Caller holds mu.
func (c *Cache[K, V]) evicted(key K, e entry[V]) {
	c.evictions++
	if c.onEvict != nil {
		c.onEvict(key, e.value)
	}
}
