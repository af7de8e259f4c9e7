package client

import (
	"strconv"
	"sync"
)

// flight is one coalesced load. id is its singleflight key.
type flight struct {
	id    string
	refs  int
	stale bool
}

// flights assigns singleflight keys to cache keys. Keys are matched with ==,
// so only equal keys share a load; ids are never reused.
type flights[K comparable] struct {
	mu   sync.Mutex
	next uint64
	m    map[K]*flight
}

func newFlights[K comparable]() *flights[K] {
	return &flights[K]{m: make(map[K]*flight)}
}

// acquire joins the load in flight for key or registers a new one.
func (f *flights[K]) acquire(key K) *flight {
	f.mu.Lock()
	defer f.mu.Unlock()

	if fl, ok := f.m[key]; ok {
		fl.refs++
		return fl
	}
	f.next++
	fl := &flight{id: strconv.FormatUint(f.next, 10), refs: 1}
	f.m[key] = fl
	return fl
}

// release leaves fl. The last caller out unregisters it.
func (f *flights[K]) release(key K, fl *flight) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fl.refs--
	if fl.refs == 0 && f.m[key] == fl {
		delete(f.m, key)
	}
}

// settle runs store unless fl was detached. It is atomic with detach, so a
// load that finishes after an invalidation never writes its result.
func (f *flights[K]) settle(fl *flight, store func()) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if fl.stale {
		return false
	}
	store()
	return true
}

// detach marks the load for key stale and runs drop under the same lock.
// It returns the singleflight key of the detached load, if any.
func (f *flights[K]) detach(key K, drop func()) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	drop()
	fl, ok := f.m[key]
	if !ok {
		return "", false
	}
	fl.stale = true
	delete(f.m, key)
	return fl.id, true
}

// detachAll is detach for every key.
func (f *flights[K]) detachAll(drop func()) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	drop()
	ids := make([]string, 0, len(f.m))
	for key, fl := range f.m {
		fl.stale = true
		ids = append(ids, fl.id)
		delete(f.m, key)
	}
	return ids
}
