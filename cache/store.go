package cache

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// store is the backing map. Implementations are not safe for concurrent use;
// Cache serializes access.
type store[K comparable, V any] interface {
	get(key K) (entry[V], bool)
	peek(key K) (entry[V], bool)
	add(key K, e entry[V])
	remove(key K)
	keys() []K
	len() int
	purge()
}

type mapStore[K comparable, V any] struct {
	m map[K]entry[V]
}

func newMapStore[K comparable, V any]() *mapStore[K, V] {
	return &mapStore[K, V]{m: make(map[K]entry[V])}
}

func (s *mapStore[K, V]) get(key K) (entry[V], bool)  { e, ok := s.m[key]; return e, ok }
func (s *mapStore[K, V]) peek(key K) (entry[V], bool) { e, ok := s.m[key]; return e, ok }
func (s *mapStore[K, V]) add(key K, e entry[V])       { s.m[key] = e }
func (s *mapStore[K, V]) remove(key K)                { delete(s.m, key) }
func (s *mapStore[K, V]) len() int                    { return len(s.m) }
func (s *mapStore[K, V]) purge()                      { clear(s.m) }

func (s *mapStore[K, V]) keys() []K {
	out := make([]K, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	return out
}

// lruStore bounds the number of entries. onCapacity fires only for entries
// pushed out by Add; explicit removals are filtered out.
type lruStore[K comparable, V any] struct {
	lru        *simplelru.LRU[K, entry[V]]
	explicit   bool
	onCapacity func(K, entry[V])
}

func newLRUStore[K comparable, V any](size int, onCapacity func(K, entry[V])) (*lruStore[K, V], error) {
	s := &lruStore[K, V]{onCapacity: onCapacity}
	l, err := simplelru.NewLRU[K, entry[V]](size, func(key K, e entry[V]) {
		if s.explicit || s.onCapacity == nil {
			return
		}
		s.onCapacity(key, e)
	})
	if err != nil {
		return nil, err
	}
	s.lru = l
	return s, nil
}

func (s *lruStore[K, V]) get(key K) (entry[V], bool)  { return s.lru.Get(key) }
func (s *lruStore[K, V]) peek(key K) (entry[V], bool) { return s.lru.Peek(key) }
func (s *lruStore[K, V]) add(key K, e entry[V])       { s.lru.Add(key, e) }
func (s *lruStore[K, V]) keys() []K                   { return s.lru.Keys() }
func (s *lruStore[K, V]) len() int                    { return s.lru.Len() }

func (s *lruStore[K, V]) remove(key K) {
	s.explicit = true
	s.lru.Remove(key)
	s.explicit = false
}

func (s *lruStore[K, V]) purge() {
	s.explicit = true
	s.lru.Purge()
	s.explicit = false
}
