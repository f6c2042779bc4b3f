package cache

import (
	"sync"
	"time"
)

type item[V any] struct {
	value    V
	storedAt time.Time
}

// Store is a mutex-guarded map with a fixed TTL. An entry older than the TTL
// is treated as absent, never served best-effort. All mutation goes through
// the single mutex; the lock is never held across I/O.
type Store[K comparable, V any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[K]item[V]
}

func NewStore[K comparable, V any](ttl time.Duration) *Store[K, V] {
	return NewStoreWithClock[K, V](ttl, time.Now)
}

// NewStoreWithClock creates a store with an injectable clock, so TTL
// behavior is testable without sleeping.
func NewStoreWithClock[K comparable, V any](ttl time.Duration, now func() time.Time) *Store[K, V] {
	return &Store[K, V]{
		ttl:   ttl,
		now:   now,
		items: make(map[K]item[V]),
	}
}

// Get returns the value for key if present and fresh. Stale entries are
// removed on the way out.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	it, ok := s.items[key]
	if !ok {
		return zero, false
	}
	if s.now().Sub(it.storedAt) >= s.ttl {
		delete(s.items, key)
		return zero, false
	}
	return it.value, true
}

func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = item[V]{value: value, storedAt: s.now()}
}

func (s *Store[K, V]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

func (s *Store[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[K]item[V])
}

func (s *Store[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
