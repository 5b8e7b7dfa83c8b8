// Package cache provides a generic in-memory key/value store with per-entry
// expiry. It knows nothing about cryptocurrency semantics; callers decide key
// construction and what a value means.
package cache

import (
	"sync"
	"time"

	"coinproxy/internal/metrics"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Store maps string keys to values of type V. An entry is valid strictly
// before its expiry instant; expired entries are treated as absent and
// removed lazily on access. All methods are safe for concurrent use.
type Store[V any] struct {
	name     string
	ttl      time.Duration
	maxItems int

	mu    sync.Mutex
	items map[string]entry[V]

	now func() time.Time
}

// New creates a store. name labels the store in metrics. A maxItems of 0
// means unbounded; otherwise Put prunes best-effort once the cap is exceeded.
func New[V any](name string, ttl time.Duration, maxItems int) *Store[V] {
	return &Store[V]{
		name:     name,
		ttl:      ttl,
		maxItems: maxItems,
		items:    make(map[string]entry[V]),
		now:      time.Now,
	}
}

// Get returns the value for key if present and not expired.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		metrics.CacheOps.WithLabelValues(s.name, "miss").Inc()
		return zero, false
	}
	if !now.Before(e.expiresAt) {
		delete(s.items, key)
		metrics.CacheOps.WithLabelValues(s.name, "expired").Inc()
		metrics.CacheSize.WithLabelValues(s.name).Set(float64(len(s.items)))
		return zero, false
	}
	metrics.CacheOps.WithLabelValues(s.name, "hit").Inc()
	return e.value, true
}

// Put inserts or overwrites key unconditionally using the store TTL.
func (s *Store[V]) Put(key string, value V) {
	s.PutTTL(key, value, s.ttl)
}

// PutTTL is Put with an explicit per-entry TTL.
func (s *Store[V]) PutTTL(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
	if s.maxItems > 0 && len(s.items) > s.maxItems {
		s.prune(now)
	}
	metrics.CacheSize.WithLabelValues(s.name).Set(float64(len(s.items)))
}

// Invalidate removes an entry immediately regardless of TTL.
func (s *Store[V]) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	metrics.CacheSize.WithLabelValues(s.name).Set(float64(len(s.items)))
}

// Len returns the number of resident entries, expired ones included.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// prune drops expired entries first, then arbitrary ones until under the cap.
// Caller holds s.mu.
func (s *Store[V]) prune(now time.Time) {
	for k, e := range s.items {
		if len(s.items) <= s.maxItems {
			return
		}
		if !now.Before(e.expiresAt) {
			delete(s.items, k)
			metrics.CacheOps.WithLabelValues(s.name, "expired").Inc()
		}
	}
	for k := range s.items {
		if len(s.items) <= s.maxItems {
			return
		}
		delete(s.items, k)
		metrics.CacheOps.WithLabelValues(s.name, "evicted").Inc()
	}
}
