// Package flight tracks in-flight upstream calls per cache key so concurrent
// misses for the same key collapse into one call. Unlike singleflight, a
// caller may claim several keys at once and settle them from a single batched
// upstream round-trip.
package flight

import (
	"context"
	"sync"
)

// Call is one in-flight fetch. It settles exactly once, with either a value
// or an error, and every waiter observes that same outcome.
type Call[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Wait blocks until the call settles or ctx is cancelled.
func (c *Call[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Group is the in-flight registry: at most one outstanding call per key.
type Group[V any] struct {
	mu    sync.Mutex
	calls map[string]*Call[V]
}

func NewGroup[V any]() *Group[V] {
	return &Group[V]{calls: make(map[string]*Call[V])}
}

// Claim registers intent to resolve keys. Keys with no outstanding call are
// returned in owned, in input order; the caller becomes their leader and must
// Settle each exactly once. Keys already in flight come back in joined for the
// caller to Wait on. The whole check-then-create sequence runs under one lock,
// so two racing callers can never both own the same key.
func (g *Group[V]) Claim(keys ...string) (owned []string, joined map[string]*Call[V]) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, k := range keys {
		if c, ok := g.calls[k]; ok {
			if joined == nil {
				joined = make(map[string]*Call[V])
			}
			joined[k] = c
			continue
		}
		g.calls[k] = &Call[V]{done: make(chan struct{})}
		owned = append(owned, k)
	}
	return owned, joined
}

// Settle resolves the call for key and removes it from the registry, so a
// later miss starts a fresh fetch. Settling an unknown key is a no-op.
func (g *Group[V]) Settle(key string, val V, err error) {
	g.mu.Lock()
	c, ok := g.calls[key]
	delete(g.calls, key)
	g.mu.Unlock()

	if !ok {
		return
	}
	c.val, c.err = val, err
	close(c.done)
}

// Len reports how many calls are currently outstanding.
func (g *Group[V]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}
