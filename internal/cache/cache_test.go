package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetReturnsValueBeforeExpiry(t *testing.T) {
	t.Parallel()

	s := New[string]("test", time.Minute, 0)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Put("k", "v")

	// Strictly before storedAt+ttl the entry is valid.
	now = now.Add(time.Minute - time.Nanosecond)
	v, ok := s.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestGetReturnsAbsentAfterExpiry(t *testing.T) {
	t.Parallel()

	s := New[string]("test", time.Minute, 0)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Put("k", "v")

	// At exactly storedAt+ttl the entry is already expired.
	now = now.Add(time.Minute)
	_, ok := s.Get("k")
	require.False(t, ok)

	// Lazy removal: the expired entry is gone, not just hidden.
	require.Equal(t, 0, s.Len())
}

func TestGetAbsentKey(t *testing.T) {
	t.Parallel()

	s := New[int]("test", time.Minute, 0)
	_, ok := s.Get("nope")
	require.False(t, ok)
}

func TestPutOverwritesUnconditionally(t *testing.T) {
	t.Parallel()

	s := New[int]("test", time.Minute, 0)
	s.Put("k", 1)
	s.Put("k", 2)

	v, ok := s.Get("k")
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestPutTTLOverridesStoreTTL(t *testing.T) {
	t.Parallel()

	s := New[string]("test", time.Hour, 0)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.PutTTL("k", "v", time.Second)

	now = now.Add(2 * time.Second)
	_, ok := s.Get("k")
	require.False(t, ok)
}

func TestInvalidateRemovesImmediately(t *testing.T) {
	t.Parallel()

	s := New[string]("test", time.Hour, 0)
	s.Put("k", "v")
	s.Invalidate("k")

	_, ok := s.Get("k")
	require.False(t, ok)
}

func TestPruneDropsExpiredFirst(t *testing.T) {
	t.Parallel()

	s := New[int]("test", time.Minute, 2)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Put("a", 1)
	s.Put("b", 2)

	// a and b expire; the next Put exceeds the cap and prunes them.
	now = now.Add(2 * time.Minute)
	s.Put("c", 3)
	s.Put("d", 4)

	_, okC := s.Get("c")
	_, okD := s.Get("d")
	require.True(t, okC)
	require.True(t, okD)
	require.LessOrEqual(t, s.Len(), 2)
}

func TestZeroTTLStoresNothing(t *testing.T) {
	t.Parallel()

	s := New[string]("test", 0, 0)
	s.Put("k", "v")
	require.Equal(t, 0, s.Len())
}
