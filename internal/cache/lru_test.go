package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type evicted struct {
	key    string
	reason EvictReason
}

func TestLRUCacheExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	var got []evicted
	c := NewLRUCache[string](10, 5*time.Second,
		WithClock[string](clock.Now),
		WithEvictionCallback(func(key string, _ string, reason EvictReason) {
			got = append(got, evicted{key, reason})
		}))

	c.Set("a", "1")
	clock.Advance(3 * time.Second)
	c.Set("b", "2")

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	clock.Advance(3 * time.Second)
	assert.Equal(t, []string{"b"}, c.Keys())
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 1, c.Size())
	assert.Equal(t, []evicted{{"a", Expired}}, got)

	clock.Advance(5 * time.Second)
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, evicted{"b", Expired}, got[1])
}

func TestLRUCacheReplaceRefreshesTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	var reasons []EvictReason
	c := NewLRUCache[int](10, 5*time.Second,
		WithClock[int](clock.Now),
		WithEvictionCallback(func(_ string, _ int, r EvictReason) { reasons = append(reasons, r) }))

	c.Set("k", 1)
	clock.Advance(4 * time.Second)
	c.Set("k", 2)
	clock.Advance(4 * time.Second)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, []EvictReason{Replaced}, reasons)
}

func TestLRUCacheCapacityAndDelete(t *testing.T) {
	var got []evicted
	c := NewLRUCache[int](2, time.Minute,
		WithEvictionCallback(func(key string, _ int, r EvictReason) { got = append(got, evicted{key, r}) }))

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, []evicted{{"b", Evicted}, {"a", Deleted}}, got)
	assert.Equal(t, "deleted", Deleted.String())
}

func TestManagerSweepsRegisteredCaches(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Second, WithClock[int](clock.Now))
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager(nil)
	m.Register(c)
	clock.Advance(2 * time.Second)
	assert.Equal(t, 2, m.Sweep())

	m.StartCleanup(time.Millisecond)
	m.StartCleanup(time.Millisecond)
	c.Set("c", 3)
	clock.Advance(2 * time.Second)
	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()
}
