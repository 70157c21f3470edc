package cache

import (
	"container/list"
	"sync"
	"time"
)

// EvictReason tells an eviction callback why an entry left the cache.
type EvictReason int

const (
	Expired EvictReason = iota
	Evicted             // capacity
	Deleted
	Replaced
)

func (r EvictReason) String() string {
	switch r {
	case Expired:
		return "expired"
	case Evicted:
		return "evicted"
	case Deleted:
		return "deleted"
	case Replaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// LRU cache with TTL and size-based eviction
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time
	onEvict func(key string, data T, reason EvictReason)
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

type eviction[T any] struct {
	key    string
	data   T
	reason EvictReason
}

type Option[T any] func(*LRUCache[T])

// WithClock replaces time.Now. Intended for tests.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *LRUCache[T]) { c.now = now }
}

// WithEvictionCallback registers fn for every entry that leaves the cache.
// fn runs after the cache lock is released.
func WithEvictionCallback[T any](fn func(key string, data T, reason EvictReason)) Option[T] {
	return func(c *LRUCache[T]) { c.onEvict = fn }
}

// NewLRUCache creates a new LRU cache with TTL
func NewLRUCache[T any](maxSize int, ttl time.Duration, opts ...Option[T]) *LRUCache[T] {
	c := &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a live value and marks it most recently used.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	var zero T
	var gone []eviction[T]
	defer func() { c.notify(gone) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}

	item := elem.Value.(*cacheItem[T])
	if c.now().After(item.expiresAt) {
		gone = append(gone, c.removeElement(elem, Expired))
		return zero, false
	}

	c.lru.MoveToFront(elem)
	return item.data, true
}

// Set stores data under key with a fresh TTL. An existing entry for key is
// replaced and reported to the eviction callback as Replaced.
func (c *LRUCache[T]) Set(key string, data T) {
	var gone []eviction[T]
	defer func() { c.notify(gone) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[T]{
		key:       key,
		data:      data,
		expiresAt: c.now().Add(c.ttl),
	}

	if elem, exists := c.items[key]; exists {
		old := elem.Value.(*cacheItem[T])
		gone = append(gone, eviction[T]{key: key, data: old.data, reason: Replaced})
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	if c.maxSize > 0 && c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			gone = append(gone, c.removeElement(oldest, Evicted))
		}
	}
}

// Delete removes key and reports whether it was present.
func (c *LRUCache[T]) Delete(key string) bool {
	var gone []eviction[T]
	defer func() { c.notify(gone) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		return false
	}
	gone = append(gone, c.removeElement(elem, Deleted))
	return true
}

// CleanExpired removes all expired entries and returns count of removed items
func (c *LRUCache[T]) CleanExpired() int {
	var gone []eviction[T]
	defer func() { c.notify(gone) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*cacheItem[T]).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		gone = append(gone, c.removeElement(elem, Expired))
	}
	return len(toRemove)
}

// Keys lists live keys, most recently used first.
func (c *LRUCache[T]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := make([]string, 0, len(c.items))
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		item := elem.Value.(*cacheItem[T])
		if !now.After(item.expiresAt) {
			keys = append(keys, item.key)
		}
	}
	return keys
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// removeElement must be called with c.mu held.
func (c *LRUCache[T]) removeElement(elem *list.Element, reason EvictReason) eviction[T] {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
	return eviction[T]{key: item.key, data: item.data, reason: reason}
}

func (c *LRUCache[T]) notify(gone []eviction[T]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range gone {
		c.onEvict(e.key, e.data, e.reason)
	}
}
