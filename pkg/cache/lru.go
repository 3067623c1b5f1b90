// Package cache provides an in-memory TTL cache with size-bounded eviction
// and HTTP middleware, used to cache the aggregate risk report endpoints.
// Reports scan every incident, change request, and binding on each request;
// a short TTL keeps them cheap without making them stale enough to matter.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	body     []byte
	expires  time.Time
	inserted time.Time
}

// LRUCache is a thread-safe byte cache with a TTL and a maximum entry count.
// At capacity the oldest entry by insertion time is evicted; expired entries
// are dropped lazily on Get.
type LRUCache struct {
	mu      sync.RWMutex
	items   map[string]*entry
	maxSize int
	ttl     time.Duration
}

// NewLRUCache creates a cache holding at most maxSize entries for ttl each.
// Non-positive arguments fall back to 1 entry and 60 seconds.
func NewLRUCache(maxSize int, ttl time.Duration) *LRUCache {
	if maxSize < 1 {
		maxSize = 1
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &LRUCache{
		items:   make(map[string]*entry, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the cached value for key, or (nil, false) when the key is
// missing or its TTL has passed.
func (c *LRUCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.items, key)
		return nil, false
	}
	return e.body, true
}

// Set stores value under key, evicting the oldest entry first when the cache
// is full. Updating an existing key resets its TTL.
func (c *LRUCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxSize {
		c.evictOldest()
	}

	now := time.Now()
	c.items[key] = &entry{
		body:     value,
		expires:  now.Add(c.ttl),
		inserted: now,
	}
}

// Invalidate drops one key.
func (c *LRUCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// InvalidateAll drops every entry.
func (c *LRUCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry, c.maxSize)
}

// Size returns the current entry count, including entries whose TTL has
// passed but which have not been touched since.
func (c *LRUCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictOldest removes the entry with the earliest insertion time. Caller
// holds c.mu.
func (c *LRUCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.items {
		if oldestKey == "" || e.inserted.Before(oldest) {
			oldestKey = k
			oldest = e.inserted
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
