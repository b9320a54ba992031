// Package runcache provides the in-process TTL caches shared by the
// matrix builder and the signal computer. Instances are owned by the
// orchestration layer and injected; there are no package singletons.
package runcache

import (
	"sync"
	"time"
)

// entry wraps a cached value with its insertion time.
type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// Cache is a mutex-protected TTL map with insertion-order eviction once
// the item cap is exceeded. Writes are last-writer-wins.
type Cache[V any] struct {
	mu       sync.Mutex
	items    map[string]entry[V]
	order    []string // insertion order, oldest first
	ttl      time.Duration
	maxItems int

	// clock is overridable in tests.
	clock func() time.Time
}

// New creates a cache with the given TTL and item cap.
func New[V any](ttl time.Duration, maxItems int) *Cache[V] {
	return &Cache[V]{
		items:    make(map[string]entry[V]),
		ttl:      ttl,
		maxItems: maxItems,
		clock:    time.Now,
	}
}

// Get returns the cached value if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}

	if c.clock().Sub(e.insertedAt) > c.ttl {
		delete(c.items, key)
		c.removeFromOrder(key)
		return zero, false
	}

	return e.value, true
}

// Set stores a value, evicting the oldest entries above the item cap.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		c.removeFromOrder(key)
	}

	c.items[key] = entry[V]{value: value, insertedAt: c.clock()}
	c.order = append(c.order, key)

	for len(c.items) > c.maxItems {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]entry[V])
	c.order = nil
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

func (c *Cache[V]) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// SetClock overrides the time source. Tests only.
func (c *Cache[V]) SetClock(fn func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = fn
}
