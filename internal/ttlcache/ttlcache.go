// Package ttlcache provides a single-value expiring cache: a value, the
// time it was fetched, and a ttl. The process inventory and the
// visible-window set both reuse it.
package ttlcache

import (
	"sync"
	"time"
)

// Cache holds one value of type T that expires ttl after it was stored.
type Cache[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	value   T
	fetched time.Time
	has     bool

	// now is swappable for tests.
	now func() time.Time
}

func New[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{ttl: ttl, now: time.Now}
}

// Get returns the cached value if it is still fresh.
func (c *Cache[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fresh() {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Put stores a value and restarts its ttl window.
func (c *Cache[T]) Put(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.fetched = c.now()
	c.has = true
}

// Invalidate drops the cached value immediately.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value = zero
	c.has = false
}

// GetOrFill returns the fresh cached value, or calls fill and caches the
// result. A fill error leaves the cache empty.
func (c *Cache[T]) GetOrFill(fill func() (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fresh() {
		return c.value, nil
	}
	v, err := fill()
	if err != nil {
		var zero T
		return zero, err
	}
	c.value = v
	c.fetched = c.now()
	c.has = true
	return v, nil
}

func (c *Cache[T]) fresh() bool {
	return c.has && c.now().Sub(c.fetched) < c.ttl
}

// SetClock overrides the cache clock. Tests only.
func (c *Cache[T]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
