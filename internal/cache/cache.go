// Package cache is the process-wide L1 cache. Entries expire lazily on read
// and are swept periodically until Close.
package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultTTL      = 30 * time.Minute
	cleanupInterval = 5 * time.Minute
)

type Cache struct {
	items      *gocache.Cache
	defaultTTL time.Duration

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a cache and starts its sweeper. ttl <= 0 selects DefaultTTL.
// Callers own the cache and must Close it.
func New(ttl time.Duration) *Cache {
	return newCache(ttl, cleanupInterval)
}

func newCache(ttl, sweep time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		// go-cache's own janitor cannot be stopped, so sweeping runs here
		items:      gocache.New(ttl, 0),
		defaultTTL: ttl,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go c.sweep(sweep)
	return c
}

func (c *Cache) sweep(every time.Duration) {
	defer close(c.done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.items.DeleteExpired()
		case <-c.stop:
			return
		}
	}
}

// Close stops the sweeper and waits for it. Entries stay readable; expired
// ones are still hidden on read. Close is idempotent.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
	<-c.done
}

// Set stores value under key. A nil value is ignored, so absence is never
// cached. The optional ttl overrides the default.
func (c *Cache) Set(key string, value any, ttl ...time.Duration) {
	if value == nil {
		return
	}
	d := c.defaultTTL
	if len(ttl) > 0 && ttl[0] > 0 {
		d = ttl[0]
	}
	c.items.Set(key, value, d)
}

func (c *Cache) Remove(key string) {
	c.items.Delete(key)
}

func (c *Cache) Exists(key string) bool {
	_, ok := c.items.Get(key)
	return ok
}

// Len includes entries that have expired but not yet been swept.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

// Flush drops every entry.
func (c *Cache) Flush() {
	c.items.Flush()
}

func (c *Cache) raw(key string) (any, bool) {
	return c.items.Get(key)
}

// Get returns the value under key if present, unexpired and of type T.
func Get[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.raw(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
