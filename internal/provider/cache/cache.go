package cache

import (
	"context"
	"sync"
	"time"
)

// entry stores one cached value with its insertion time.
type entry[V any] struct {
	value      V
	insertedAt time.Time
	ttl        time.Duration
}

func (e entry[V]) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) > e.ttl
}

type options struct {
	now      func() time.Time
	maxItems int
}

// Option configures a Cache.
type Option func(*options)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMaxItems bounds the number of entries. Expired entries are dropped
// first, then the oldest ones.
func WithMaxItems(n int) Option {
	return func(o *options) { o.maxItems = n }
}

// Cache is a TTL map safe for concurrent use. Entries expire lazily on read;
// Run adds a periodic sweep to bound memory.
type Cache[V any] struct {
	ttl time.Duration
	opt options

	mu    sync.Mutex
	items map[string]entry[V]
}

func New[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return &Cache[V]{ttl: ttl, opt: o, items: make(map[string]entry[V])}
}

// TTL is the default time-to-live of new entries.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if e.expired(c.opt.now()) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) Set(key string, v V) { c.SetWithTTL(key, v, c.ttl) }

func (c *Cache[V]) SetWithTTL(key string, v V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := c.opt.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: v, insertedAt: now, ttl: ttl}
	if c.opt.maxItems > 0 && len(c.items) > c.opt.maxItems {
		c.evictLocked(now)
	}
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// DeleteFunc removes every entry whose key matches and reports how many.
func (c *Cache[V]) DeleteFunc(match func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.items {
		if match(k) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// Len counts stored entries, including expired ones not yet swept.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Prune removes expired entries and reports how many were dropped.
func (c *Cache[V]) Prune() int {
	now := c.opt.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pruneLocked(now)
}

func (c *Cache[V]) pruneLocked(now time.Time) int {
	n := 0
	for k, e := range c.items {
		if e.expired(now) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

func (c *Cache[V]) evictLocked(now time.Time) {
	c.pruneLocked(now)
	for len(c.items) > c.opt.maxItems {
		var oldestKey string
		var oldest time.Time
		first := true
		for k, e := range c.items {
			if first || e.insertedAt.Before(oldest) {
				oldestKey, oldest, first = k, e.insertedAt, false
			}
		}
		delete(c.items, oldestKey)
	}
}

// Run sweeps expired entries every interval until ctx is done.
func (c *Cache[V]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Prune()
		}
	}
}
