package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	DefaultMaxSize = 1000
	DefaultTTL     = time.Minute
)

// Config controls capacity and freshness of an LRU.
type Config struct {
	MaxSize int
	TTL     time.Duration
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

type entry[V any] struct {
	value     V
	timestamp time.Time
}

// LRU is a bounded in-process cache. Entries older than TTL since their last
// Set are dropped lazily on read; when full the least recently used entry is
// evicted. A read hit refreshes recency but keeps the entry's age.
type LRU[K comparable, V any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items *simplelru.LRU[K, entry[V]]
}

func NewLRU[K comparable, V any](cfg Config) *LRU[K, V] {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	// NewLRU only fails for a non-positive size.
	items, _ := simplelru.NewLRU[K, entry[V]](cfg.MaxSize, nil)
	return &LRU[K, V]{
		ttl:   cfg.TTL,
		now:   cfg.Now,
		items: items,
	}
}

func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.timestamp) > c.ttl {
		c.items.Remove(key)
		return zero, false
	}
	return e.value, true
}

func (c *LRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Add(key, entry[V]{value: value, timestamp: c.now()})
}

func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Remove(key)
}

// Clear drops every entry.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Purge()
}

// Len counts entries, including expired ones not yet read.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}
