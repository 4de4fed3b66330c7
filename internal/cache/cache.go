package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Key under which the dashboard statistics are cached
const KeyDashboardStats = "dashboard:stats"

// Cache defines the caching operations used by the service
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	GetOrLoad(key string, load func() (V, error)) (V, error)
	Delete(key string)
	Clear()
}

// TTLCache implements Cache with a fixed time-to-live per entry
type TTLCache[V any] struct {
	data *gocache.Cache

	mu  sync.Mutex
	gen uint64 // bumped by Delete and Clear
}

// New creates a new TTL cache with default cleanup interval
func New[V any](ttl time.Duration) *TTLCache[V] {
	cleanupInterval := ttl * 2
	return &TTLCache[V]{
		data: gocache.New(ttl, cleanupInterval),
	}
}

// Get retrieves a value from the cache
func (c *TTLCache[V]) Get(key string) (V, bool) {
	v, ok := c.data.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Set stores a value with the default TTL
func (c *TTLCache[V]) Set(key string, value V) {
	c.data.SetDefault(key, value)
}

// GetOrLoad returns the cached value or stores the result of load.
// Load errors are returned as-is and nothing is cached. A Delete or Clear
// that happens while load runs discards its result instead of storing it.
func (c *TTLCache[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	v, err := load()
	if err != nil {
		return v, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.Set(key, v)
	}
	c.mu.Unlock()
	return v, nil
}

// Delete removes a value from the cache
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.data.Delete(key)
}

// Clear removes all values from the cache
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.data.Flush()
}
