package cache

import (
	"sort"
	"sync"
	"time"
)

// entry represents a cached value
type entry[V any] struct {
	value      V
	expiresAt  time.Time
	accessedAt time.Time
}

// Config holds configuration for a Cache
type Config struct {
	TTL             time.Duration `yaml:"ttl"`              // How long entries stay valid
	MaxEntries      int           `yaml:"max_entries"`      // Maximum number of entries before eviction
	CleanupInterval time.Duration `yaml:"cleanup_interval"` // How often to run cleanup, 0 disables the background loop
}

// DefaultConfig provides sensible defaults
var DefaultConfig = Config{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// Cache is a TTL cache with least-recently-accessed eviction. It is safe for
// concurrent use.
type Cache[K comparable, V any] struct {
	entries     map[K]*entry[V]
	mutex       sync.Mutex
	ttl         time.Duration
	maxEntries  int
	stopCleanup chan struct{}
	closeOnce   sync.Once
	now         func() time.Time
}

// New creates a cache with the given configuration and starts its cleanup loop
func New[K comparable, V any](config Config) *Cache[K, V] {
	c := &Cache[K, V]{
		entries:     make(map[K]*entry[V]),
		ttl:         config.TTL,
		maxEntries:  config.MaxEntries,
		stopCleanup: make(chan struct{}),
		now:         time.Now,
	}

	if config.CleanupInterval > 0 {
		go c.cleanupLoop(config.CleanupInterval)
	}

	return c
}

// Get retrieves a value if it exists and hasn't expired
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	now := c.now()
	if c.ttl > 0 && now.After(e.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}

	e.accessedAt = now
	return e.value, true
}

// Set stores a value
func (c *Cache[K, V]) Set(key K, value V) {
	now := c.now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &entry[V]{
		value:      value,
		expiresAt:  now.Add(c.ttl),
		accessedAt: now,
	}

	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// cleanup removes expired entries and then the least recently accessed ones
// until the cache fits. Callers hold the mutex.
func (c *Cache[K, V]) cleanup() {
	now := c.now()

	if c.ttl > 0 {
		for key, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, key)
			}
		}
	}

	if c.maxEntries <= 0 || len(c.entries) <= c.maxEntries {
		return
	}

	type keyAccess struct {
		key        K
		accessedAt time.Time
	}
	list := make([]keyAccess, 0, len(c.entries))
	for key, e := range c.entries {
		list = append(list, keyAccess{key: key, accessedAt: e.accessedAt})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].accessedAt.Before(list[j].accessedAt)
	})

	toRemove := len(c.entries) - c.maxEntries
	for i := 0; i < toRemove; i++ {
		delete(c.entries, list[i].key)
	}
}

func (c *Cache[K, V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache. It is safe to call
// more than once.
func (c *Cache[K, V]) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
	c.mutex.Lock()
	c.entries = make(map[K]*entry[V])
	c.mutex.Unlock()
}

// Stats provides information about cache contents
type Stats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}

// Stats returns cache statistics
func (c *Cache[K, V]) Stats() Stats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	total := len(c.entries)
	expired := 0
	now := c.now()
	if c.ttl > 0 {
		for _, e := range c.entries {
			if now.After(e.expiresAt) {
				expired++
			}
		}
	}

	return Stats{
		TotalEntries:   total,
		ExpiredEntries: expired,
		ActiveEntries:  total - expired,
	}
}
