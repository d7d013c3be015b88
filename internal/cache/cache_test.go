package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by one second per call so access order is strict.
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cur = f.cur.Add(time.Second)
	return f.cur
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cur = f.cur.Add(d)
}

func newTestCache(t *testing.T, config Config) (*Cache[string, int], *fakeClock) {
	t.Helper()
	clock := &fakeClock{cur: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string, int](config)
	c.now = clock.now
	t.Cleanup(c.Close)
	return c, clock
}

func TestCache_BasicOperations(t *testing.T) {
	c, _ := newTestCache(t, Config{TTL: 5 * time.Minute, MaxEntries: 100})

	_, found := c.Get("FREQ=DAILY;COUNT=5")
	assert.False(t, found, "expected cache miss")

	c.Set("FREQ=DAILY;COUNT=5", 5)

	v, found := c.Get("FREQ=DAILY;COUNT=5")
	require.True(t, found, "expected cache hit")
	assert.Equal(t, 5, v)
}

func TestCache_TTLExpiration(t *testing.T) {
	c, clock := newTestCache(t, Config{TTL: time.Minute, MaxEntries: 100})

	c.Set("key", 1)
	_, found := c.Get("key")
	require.True(t, found)

	clock.advance(2 * time.Minute)

	_, found = c.Get("key")
	assert.False(t, found, "expected cache miss after TTL expiration")
	assert.Equal(t, 0, c.Stats().TotalEntries)
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	c, clock := newTestCache(t, Config{MaxEntries: 10})

	c.Set("key", 1)
	clock.advance(24 * time.Hour)

	_, found := c.Get("key")
	assert.True(t, found)
}

func TestCache_MaxEntriesEviction(t *testing.T) {
	c, _ := newTestCache(t, Config{TTL: 5 * time.Minute, MaxEntries: 3})

	for i := 1; i <= 3; i++ {
		c.Set(fmt.Sprintf("FREQ=DAILY;COUNT=%d", i), i)
	}
	assert.Equal(t, 3, c.Stats().TotalEntries)

	// Touch the first entry so the second becomes the least recently accessed
	_, found := c.Get("FREQ=DAILY;COUNT=1")
	require.True(t, found)

	c.Set("FREQ=WEEKLY;COUNT=1", 4)
	assert.Equal(t, 3, c.Stats().TotalEntries)

	_, found = c.Get("FREQ=DAILY;COUNT=2")
	assert.False(t, found, "expected least recently accessed entry to be evicted")

	for _, key := range []string{"FREQ=DAILY;COUNT=1", "FREQ=DAILY;COUNT=3", "FREQ=WEEKLY;COUNT=1"} {
		_, found = c.Get(key)
		assert.True(t, found, key)
	}
}

func TestCache_Stats(t *testing.T) {
	c, clock := newTestCache(t, Config{TTL: time.Minute, MaxEntries: 100})

	assert.Equal(t, Stats{}, c.Stats())

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprint(i), i)
	}
	assert.Equal(t, Stats{TotalEntries: 5, ActiveEntries: 5}, c.Stats())

	clock.advance(time.Hour)
	assert.Equal(t, Stats{TotalEntries: 5, ExpiredEntries: 5}, c.Stats())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[string, int](Config{TTL: 5 * time.Minute, MaxEntries: 100, CleanupInterval: time.Millisecond})
	defer c.Close()

	const numGoroutines = 10
	const operationsPerGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < operationsPerGoroutine; j++ {
				key := fmt.Sprintf("FREQ=DAILY;COUNT=%d", id*operationsPerGoroutine+j)
				if j%2 == 0 {
					c.Set(key, j)
				} else {
					c.Get(key)
				}
			}
		}(i)
	}
	wg.Wait()

	c.Set("final", 999)
	v, found := c.Get("final")
	require.True(t, found, "cache should still be functional after concurrent access")
	assert.Equal(t, 999, v)
	assert.LessOrEqual(t, c.Stats().TotalEntries, 100)
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New[string, int](Config{TTL: time.Minute, CleanupInterval: time.Minute})
	c.Set("key", 1)
	c.Close()
	c.Close()

	_, found := c.Get("key")
	assert.False(t, found)
}
