package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryCapacity bounds the in-memory cache when no capacity is
// given. Generated chapters are large; the bound keeps a long series run
// from holding every response in memory.
const DefaultMemoryCapacity = 256

// MemoryCache is an LRU-bounded in-memory cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, memoryEntry]
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates an in-memory cache holding at most capacity
// entries; the least recently used entry is evicted first.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	// lru.New only errors on capacity < 1, which is excluded above.
	entries, _ := lru.New[string, memoryEntry](capacity)
	return &MemoryCache{entries: entries}
}

// Get retrieves a value from the cache. Returns (nil, false) on miss or
// expiry.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		// Expired - clean up lazily
		c.entries.Remove(key)
		return nil, false
	}
	return entry.value, true
}

// Set stores a value with the given TTL. TTL=0 means no caching.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := ValidateKey(key); err != nil {
		return err
	}

	c.mu.Lock()
	c.entries.Add(key, memoryEntry{value: value, expiresAt: time.Now().Add(ttl)})
	c.mu.Unlock()
	return nil
}

// Delete removes a value from the cache. Idempotent - no error on miss.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	c.entries.Remove(key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of live entries, including not-yet-collected
// expired ones.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Ensure MemoryCache implements Cache
var _ Cache = (*MemoryCache)(nil)
