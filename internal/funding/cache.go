package funding

import (
	"fmt"
	"sync"
)

// DefaultCacheCap is the hard cap on dedup entries. Entries never expire
// by time, only by cap eviction or explicit clear.
const DefaultCacheCap = 20000

// Cache deduplicates alert emissions. Add reports whether the key was new;
// a repeated key is a normal silent no-op for the caller.
type Cache interface {
	Add(key string) bool
	Clear()
	Len() int
}

// CacheKey builds the composite dedup key for a logical funding event.
// extra encodes the specific rule (target minute, thresholds) that matched,
// so the same record can fire distinct rules exactly once each.
func CacheKey(kind, exchange, symbol string, nextFundingTime int64, extra string) string {
	return fmt.Sprintf("%s:%s:%s:%d:%s", kind, exchange, symbol, nextFundingTime, extra)
}

// MemoryCache is the default in-process cache: a bounded set with
// oldest-first eviction once the cap is exceeded.
type MemoryCache struct {
	mu    sync.Mutex
	keys  map[string]struct{}
	order []string
	cap   int
}

// NewMemoryCache constructs a bounded cache. Non-positive caps fall back
// to DefaultCacheCap.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = DefaultCacheCap
	}
	return &MemoryCache{
		keys: make(map[string]struct{}),
		cap:  capacity,
	}
}

// Add inserts a key, evicting the oldest entries past the cap.
func (c *MemoryCache) Add(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, seen := c.keys[key]; seen {
		return false
	}
	c.keys[key] = struct{}{}
	c.order = append(c.order, key)

	for len(c.order) > c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.keys, oldest)
	}
	return true
}

// Clear drops every entry.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = make(map[string]struct{})
	c.order = nil
}

// Len reports the current entry count.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

var _ Cache = (*MemoryCache)(nil)
