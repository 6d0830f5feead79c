package memory

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"venue-pulse/internal/observability/metrics"
)

// DefaultCarryoverEntries bounds the carryover cache.
const DefaultCarryoverEntries = 200

// CarryoverCache is a bounded LRU of excluded open order baselines.
type CarryoverCache struct {
	cache *lru.Cache[string, int64]
}

// NewCarryoverCache constructs a cache holding at most size entries.
// Sizes outside 1..DefaultCarryoverEntries fall back to DefaultCarryoverEntries.
func NewCarryoverCache(size int) (*CarryoverCache, error) {
	if size <= 0 || size > DefaultCarryoverEntries {
		size = DefaultCarryoverEntries
	}
	cache, err := lru.New[string, int64](size)
	if err != nil {
		return nil, err
	}
	return &CarryoverCache{cache: cache}, nil
}

// Get returns the stored baseline for key.
func (c *CarryoverCache) Get(key string) (int64, bool) {
	value, ok := c.cache.Get(key)
	metrics.IncCarryoverLookup(ok)
	return value, ok
}

// Add stores a baseline, evicting the least recently used entry when full.
func (c *CarryoverCache) Add(key string, cents int64) {
	c.cache.Add(key, cents)
	metrics.SetCarryoverEntries(c.cache.Len())
}

// Len returns the number of stored baselines.
func (c *CarryoverCache) Len() int {
	return c.cache.Len()
}
