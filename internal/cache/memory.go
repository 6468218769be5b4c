package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache implements in-memory memoization without expiry
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache. Entries live until Clear.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) (any, bool) {
	return c.cache.Get(key)
}

// Set stores a value in the cache
func (c *MemoryCache) Set(key string, value any) {
	c.cache.Set(key, value, gocache.NoExpiration)
}

// Len returns the number of stored entries
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}

// Clear removes all values from the cache
func (c *MemoryCache) Clear() {
	c.cache.Flush()
}
