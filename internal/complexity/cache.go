package complexity

import (
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes estimates by source hash. It is safe for concurrent use.
type Cache struct {
	lru *lru.Cache[uint64, Estimate]
}

// NewCache returns a Cache holding up to size estimates. A size below one
// disables caching.
func NewCache(size int) (*Cache, error) {
	if size < 1 {
		return &Cache{}, nil
	}
	c, err := lru.New[uint64, Estimate](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Analyze returns the estimate for src, computing it on a miss.
func (c *Cache) Analyze(src string) Estimate {
	if c == nil || c.lru == nil {
		return Analyze(src)
	}
	key := xxhash.Sum64String(src)
	if est, ok := c.lru.Get(key); ok {
		return est
	}
	est := Analyze(src)
	c.lru.Add(key, est)
	return est
}

// Len returns the number of cached estimates.
func (c *Cache) Len() int {
	if c == nil || c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
