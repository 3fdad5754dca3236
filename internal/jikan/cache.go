package jikan

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheCapacity bounds the number of cached result pages
const DefaultCacheCapacity = 256

// searchCache keeps the most recently used result pages for the
// lifetime of the process. The underlying LRU is safe for concurrent use.
type searchCache struct {
	entries *lru.Cache[string, *SearchResponse]
}

func newSearchCache(capacity int) (*searchCache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	entries, err := lru.New[string, *SearchResponse](capacity)
	if err != nil {
		return nil, fmt.Errorf("create search cache: %w", err)
	}
	return &searchCache{entries: entries}, nil
}

func (c *searchCache) get(key string) (*SearchResponse, bool) {
	return c.entries.Get(key)
}

func (c *searchCache) add(key string, resp *SearchResponse) {
	c.entries.Add(key, resp)
}

func (c *searchCache) contains(key string) bool {
	return c.entries.Contains(key)
}

func (c *searchCache) len() int {
	return c.entries.Len()
}

func (c *searchCache) purge() {
	c.entries.Purge()
}
