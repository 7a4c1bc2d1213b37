package dashboard

import (
	"sync"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
	"github.com/WessleyAI/wessley-inspect/engine/query"
)

type cacheKey struct {
	version  uint64
	status   domain.StatusFilter
	search   string
	page     int
	pageSize int
}

// queryCache memoizes listing pages for one snapshot version. It is
// cleared on every commit and when it grows past max entries.
type queryCache struct {
	mu      sync.Mutex
	max     int
	entries map[cacheKey]query.Result
}

func newQueryCache(max int) *queryCache {
	return &queryCache{max: max, entries: make(map[cacheKey]query.Result)}
}

func (c *queryCache) get(k cacheKey) (query.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[k]
	return r, ok
}

func (c *queryCache) put(k cacheKey, r query.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.max {
		clear(c.entries)
	}
	c.entries[k] = r
}

func (c *queryCache) reset() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

func (c *queryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
