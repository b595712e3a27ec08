package gpu

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CacheDuration is how long a tool result is reused. It is independent of
// the refresh interval: the utilization, memory and temperature producers
// of one round all read within this window.
const CacheDuration = 250 * time.Millisecond

type cacheEntry struct {
	result    Result
	fetchedAt time.Time
}

// Cache memoizes tool results per query for a fixed window. Stale entries
// are not evicted, the next miss overwrites them. Concurrent misses for
// the same query share one fetch.
type Cache struct {
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[Query]cacheEntry
	group   singleflight.Group
}

func NewCache(window time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		window:  window,
		now:     now,
		entries: make(map[Query]cacheEntry),
	}
}

func (c *Cache) lookup(q Query) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[q]
	if !ok || c.now().Sub(e.fetchedAt) >= c.window {
		return Result{}, false
	}
	return e.result, true
}

func (c *Cache) store(q Query, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[q] = cacheEntry{result: r, fetchedAt: c.now()}
}

// Get returns the cached result for q or calls fetch and caches what it
// returns, failures included, so a missing tool is not respawned every call.
func (c *Cache) Get(q Query, fetch func() Result) Result {
	if r, ok := c.lookup(q); ok {
		return r
	}

	v, _, _ := c.group.Do(string(q), func() (any, error) {
		// another caller may have filled the entry while we waited
		if r, ok := c.lookup(q); ok {
			return r, nil
		}
		r := fetch()
		c.store(q, r)
		return r, nil
	})
	return v.(Result)
}
