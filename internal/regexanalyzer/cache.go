package regexanalyzer

import (
	"container/list"
	"sync"
)

// Cache is an LRU of analyzed patterns, grounded on the teacher's
// regex_analyzer/cache.go RegexCache: a size-bounded map plus a
// container/list eviction order, guarded by one Mutex. The teacher
// splits "simple" and "complex" patterns into two caches with
// different eviction policies; this package has no such split since
// Analyze's cost is dominated by regexp.Compile for every pattern
// alike, so one bounded cache suffices.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*list.Element
	order   *list.List // front = most recently used
}

type cacheEntry struct {
	pattern string
	result  *Result
}

// NewCache builds an LRU cache holding at most maxSize analyzed
// patterns. maxSize <= 0 means unbounded.
func NewCache(maxSize int) *Cache {
	return &Cache{
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns a cached Result for pattern, promoting it to
// most-recently-used, or (nil, false) on a miss.
func (c *Cache) Get(pattern string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[pattern]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).result, true
}

// Put inserts or refreshes pattern's analyzed result, evicting the
// least-recently-used entry if the cache is at capacity.
func (c *Cache) Put(pattern string, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[pattern]; ok {
		el.Value.(*cacheEntry).result = result
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&cacheEntry{pattern: pattern, result: result})
	c.entries[pattern] = el

	if c.maxSize > 0 {
		for c.order.Len() > c.maxSize {
			oldest := c.order.Back()
			if oldest == nil {
				break
			}
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).pattern)
		}
	}
}

// Len reports the number of cached patterns.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// AnalyzeCached is Analyze backed by a Cache: a hit returns the cached
// Result, a miss analyzes, caches, and returns the fresh Result.
func AnalyzeCached(cache *Cache, pattern string) (*Result, error) {
	if cache != nil {
		if r, ok := cache.Get(pattern); ok {
			return r, nil
		}
	}

	r, err := Analyze(pattern)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.Put(pattern, r)
	}
	return r, nil
}
