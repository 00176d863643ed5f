package cluster

import (
	"container/list"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// CacheStats counts cache activity since startup.
type CacheStats struct {
	Hits      int `json:"hits"`
	Misses    int `json:"misses"`
	Evictions int `json:"evictions"`
	Entries   int `json:"entries"`
}

type cacheEntry struct {
	key     string
	result  *Result
	expires time.Time
}

// resultCache is a small TTL cache with LRU eviction. Viewport queries
// repeat heavily while a user pans a map, so even a short TTL absorbs
// most of the load.
type resultCache struct {
	mu      sync.Mutex
	max     int
	ttl     time.Duration
	order   *list.List
	entries map[string]*list.Element

	hits, misses, evictions int
}

func newResultCache(max int, ttl time.Duration) *resultCache {
	return &resultCache{
		max:     max,
		ttl:     ttl,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (c *resultCache) get(key string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if time.Now().After(entry.expires) {
		c.order.Remove(el)
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return entry.result, true
}

func (c *resultCache) put(key string, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.result = result
		entry.expires = time.Now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	for c.order.Len() >= c.max {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
		c.evictions++
	}

	el := c.order.PushFront(&cacheEntry{
		key:     key,
		result:  result,
		expires: time.Now().Add(c.ttl),
	})
	c.entries[key] = el
}

func (c *resultCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element)
}

func (c *resultCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   len(c.entries),
	}
}

// cacheKey fingerprints a request. Coordinates are truncated to six
// decimals (about 10cm) so float noise does not defeat the cache.
func cacheKey(req Request, minSize int) string {
	cats := make([]string, len(req.Categories))
	for i, c := range req.Categories {
		cats[i] = string(c)
	}
	sort.Strings(cats)
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f|z%d|m%d|%s",
		req.Bounds.West, req.Bounds.South, req.Bounds.East, req.Bounds.North,
		req.Zoom, minSize, strings.Join(cats, ","))
}
