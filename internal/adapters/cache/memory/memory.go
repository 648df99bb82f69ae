// Package memory implements ports.Cache as an in-process LRU, grounded on
// the source project's MemoryCache (an OrderedDict with move-to-end on hit
// and evict-from-front on overflow).
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/taskflow/engine/internal/core/domain"
)

type entry struct {
	key   string
	value domain.CacheEntry
}

// Cache is an in-memory, mutex-guarded LRU cache bounded by maxSize. A
// maxSize of 0 means unbounded.
type Cache struct {
	mu         sync.Mutex
	maxSize    int
	defaultTTL time.Duration

	ll    *list.List // front = most recently used
	items map[string]*list.Element

	stats domain.CacheStats
}

// New creates an empty Cache. maxSize <= 0 means unbounded; defaultTTL is
// used for entries whose Put call specifies a zero TTL.
func New(maxSize int, defaultTTL time.Duration) *Cache {
	return &Cache{
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Get returns the entry for key, moving it to the front on a hit. An
// expired entry is evicted and reported as a miss.
func (c *Cache) Get(_ context.Context, key string) (domain.CacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return domain.CacheEntry{}, false, nil
	}

	e := el.Value.(*entry)
	if e.value.Expired(time.Now()) {
		c.removeElement(el)
		c.stats.ExpiredRemovals++
		c.stats.Misses++
		return domain.CacheEntry{}, false, nil
	}

	c.ll.MoveToFront(el)
	c.stats.Hits++
	return e.value, true, nil
}

// Put stores entry under key, evicting the least-recently-used entry if the
// cache is over maxSize afterward.
func (c *Cache) Put(_ context.Context, key string, e domain.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.TTL <= 0 && c.defaultTTL > 0 {
		e.TTL = c.defaultTTL
	}

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).value = e
		c.ll.MoveToFront(el)
	} else {
		el := c.ll.PushFront(&entry{key: key, value: e})
		c.items[key] = el
	}
	c.stats.Puts++

	for c.maxSize > 0 && c.ll.Len() > c.maxSize {
		back := c.ll.Back()
		if back == nil {
			break
		}
		c.removeElement(back)
		c.stats.Evictions++
	}

	return nil
}

// Delete removes key, reporting whether a live entry was removed.
func (c *Cache) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false, nil
	}
	c.removeElement(el)
	return true, nil
}

// Clear removes every entry and resets the cumulative counters.
func (c *Cache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll = list.New()
	c.items = make(map[string]*list.Element)
	c.stats = domain.CacheStats{}
	return nil
}

// Stats returns the cache's current cumulative counters and size.
func (c *Cache) Stats(_ context.Context) domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.ll.Len()
	s.MaxSize = c.maxSize
	return s
}

// CleanupExpired scans and evicts every expired entry, returning the count
// removed.
func (c *Cache) CleanupExpired(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0

	var next *list.Element
	for el := c.ll.Front(); el != nil; el = next {
		next = el.Next()
		e := el.Value.(*entry)
		if e.value.Expired(now) {
			c.removeElement(el)
			c.stats.ExpiredRemovals++
			removed++
		}
	}
	return removed, nil
}

// removeElement unlinks el from both the list and the index. Caller must
// hold c.mu.
func (c *Cache) removeElement(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
