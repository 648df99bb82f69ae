// Package distributed implements ports.Cache over Redis, grounded on the
// source project's RedisCache: one key per fingerprint under a namespacing
// prefix, TTL delegated to Redis (SETEX) with an entry-local TTL re-checked
// on read as a fallback, and a scan-by-prefix for Clear/Stats/CleanupExpired.
package distributed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskflow/engine/internal/core/domain"
)

const defaultKeyPrefix = "taskflow:"

// record is the JSON shape stored under each Redis key; it mirrors the
// file backend's record so the two backends can share entries' on-wire
// structure even though nothing currently depends on that.
type record struct {
	Output    map[string]any    `json:"output"`
	Status    domain.TaskStatus `json:"status"`
	CachedAt  time.Time         `json:"cached_at"`
	TTLNanos  int64             `json:"ttl_nanos"`
	ExecMicro int64             `json:"exec_micros"`
	Retries   int               `json:"retries"`
}

// Cache is a ports.Cache backend over a Redis client. Connection and
// protocol failures count as misses on read and are returned (not
// swallowed) on write, per the ports.Cache contract.
type Cache struct {
	client    *redis.Client
	keyPrefix string

	statsMu sync.Mutex
	stats   struct {
		hits, misses, puts, evictions, expired int64
	}
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithKeyPrefix overrides the default "taskflow:" namespace prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Cache) { c.keyPrefix = prefix }
}

// New creates a Cache backed by client.
func New(client *redis.Client, opts ...Option) *Cache {
	c := &Cache{client: client, keyPrefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) key(cacheKey string) string {
	return c.keyPrefix + cacheKey
}

// Get returns the entry for key, or reports a miss on any connection,
// decode, or expiry problem.
func (c *Cache) Get(ctx context.Context, key string) (domain.CacheEntry, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		c.recordMiss()
		return domain.CacheEntry{}, false, nil
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		c.recordMiss()
		return domain.CacheEntry{}, false, nil
	}

	entry := domain.CacheEntry{
		Result: domain.Result{
			Success:       true,
			Status:        rec.Status,
			Output:        rec.Output,
			ExecutionTime: time.Duration(rec.ExecMicro) * time.Microsecond,
			Retries:       rec.Retries,
		},
		CachedAt: rec.CachedAt,
		TTL:      time.Duration(rec.TTLNanos),
	}

	// Redis enforces TTL server-side; this is a belt-and-suspenders check
	// for entries written with a TTL before a clock skew or a TTL change.
	if entry.Expired(time.Now()) {
		_, _ = c.client.Del(ctx, c.key(key)).Result()
		c.statsMu.Lock()
		c.stats.expired++
		c.stats.misses++
		c.statsMu.Unlock()
		return domain.CacheEntry{}, false, nil
	}

	c.statsMu.Lock()
	c.stats.hits++
	c.statsMu.Unlock()
	return entry, true, nil
}

func (c *Cache) recordMiss() {
	c.statsMu.Lock()
	c.stats.misses++
	c.statsMu.Unlock()
}

// Put stores entry under key. If entry.TTL is set, the Redis key expires
// after it via SETEX; otherwise the key persists until Delete or Clear.
func (c *Cache) Put(ctx context.Context, key string, e domain.CacheEntry) error {
	rec := record{
		Output:    e.Result.Output,
		Status:    e.Result.Status,
		CachedAt:  e.CachedAt,
		TTLNanos:  int64(e.TTL),
		ExecMicro: int64(e.Result.ExecutionTime / time.Microsecond),
		Retries:   e.Result.Retries,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	var ttl time.Duration
	if e.TTL > 0 {
		ttl = e.TTL
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return err
	}

	c.statsMu.Lock()
	c.stats.puts++
	c.statsMu.Unlock()
	return nil
}

// Delete removes key, reporting whether a live entry was removed.
func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Del(ctx, c.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear removes every key under this cache's prefix and resets counters.
func (c *Cache) Clear(ctx context.Context) error {
	keys, err := c.scanKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	c.statsMu.Lock()
	c.stats.hits, c.stats.misses, c.stats.puts = 0, 0, 0
	c.stats.evictions, c.stats.expired = 0, 0
	c.statsMu.Unlock()
	return nil
}

// Stats returns cumulative counters plus a live key count under this
// cache's prefix.
func (c *Cache) Stats(ctx context.Context) domain.CacheStats {
	keys, _ := c.scanKeys(ctx)
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return domain.CacheStats{
		Hits:            c.stats.hits,
		Misses:          c.stats.misses,
		Puts:            c.stats.puts,
		Evictions:       c.stats.evictions,
		ExpiredRemovals: c.stats.expired,
		Size:            len(keys),
	}
}

// CleanupExpired scans every key under this cache's prefix and removes
// entries whose local TTL bookkeeping reports expiry; in the common case
// Redis has already expired them server-side and this finds nothing.
func (c *Cache) CleanupExpired(ctx context.Context) (int, error) {
	keys, err := c.scanKeys(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	now := time.Now()
	for _, k := range keys {
		data, err := c.client.Get(ctx, k).Bytes()
		if err != nil {
			continue
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		entry := domain.CacheEntry{CachedAt: rec.CachedAt, TTL: time.Duration(rec.TTLNanos)}
		if entry.Expired(now) {
			if _, err := c.client.Del(ctx, k).Result(); err == nil {
				removed++
			}
		}
	}

	c.statsMu.Lock()
	c.stats.expired += int64(removed)
	c.statsMu.Unlock()
	return removed, nil
}

func (c *Cache) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}
