// Package file implements ports.Cache as one file per key, grounded on the
// teacher's content-addressable Store (a file-per-task strategy keyed by a
// sha256-hashed filename, atomic write via MkdirAll+WriteFile).
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/taskflow/engine/internal/core/domain"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// record is the on-disk shape of a cache entry. Result.Err is never
// populated here: Put is only called with successful results.
type record struct {
	Output    map[string]any  `json:"output"`
	Status    domain.TaskStatus `json:"status"`
	CachedAt  time.Time       `json:"cached_at"`
	TTLNanos  int64           `json:"ttl_nanos"`
	ExecMicro int64           `json:"exec_micros"`
	Retries   int             `json:"retries"`
}

// Cache is a file-per-key cache backend rooted at dir. Concurrent Put/Get
// calls for different keys never block each other; a per-key write is
// atomic via write-to-temp-then-rename, so a crash mid-write can never
// leave a corrupt file in place of a prior valid one. A file that is
// unreadable or fails to decode (e.g. the process was killed mid-write
// before the rename landed in some other process's view) counts as a miss,
// never an error.
type Cache struct {
	dir string

	statsMu sync.Mutex
	stats   domain.CacheStats
}

// New creates a Cache rooted at dir, creating dir if it does not exist.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) pathFor(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".json")
}

// Get reads the entry for key. A missing, corrupt, or expired file counts
// as a miss; an expired file is removed as a side effect.
func (c *Cache) Get(_ context.Context, key string) (domain.CacheEntry, bool, error) {
	path := c.pathFor(key)

	//nolint:gosec // path is derived from a hashed key under our own directory
	data, err := os.ReadFile(path)
	if err != nil {
		c.recordMiss()
		if errors.Is(err, fs.ErrNotExist) {
			return domain.CacheEntry{}, false, nil
		}
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

	if entry.Expired(time.Now()) {
		_ = os.Remove(path)
		c.statsMu.Lock()
		c.stats.ExpiredRemovals++
		c.statsMu.Unlock()
		c.recordMiss()
		return domain.CacheEntry{}, false, nil
	}

	c.statsMu.Lock()
	c.stats.Hits++
	c.statsMu.Unlock()
	return entry, true, nil
}

func (c *Cache) recordMiss() {
	c.statsMu.Lock()
	c.stats.Misses++
	c.statsMu.Unlock()
}

// Put writes entry under key via write-to-temp-then-rename, so a reader
// never observes a partially written file.
func (c *Cache) Put(_ context.Context, key string, e domain.CacheEntry) error {
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

	path := c.pathFor(key)
	tmp := path + ".tmp"
	//nolint:gosec // path is derived from a hashed key under our own directory
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	c.statsMu.Lock()
	c.stats.Puts++
	c.statsMu.Unlock()
	return nil
}

// Delete removes key's file, reporting whether it existed.
func (c *Cache) Delete(_ context.Context, key string) (bool, error) {
	path := c.pathFor(key)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Clear removes every cache file in dir and resets counters.
func (c *Cache) Clear(_ context.Context) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return err
		}
	}
	c.statsMu.Lock()
	c.stats = domain.CacheStats{}
	c.statsMu.Unlock()
	return nil
}

// Stats returns the cumulative counters observed so far by this process
// (a fresh Cache pointed at a pre-populated dir starts at zero counters,
// since stats are in-memory, not persisted alongside the entries).
func (c *Cache) Stats(_ context.Context) domain.CacheStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	s := c.stats

	entries, err := os.ReadDir(c.dir)
	if err == nil {
		s.Size = len(entries)
	}
	return s
}

// CleanupExpired scans every file in dir and removes the expired ones.
func (c *Cache) CleanupExpired(_ context.Context) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	now := time.Now()
	for _, de := range entries {
		path := filepath.Join(c.dir, de.Name())
		//nolint:gosec // path is enumerated from our own directory
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		entry := domain.CacheEntry{CachedAt: rec.CachedAt, TTL: time.Duration(rec.TTLNanos)}
		if entry.Expired(now) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}

	c.statsMu.Lock()
	c.stats.ExpiredRemovals += int64(removed)
	c.statsMu.Unlock()
	return removed, nil
}
