package ports

import (
	"context"

	"github.com/taskflow/engine/internal/core/domain"
)

//go:generate mockgen -source=cache.go -destination=mocks/cache_mock.go -package=mocks

// Cache is the pluggable key-addressed result store. Backend I/O failures
// must never propagate into task execution: Get failures count as a miss,
// Put failures are returned so the caller can log them but must not abort
// the run.
type Cache interface {
	// Get returns the entry for key if present and not expired. A present
	// but expired entry is deleted as a side effect and reported absent.
	Get(ctx context.Context, key string) (domain.CacheEntry, bool, error)

	// Put stores entry under key, overwriting any existing entry. Callers
	// only invoke Put when entry.Result.Success is true.
	Put(ctx context.Context, key string, entry domain.CacheEntry) error

	// Delete removes key and reports whether a live entry was removed.
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes all entries and resets counters.
	Clear(ctx context.Context) error

	// Stats returns cumulative counters for this backend.
	Stats(ctx context.Context) domain.CacheStats

	// CleanupExpired eagerly removes expired entries and returns the count removed.
	CleanupExpired(ctx context.Context) (int, error)
}
