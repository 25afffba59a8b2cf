// Package genstore keeps per-key generation counters used to reject writes
// that raced an invalidation.
//
// A background refresh snapshots the generation of the entry it is about to
// replace; if Invalidate bumps the generation meanwhile, the refreshed value
// is dropped instead of resurrecting data the caller asked to forget.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live.
// Use LocalGenStore (default) for one process, RedisGenStore when several
// replicas share the same cache provider.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, storageKey string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, storageKey string) (uint64, error)
	// Cleanup prunes old metadata if applicable.
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
