// Package provider defines the byte store that backs swrcache entries and
// regeneration locks.
//
// Implementations MUST be byte-for-byte transparent: Get returns exactly the
// []byte previously passed to Set or Add for a key.
//
// The keyspaces "q:<ns>:" and "lock-q:<ns>:" are owned by swrcache. Foreign
// writes under those prefixes are treated as corruption and deleted on read.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs. Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL; ttl <= 0 means no expiry.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Add stores value only if key is absent, atomically with respect to
	// other Add/Set/Del calls on the same provider. Returns true when the
	// value was stored.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
