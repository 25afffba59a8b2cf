package swrcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/swrcache/codec"
	gen "github.com/unkn0wn-root/swrcache/genstore"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

type SetCostFunc func(key string, raw []byte) int64

// QueryFunc produces the data for one query. It receives a context that
// carries the first caller's values but is never cancelled.
type QueryFunc[V any] func(ctx context.Context) (V, error)

// Options configure a Client. Only Namespace is required; without a Provider
// the client deduplicates queries but never caches them (unless a query
// brings its own CacheOptions.Store).
type Options struct {
	Namespace string // isolates keys, e.g. "shop:prod"
	Provider  pr.Provider

	GenStore        gen.GenStore  // nil => LocalGenStore (in-process)
	Locker          Locker        // nil => flags stored in Provider (or in-process without one)
	Runner          Runner        // nil => one goroutine per task, drained on Close
	Logger          Logger        // nil => NopLogger
	Hooks           Hooks         // nil => NopHooks
	LockTTL         time.Duration // regeneration lock safety expiry; 0 => 30s
	CleanupInterval time.Duration // local gen cleanup; 0 => 1h
	GenRetention    time.Duration // 0 => 30d
	ComputeSetCost  SetCostFunc   // default 1
	Disabled        bool          // bypass the store; dedup still applies
}

// CacheOptions turn on stale-while-revalidate caching for one query.
// A nil *CacheOptions means "no cache": results are deduplicated while in
// flight and forgotten as soon as they are read.
type CacheOptions[V any] struct {
	// MaxAge is how long a stored result counts as fresh, and how long a
	// settled result stays in the dedup registry after its first read.
	// 0 => 1m.
	MaxAge time.Duration
	// StaleTTL bounds how long past MaxAge a result may still be served
	// while it refreshes. 0 => until the provider evicts it.
	StaleTTL time.Duration
	Codec    c.Codec[V] // nil => codec.JSON[V]
	Store    Store[V]   // nil => the client's provider-backed store
}

func New(opts Options) (*Client, error) {
	return newClient(opts)
}
