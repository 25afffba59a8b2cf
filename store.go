package swrcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/swrcache/codec"
	gen "github.com/unkn0wn-root/swrcache/genstore"
	"github.com/unkn0wn-root/swrcache/internal/wire"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

// Freshness is the metadata stored alongside a cached output.
type Freshness struct {
	StoredAt time.Time
	MaxAge   time.Duration
	// Gen is the generation the entry was written under. On a miss it holds
	// the current generation, so a later Set can be compare-and-swapped.
	Gen uint64
}

type SetOptions struct {
	MaxAge time.Duration
	// StaleTTL bounds how long past MaxAge the entry may still be served.
	// 0 keeps the entry until the provider evicts it.
	StaleTTL time.Duration
	// Gen is the generation observed before the value was computed. The write
	// is skipped if the key was invalidated since.
	Gen uint64
}

// Store is the cache collaborator consumed by the stale-while-revalidate
// controller. Implementations must be safe for concurrent use.
type Store[V any] interface {
	// Get returns (value, freshness, true, nil) on hit.
	Get(ctx context.Context, key string) (V, Freshness, bool, error)
	Set(ctx context.Context, key string, value V, opts SetOptions) error
	// Delete invalidates key.
	Delete(ctx context.Context, key string) error
	IsStale(f Freshness) bool
}

// backend holds the value-type-independent half of the default store.
type backend struct {
	provider       pr.Provider
	gen            gen.GenStore
	log            Logger
	hooks          Hooks
	computeSetCost SetCostFunc
	now            func() time.Time
}

func (b *backend) heal(ctx context.Context, key, reason string) {
	_ = b.provider.Del(ctx, key)
	b.hooks.SelfHeal(key, reason)
	b.log.Debug("dropped unreadable entry", Fields{"key": key, "reason": reason})
}

func (b *backend) invalidate(ctx context.Context, key string) error {
	newGen, bumpErr := b.gen.Bump(ctx, key)
	delErr := b.provider.Del(ctx, key)

	switch {
	case bumpErr != nil && delErr != nil:
		return &InvalidateError{Key: key, BumpErr: bumpErr, DelErr: delErr}
	case bumpErr != nil:
		// entry is gone, but an in-flight refresh may still write it back
		b.log.Warn("invalidate: gen bump failed", Fields{"key": key, "err": bumpErr})
	case delErr != nil:
		// gen moved, so the old entry self-heals on next read
		b.log.Warn("invalidate: delete failed", Fields{"key": key, "err": delErr})
	default:
		b.log.Debug("invalidated key", Fields{"key": key, "newGen": newGen})
	}
	return nil
}

func (b *backend) isStale(f Freshness) bool {
	if f.MaxAge <= 0 {
		return true
	}
	return b.now().Sub(f.StoredAt) > f.MaxAge
}

// providerStore frames values with wire and keeps them in a byte Provider.
type providerStore[V any] struct {
	b     *backend
	codec c.Codec[V]
}

var _ Store[struct{}] = providerStore[struct{}]{}

func (s providerStore[V]) Get(ctx context.Context, key string) (V, Freshness, bool, error) {
	var zero V
	cur, err := s.b.gen.Snapshot(ctx, key)
	if err != nil {
		return zero, Freshness{}, false, err
	}
	miss := Freshness{Gen: cur}

	raw, ok, err := s.b.provider.Get(ctx, key)
	if err != nil || !ok {
		return zero, miss, false, err
	}
	e, err := wire.Decode(raw)
	if err != nil {
		s.b.heal(ctx, key, "corrupt")
		return zero, miss, false, nil
	}
	if e.Gen != cur {
		s.b.heal(ctx, key, "gen_mismatch")
		return zero, miss, false, nil
	}
	v, err := s.codec.Decode(e.Payload)
	if err != nil {
		s.b.heal(ctx, key, "value_decode")
		return zero, miss, false, nil
	}
	return v, Freshness{StoredAt: e.StoredAt, MaxAge: e.MaxAge, Gen: e.Gen}, true, nil
}

func (s providerStore[V]) Set(ctx context.Context, key string, value V, opts SetOptions) error {
	cur, err := s.b.gen.Snapshot(ctx, key)
	if err != nil {
		return err
	}
	if cur != opts.Gen {
		// invalidated while the value was being computed
		s.b.log.Debug("set skipped (gen moved)", Fields{"key": key, "obs": opts.Gen, "cur": cur})
		return nil
	}
	payload, err := s.codec.Encode(value)
	if err != nil {
		return err
	}
	raw := wire.Encode(wire.Entry{
		Gen:      opts.Gen,
		StoredAt: s.b.now(),
		MaxAge:   opts.MaxAge,
		Payload:  payload,
	})

	var ttl time.Duration
	if opts.StaleTTL > 0 {
		ttl = opts.MaxAge + opts.StaleTTL
	}
	ok, err := s.b.provider.Set(ctx, key, raw, s.b.computeSetCost(key, raw), ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.b.hooks.ProviderSetRejected(key)
		s.b.log.Debug("set rejected by provider (pressure)", Fields{"key": key})
	}
	return nil
}

func (s providerStore[V]) Delete(ctx context.Context, key string) error {
	return s.b.invalidate(ctx, key)
}

func (s providerStore[V]) IsStale(f Freshness) bool { return s.b.isStale(f) }
