package swrcache

import (
	"context"
	"fmt"
)

// resolve serves key from st, falling back to fn:
//   - fresh hit: return it;
//   - stale hit: return it and refresh in the background under the
//     regeneration lock;
//   - miss: run fn in the caller's flow and write the result back in the
//     background.
//
// Only a foreground fn error reaches the caller.
func resolve[V any](ctx context.Context, c *Client, key string, fn QueryFunc[V], o *CacheOptions[V], st Store[V]) (V, error) {
	v, f, ok, err := st.Get(ctx, key)
	if err != nil {
		c.hooks.StoreError(key, "get", err)
		c.log.Warn("store get failed; fetching", Fields{"key": key, "err": err})
		ok = false
	}

	if ok {
		if !st.IsStale(f) {
			c.hooks.CacheHit(key)
			return v, nil
		}
		c.hooks.StaleServed(key)
		observed := f.Gen
		c.spawn(func() { regenerate(ctx, c, key, fn, o, st, observed) })
		return v, nil
	}

	c.hooks.CacheMiss(key)
	v, err = fn(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	observed := f.Gen
	c.spawn(func() {
		if err := st.Set(ctx, key, v, o.setOptions(observed)); err != nil {
			c.hooks.StoreError(key, "set", err)
			c.log.Warn("store set failed", Fields{"key": key, "err": err})
		}
	})
	return v, nil
}

// regenerate refreshes a stale entry. It gives up silently when another
// refresh holds the lock, and always releases a lock it acquired.
func regenerate[V any](ctx context.Context, c *Client, key string, fn QueryFunc[V], o *CacheOptions[V], st Store[V], observed uint64) {
	lockKey := LockKey(key)
	locked, err := c.locker.TryLock(ctx, lockKey, c.lockTTL)
	if err != nil {
		c.hooks.StoreError(key, "lock", err)
		c.log.Warn("regeneration lock failed", Fields{"key": key, "err": err})
		return
	}
	if !locked {
		c.hooks.RegenerationSkipped(key)
		c.log.Debug("regeneration already running", Fields{"key": key})
		return
	}

	defer func() {
		if err := c.locker.Unlock(ctx, lockKey); err != nil {
			c.hooks.StoreError(key, "unlock", err)
			c.log.Error("regeneration lock release failed", Fields{"key": key, "err": err})
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("swrcache: regeneration panic: %v", p)
			c.hooks.RegenerationFailed(key, err)
			c.log.Error("regeneration panicked; keeping stale entry", Fields{"key": key, "err": err})
		}
	}()

	v, err := fn(ctx)
	if err != nil {
		c.hooks.RegenerationFailed(key, err)
		c.log.Warn("regeneration failed; keeping stale entry", Fields{"key": key, "err": err})
		return
	}
	if err := st.Set(ctx, key, v, o.setOptions(observed)); err != nil {
		c.hooks.StoreError(key, "set", err)
		c.log.Warn("regenerated value not stored", Fields{"key": key, "err": err})
		return
	}
	c.log.Debug("regenerated", Fields{"key": key})
}
