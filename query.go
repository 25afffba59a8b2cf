package swrcache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Query returns the data for key, starting fn at most once per key while a
// previous call's result is still registered.
//
//   - While fn runs, Query returns a *SuspendedError; retry after its Done
//     channel closes.
//   - If fn failed, its error is returned and the entry is dropped so the
//     next call starts over. A failed entry is not kept to be rethrown on
//     every later read.
//   - On success the entry is forgotten right away when cache is nil, or
//     after cache.MaxAge otherwise.
//
// With cache set, fn runs behind the stale-while-revalidate store.
func Query[V any](ctx context.Context, c *Client, key Key, fn QueryFunc[V], cache *CacheOptions[V]) (V, error) {
	var zero V
	res, ck, err := load(ctx, c, key, fn, cache)
	if err != nil {
		return zero, err
	}

	switch s := res.State().(type) {
	case Pending:
		c.hooks.Suspended(ck)
		return zero, &SuspendedError{Key: ck, done: s.Done()}
	case Failure:
		c.reg.removeIf(ck, res)
		return zero, s.Err
	case Success[V]:
		if res.MaxAge() > 0 {
			c.reg.scheduleRemoval(ck, res, res.MaxAge())
		} else {
			c.reg.removeIf(ck, res)
		}
		return s.Value, nil
	default:
		panic(fmt.Errorf("%w: %T", ErrInvariant, s))
	}
}

// Preload makes sure key is being fetched without reading the result, so a
// later Query finds the data in flight or ready instead of starting late.
func Preload[V any](ctx context.Context, c *Client, key Key, fn QueryFunc[V], cache *CacheOptions[V]) error {
	_, _, err := load(ctx, c, key, fn, cache)
	return err
}

// Await is Query for callers that can block: it waits out suspensions until
// the data settles or ctx is done.
func Await[V any](ctx context.Context, c *Client, key Key, fn QueryFunc[V], cache *CacheOptions[V]) (V, error) {
	for {
		v, err := Query(ctx, c, key, fn, cache)
		var susp *SuspendedError
		if !errors.As(err, &susp) {
			return v, err
		}
		select {
		case <-susp.Done():
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}
}

func load[V any](ctx context.Context, c *Client, key Key, fn QueryFunc[V], cache *CacheOptions[V]) (*Resource[V], string, error) {
	ck, err := c.CacheKey(key)
	if err != nil {
		return nil, "", err
	}

	e, created, err := c.reg.getOrCreate(ck, func() entry {
		return startQuery(ctx, c, ck, fn, cache)
	})
	if err != nil {
		return nil, ck, err
	}
	if !created {
		c.hooks.Deduplicated(ck)
	}

	res, ok := e.(*Resource[V])
	if !ok {
		return nil, ck, fmt.Errorf("%w: %q holds %T", ErrTypeMismatch, ck, e)
	}
	return res, ck, nil
}

func startQuery[V any](ctx context.Context, c *Client, ck string, fn QueryFunc[V], cache *CacheOptions[V]) *Resource[V] {
	if !c.work.enter() {
		return NewResource[V](ctx, ck, 0, func(context.Context) (V, error) {
			var zero V
			return zero, ErrClosed
		})
	}
	produce := fn
	var maxAge time.Duration
	if cache != nil {
		o := cache.withDefaults()
		if st := storeFor(c, &o); st != nil {
			maxAge = o.MaxAge
			produce = func(ctx context.Context) (V, error) {
				return resolve(ctx, c, ck, fn, &o, st)
			}
		} else {
			c.log.Debug("cache options ignored (no store)", Fields{"key": ck})
		}
	}
	return NewResource[V](ctx, ck, maxAge, func(ctx context.Context) (V, error) {
		defer c.work.done()
		return produce(ctx)
	})
}
