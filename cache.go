package swrcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gen "github.com/unkn0wn-root/swrcache/genstore"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

// Client owns one dedup registry and the collaborators shared by every query
// issued through it. Create one per process (or server instance).
type Client struct {
	ns       string
	provider pr.Provider
	locker   Locker
	runner   Runner
	log      Logger
	hooks    Hooks
	lockTTL  time.Duration
	enabled  bool

	backend *backend // nil without a provider
	gen     gen.GenStore
	reg     *registry
	work    tracker // producers and their background tasks

	closeOnce sync.Once
	closeErr  error
}

func newClient(opts Options) (*Client, error) {
	if opts.Namespace == "" {
		return nil, fmt.Errorf("swrcache: namespace is required")
	}
	if opts.LockTTL < 0 {
		return nil, fmt.Errorf("swrcache: negative lock ttl %v", opts.LockTTL)
	}

	c := &Client{
		ns:       opts.Namespace,
		provider: opts.Provider,
		enabled:  !opts.Disabled,
		reg:      newRegistry(),
	}

	// defaults
	c.log = withNamespace(coalesce[Logger](opts.Logger, NopLogger{}), opts.Namespace)
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.lockTTL = coalesce(opts.LockTTL, defaultLockTTL)

	if opts.Runner != nil {
		c.runner = opts.Runner
	} else {
		c.runner = &goRunner{log: c.log}
	}

	switch {
	case opts.Locker != nil:
		c.locker = opts.Locker
	case opts.Provider != nil:
		c.locker = NewProviderLocker(opts.Provider)
	default:
		c.locker = NewLocalLocker()
	}

	if opts.GenStore != nil {
		c.gen = opts.GenStore
	} else {
		c.gen = gen.NewLocalGenStore(
			coalesce(opts.CleanupInterval, defaultSweep),
			coalesce(opts.GenRetention, defaultGenRetention),
		)
	}

	if opts.Provider != nil {
		cost := opts.ComputeSetCost
		if cost == nil {
			cost = func(string, []byte) int64 { return 1 }
		}
		c.backend = &backend{
			provider:       opts.Provider,
			gen:            c.gen,
			log:            c.log,
			hooks:          c.hooks,
			computeSetCost: cost,
			now:            time.Now,
		}
	}
	return c, nil
}

func (c *Client) Enabled() bool { return c.enabled }

// CacheKey returns the namespaced key k is stored and deduplicated under.
func (c *Client) CacheKey(k Key) (string, error) { return cacheKey(c.ns, k) }

// InFlight reports how many entries the dedup registry currently holds.
func (c *Client) InFlight() int { return c.reg.len() }

// Invalidate forgets k: the registry entry is dropped and the stored entry is
// deleted under a new generation, so a refresh already running for k cannot
// write its result back.
func (c *Client) Invalidate(ctx context.Context, k Key) error {
	ck, err := c.CacheKey(k)
	if err != nil {
		return err
	}
	c.reg.remove(ck)
	if c.backend == nil || !c.enabled {
		return nil
	}
	return c.backend.invalidate(ctx, ck)
}

// Wait blocks until running queries and the background refreshes and cache
// writes they started have finished, or ctx is done.
func (c *Client) Wait(ctx context.Context) error {
	return c.work.wait(ctx)
}

// spawn hands fn to the Runner on behalf of a tracked producer.
func (c *Client) spawn(fn func()) {
	c.work.join()
	c.runner.Go(func() {
		defer c.work.done()
		fn()
	})
}

// Close stops accepting queries, drops the registry and waits (bounded by
// ctx) for running producers and their write-backs before closing the
// generation store and provider. Later queries fail with ErrClosed.
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.work.close()
		c.reg.close()
		var errs []error
		if err := c.Wait(ctx); err != nil {
			c.log.Warn("close: queries still running", Fields{"err": err, "running": c.work.len()})
			errs = append(errs, err)
		}
		if err := c.gen.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		if c.provider != nil {
			if err := c.provider.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

// storeFor picks the store a cached query talks to, or nil when caching is
// off for this client.
func storeFor[V any](c *Client, o *CacheOptions[V]) Store[V] {
	if !c.enabled {
		return nil
	}
	if o.Store != nil {
		return o.Store
	}
	if c.backend == nil {
		return nil
	}
	return providerStore[V]{b: c.backend, codec: o.Codec}
}
