package swrcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recHooks struct {
	mu     sync.Mutex
	counts map[string]int
	errs   []error
}

var _ Hooks = (*recHooks)(nil)

func newRecHooks() *recHooks { return &recHooks{counts: make(map[string]int)} }

func (h *recHooks) inc(name string) {
	h.mu.Lock()
	h.counts[name]++
	h.mu.Unlock()
}

func (h *recHooks) count(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[name]
}

func (h *recHooks) Deduplicated(string)        { h.inc("deduplicated") }
func (h *recHooks) Suspended(string)           { h.inc("suspended") }
func (h *recHooks) CacheHit(string)            { h.inc("cache_hit") }
func (h *recHooks) CacheMiss(string)           { h.inc("cache_miss") }
func (h *recHooks) StaleServed(string)         { h.inc("stale_served") }
func (h *recHooks) RegenerationSkipped(string) { h.inc("regeneration_skipped") }
func (h *recHooks) ProviderSetRejected(string) { h.inc("provider_set_rejected") }
func (h *recHooks) SelfHeal(_, reason string)  { h.inc("self_heal:" + reason) }
func (h *recHooks) StoreError(_, op string, err error) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
	h.inc("store_error:" + op)
}
func (h *recHooks) RegenerationFailed(_ string, err error) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
	h.inc("regeneration_failed")
}

// countingFn returns fn's result and counts invocations.
func countingFn[V any](calls *atomic.Int32, v V, err error) QueryFunc[V] {
	return func(context.Context) (V, error) {
		calls.Add(1)
		return v, err
	}
}

// gatedFn blocks until release is closed.
func gatedFn[V any](calls *atomic.Int32, release <-chan struct{}, v V) QueryFunc[V] {
	return func(context.Context) (V, error) {
		calls.Add(1)
		<-release
		return v, nil
	}
}

func cacheFor(maxAge time.Duration) *CacheOptions[product] {
	return &CacheOptions[product]{MaxAge: maxAge}
}

func TestQueryConcurrentCallersShareOneResource(t *testing.T) {
	ctx := context.Background()
	cl := newTestClient(t, newMemProvider(), nil)

	var calls atomic.Int32
	release := make(chan struct{})
	fn := gatedFn(&calls, release, product{ID: 1})

	const n = 32
	resources := make([]*Resource[product], n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			resources[i], _, errs[i] = load(ctx, cl, K("products"), fn, cacheFor(time.Minute))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Same(t, resources[0], resources[i])
	}
	require.Equal(t, StatusPending, resources[0].Status())

	close(release)
	v, err := resources[0].Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, product{ID: 1}, v)
	require.EqualValues(t, 1, calls.Load())
}

func TestQuerySuspendsThenResolves(t *testing.T) {
	ctx := context.Background()
	hooks := newRecHooks()
	cl := newTestClient(t, newMemProvider(), func(o *Options) { o.Hooks = hooks })

	var calls atomic.Int32
	fn := func(context.Context) (product, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return product{ID: 1}, nil
	}

	_, err := Query(ctx, cl, K("products"), fn, cacheFor(time.Minute))
	require.ErrorIs(t, err, ErrSuspended)
	var susp *SuspendedError
	require.ErrorAs(t, err, &susp)
	require.Equal(t, mustCacheKey(t, cl, K("products")), susp.Key)

	<-susp.Done()
	v, err := Query(ctx, cl, K("products"), fn, cacheFor(time.Minute))
	require.NoError(t, err)
	require.Equal(t, product{ID: 1}, v)

	// still registered: served synchronously, no new fetch
	v, err = Query(ctx, cl, K("products"), fn, cacheFor(time.Minute))
	require.NoError(t, err)
	require.Equal(t, product{ID: 1}, v)
	require.EqualValues(t, 1, calls.Load())
	require.Equal(t, 1, hooks.count("suspended"))
	require.Equal(t, 2, hooks.count("deduplicated"))
}

func TestQueryMissInvokesFnOnceAndStores(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := newRecHooks()
	cl := newTestClient(t, mp, func(o *Options) { o.Hooks = hooks })

	var calls atomic.Int32
	v, err := Await(ctx, cl, K("products"), countingFn(&calls, product{ID: 1}, nil), cacheFor(time.Minute))
	require.NoError(t, err)
	require.Equal(t, product{ID: 1}, v)
	require.EqualValues(t, 1, calls.Load())
	require.Equal(t, 1, hooks.count("cache_miss"))

	require.NoError(t, cl.Wait(ctx))
	stored, _, ok, err := testStore(cl).Get(ctx, mustCacheKey(t, cl, K("products")))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, product{ID: 1}, stored)
}

func TestQueryFreshEntrySkipsFn(t *testing.T) {
	ctx := context.Background()
	hooks := newRecHooks()
	cl := newTestClient(t, newMemProvider(), func(o *Options) { o.Hooks = hooks })
	ck := mustCacheKey(t, cl, K("products"))
	require.NoError(t, testStore(cl).Set(ctx, ck, product{ID: 1}, SetOptions{MaxAge: time.Minute}))

	var calls atomic.Int32
	v, err := Await(ctx, cl, K("products"), countingFn(&calls, product{ID: 99}, nil), cacheFor(time.Minute))
	require.NoError(t, err)
	require.Equal(t, product{ID: 1}, v)
	require.Zero(t, calls.Load())
	require.Equal(t, 1, hooks.count("cache_hit"))
}

func TestQueryFailureSurfacesAndRetries(t *testing.T) {
	ctx := context.Background()
	cl := newTestClient(t, newMemProvider(), nil)
	boom := errors.New("upstream down")

	var calls atomic.Int32
	fn := countingFn(&calls, product{}, boom)

	_, err := Await(ctx, cl, K("products"), fn, cacheFor(time.Minute))
	require.ErrorIs(t, err, boom)
	require.Zero(t, cl.InFlight(), "errored entry should be dropped")

	_, err = Await(ctx, cl, K("products"), fn, cacheFor(time.Minute))
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 2, calls.Load())

	require.NoError(t, cl.Wait(ctx))
	_, _, ok, _ := testStore(cl).Get(ctx, mustCacheKey(t, cl, K("products")))
	require.False(t, ok, "failed fetch must not be cached")
}

func TestQueryCleanupWithoutCacheIsImmediate(t *testing.T) {
	ctx := context.Background()
	cl := newTestClient(t, newMemProvider(), nil)

	var calls atomic.Int32
	fn := countingFn(&calls, 5, nil)

	v, err := Await(ctx, cl, K("n"), fn, nil)
	require.NoError(t, err)
	require.Equal(t, 5, v)
	require.Zero(t, cl.InFlight())

	_, err = Await(ctx, cl, K("n"), fn, nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load())
}

func TestQueryCleanupWithCacheIsDelayedByMaxAge(t *testing.T) {
	ctx := context.Background()
	cl := newTestClient(t, newMemProvider(), nil)

	var calls atomic.Int32
	fn := countingFn(&calls, product{ID: 1}, nil)
	opts := cacheFor(50 * time.Millisecond)

	_, err := Await(ctx, cl, K("products"), fn, opts)
	require.NoError(t, err)
	require.Equal(t, 1, cl.InFlight())

	require.Eventually(t, func() bool { return cl.InFlight() == 0 }, time.Second, 5*time.Millisecond)
}

func TestPreloadAvoidsWaterfall(t *testing.T) {
	ctx := context.Background()
	cl := newTestClient(t, newMemProvider(), nil)

	var calls atomic.Int32
	release := make(chan struct{})
	fn := gatedFn(&calls, release, product{ID: 3})

	require.NoError(t, Preload(ctx, cl, K("products", "3"), fn, nil))
	require.NoError(t, Preload(ctx, cl, K("products", "3"), fn, nil))
	require.Equal(t, 1, cl.InFlight())

	close(release)
	v, err := Await(ctx, cl, K("products", "3"), fn, nil)
	require.NoError(t, err)
	require.Equal(t, product{ID: 3}, v)
	require.EqualValues(t, 1, calls.Load())
}

func TestQueryTypeMismatch(t *testing.T) {
	ctx := context.Background()
	cl := newTestClient(t, nil, nil)

	release := make(chan struct{})
	defer close(release)
	var calls atomic.Int32
	require.NoError(t, Preload(ctx, cl, K("k"), gatedFn(&calls, release, 1), nil))

	_, err := Query(ctx, cl, K("k"), func(context.Context) (string, error) { return "x", nil }, nil)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestQueryEmptyKey(t *testing.T) {
	cl := newTestClient(t, nil, nil)
	_, err := Query(context.Background(), cl, K(), countingFn(new(atomic.Int32), 1, nil), nil)
	require.ErrorIs(t, err, ErrEmptyKey)
}

func TestQueryWithoutProviderIgnoresCache(t *testing.T) {
	ctx := context.Background()
	cl := newTestClient(t, nil, nil)

	var calls atomic.Int32
	v, err := Await(ctx, cl, K("products"), countingFn(&calls, product{ID: 1}, nil), cacheFor(time.Minute))
	require.NoError(t, err)
	require.Equal(t, product{ID: 1}, v)
	require.Zero(t, cl.InFlight(), "no store => immediate cleanup")
}

func TestQueryDisabledBypassesStore(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cl := newTestClient(t, mp, func(o *Options) { o.Disabled = true })

	_, err := Await(ctx, cl, K("products"), countingFn(new(atomic.Int32), product{ID: 1}, nil), cacheFor(time.Minute))
	require.NoError(t, err)
	require.NoError(t, cl.Wait(ctx))
	require.False(t, mp.has(mustCacheKey(t, cl, K("products"))))
}

func TestQueryStoreReadErrorFallsBackToFn(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	mp.getErr = errors.New("provider down")
	hooks := newRecHooks()
	cl := newTestClient(t, mp, func(o *Options) { o.Hooks = hooks })

	var calls atomic.Int32
	v, err := Await(ctx, cl, K("products"), countingFn(&calls, product{ID: 1}, nil), cacheFor(time.Minute))
	require.NoError(t, err)
	require.Equal(t, product{ID: 1}, v)
	require.EqualValues(t, 1, calls.Load())
	require.Equal(t, 1, hooks.count("store_error:get"))
}

func TestAwaitHonoursContext(t *testing.T) {
	cl := newTestClient(t, nil, nil)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Await(ctx, cl, K("slow"), gatedFn(new(atomic.Int32), release, 1), nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProducerContextNotCancelled(t *testing.T) {
	cl := newTestClient(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	fn := func(ctx context.Context) (error, error) {
		close(started)
		<-release
		return ctx.Err(), nil
	}
	require.NoError(t, Preload(ctx, cl, K("ctx"), fn, nil))
	<-started
	cancel()
	close(release)

	got, err := Await(context.Background(), cl, K("ctx"), fn, nil)
	require.NoError(t, err)
	require.NoError(t, got, "producer must not observe caller cancellation")
}

func TestInvalidateDropsRegistryEntry(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cl := newTestClient(t, mp, nil)

	_, err := Await(ctx, cl, K("products"), countingFn(new(atomic.Int32), product{ID: 1}, nil), cacheFor(time.Minute))
	require.NoError(t, err)
	require.NoError(t, cl.Wait(ctx))
	require.Equal(t, 1, cl.InFlight())

	require.NoError(t, cl.Invalidate(ctx, K("products")))
	require.Zero(t, cl.InFlight())
	require.False(t, mp.has(mustCacheKey(t, cl, K("products"))))
}
