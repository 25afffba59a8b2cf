// Package asynchook moves hook delivery off the query path.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{StaleEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	client, _ := swrcache.New(swrcache.Options{
//	    Namespace: "app:prod",
//	    Provider:  provider,
//	    Hooks:     hooks, // or raw if you don't need async
//	})
//
// Events are dropped, not queued, when the buffer is full.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/swrcache"
)

type Hooks struct {
	inner   swrcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends on a closed q
	closed  bool
	dropped atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(inner swrcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are
// dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) Deduplicated(k string)        { h.try(func() { h.inner.Deduplicated(k) }) }
func (h *Hooks) Suspended(k string)           { h.try(func() { h.inner.Suspended(k) }) }
func (h *Hooks) CacheHit(k string)            { h.try(func() { h.inner.CacheHit(k) }) }
func (h *Hooks) CacheMiss(k string)           { h.try(func() { h.inner.CacheMiss(k) }) }
func (h *Hooks) StaleServed(k string)         { h.try(func() { h.inner.StaleServed(k) }) }
func (h *Hooks) RegenerationSkipped(k string) { h.try(func() { h.inner.RegenerationSkipped(k) }) }
func (h *Hooks) ProviderSetRejected(k string) { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) SelfHeal(k, r string)         { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) RegenerationFailed(k string, err error) {
	h.try(func() { h.inner.RegenerationFailed(k, err) })
}
func (h *Hooks) StoreError(k, op string, err error) {
	h.try(func() { h.inner.StoreError(k, op, err) })
}
