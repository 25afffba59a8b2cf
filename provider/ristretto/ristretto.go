package ristretto

import (
	"context"
	"errors"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

// Provider adapts Ristretto. Writes are waited on so a Get issued right after
// Set observes the value; Ristretto buffers Sets otherwise.
//
// Ristretto's admission policy may drop any write, which a set-if-absent
// flag cannot tolerate. Values written with Add are therefore pinned in a
// side table and never go through the policy; they expire by their TTL.
type Provider struct {
	c  *rc.Cache
	mu sync.Mutex // guards pinned and Add's check-and-set

	pinned map[string]pinnedEntry
}

type pinnedEntry struct {
	v   []byte
	exp time.Time // zero => no expiry
}

func (e pinnedEntry) expired(now time.Time) bool {
	return !e.exp.IsZero() && !now.Before(e.exp)
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, pinned: make(map[string]pinnedEntry)}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	b, ok := p.pinnedLocked(key, time.Now())
	p.mu.Unlock()
	if ok {
		return b, true, nil
	}

	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ = v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pinned, key)
	return p.set(key, value, cost, ttl), nil
}

func (p *Provider) set(key string, value []byte, cost int64, ttl time.Duration) bool {
	if ttl < 0 {
		ttl = 0
	}
	ok := p.c.SetWithTTL(key, value, cost, ttl)
	p.c.Wait()
	return ok
}

// Add stores value only if key is absent. The value is pinned: it is not
// subject to eviction and stays until Del or until ttl elapses.
func (p *Provider) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pinnedLocked(key, now); ok {
		return false, nil
	}
	if _, ok := p.c.Get(key); ok {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	p.pinned[key] = pinnedEntry{v: value, exp: exp}
	return true, nil
}

func (p *Provider) pinnedLocked(key string, now time.Time) ([]byte, bool) {
	e, ok := p.pinned[key]
	if !ok {
		return nil, false
	}
	if e.expired(now) {
		delete(p.pinned, key)
		return nil, false
	}
	return e.v, true
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.pinned, key)
	p.c.Del(key)
	p.mu.Unlock()
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.mu.Lock()
	clear(p.pinned)
	p.mu.Unlock()
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes Ristretto's counters (nil unless Config.Metrics is set).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
