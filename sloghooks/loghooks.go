package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/swrcache"
)

type Options struct {
	// Sampling for the chatty events; 0/1 = log all.
	DedupEvery    uint64
	StaleEvery    uint64
	SelfHealEvery uint64
	// Log cache hits and misses at debug level. Off by default.
	LogLookups bool
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	dedupCtr    atomic.Uint64
	staleCtr    atomic.Uint64
	selfHealCtr atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Deduplicated(key string) {
	if h.l == nil || !sample(h.opts.DedupEvery, &h.dedupCtr) {
		return
	}
	h.l.Debug("swrcache.deduplicated", "key", h.redact(key))
}

func (h *Hooks) Suspended(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("swrcache.suspended", "key", h.redact(key))
}

func (h *Hooks) CacheHit(key string) {
	if h.l == nil || !h.opts.LogLookups {
		return
	}
	h.l.Debug("swrcache.cache_hit", "key", h.redact(key))
}

func (h *Hooks) CacheMiss(key string) {
	if h.l == nil || !h.opts.LogLookups {
		return
	}
	h.l.Debug("swrcache.cache_miss", "key", h.redact(key))
}

func (h *Hooks) StaleServed(key string) {
	if h.l == nil || !sample(h.opts.StaleEvery, &h.staleCtr) {
		return
	}
	h.l.Info("swrcache.stale_served", "key", h.redact(key))
}

func (h *Hooks) RegenerationSkipped(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("swrcache.regeneration_skipped", "key", h.redact(key))
}

func (h *Hooks) RegenerationFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.regeneration_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) StoreError(key, op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("swrcache.store_error",
		"key", h.redact(key),
		"op", op,
		"err", err)
}

func (h *Hooks) SelfHeal(key, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("swrcache.self_heal",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(key string) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.provider_set_rejected", "key", h.redact(key))
}
