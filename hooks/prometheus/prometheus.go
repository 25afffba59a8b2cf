// Package promhooks exports swrcache hook events as Prometheus counters.
// Keys are never used as label values; only bounded dimensions are.
//
//	reg := prometheus.NewRegistry()
//	hooks := promhooks.New(reg, promhooks.Options{Namespace: "shop"})
//	client, _ := swrcache.New(swrcache.Options{Namespace: "shop:prod", Hooks: hooks})
package promhooks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/unkn0wn-root/swrcache"
)

const subsystem = "swrcache"

type Options struct {
	// Namespace prefixes every metric name, e.g. "shop" => shop_swrcache_*.
	Namespace string
	// ConstLabels are attached to every series (instance, tenant...).
	ConstLabels prometheus.Labels
}

type Hooks struct {
	queries     *prometheus.CounterVec // outcome: deduplicated|suspended
	lookups     *prometheus.CounterVec // result: hit|miss|stale
	regenerate  *prometheus.CounterVec // outcome: skipped|failed
	storeErrors *prometheus.CounterVec // op: get|set|lock|unlock
	selfHeals   *prometheus.CounterVec // reason
	setRejected prometheus.Counter
}

var _ swrcache.Hooks = (*Hooks)(nil)

// New registers the counters on reg. It panics if they are already
// registered there, like promauto does.
func New(reg prometheus.Registerer, opts Options) *Hooks {
	f := promauto.With(reg)
	vec := func(name, help, label string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: opts.ConstLabels,
		}, []string{label})
	}

	return &Hooks{
		queries:     vec("queries_total", "Queries that reused a registered entry or suspended.", "outcome"),
		lookups:     vec("lookups_total", "Store lookups by result.", "result"),
		regenerate:  vec("regenerations_total", "Background regenerations that did not complete.", "outcome"),
		storeErrors: vec("store_errors_total", "Failed store and lock operations.", "op"),
		selfHeals:   vec("self_heals_total", "Unreadable entries deleted on read.", "reason"),
		setRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Subsystem:   subsystem,
			Name:        "provider_set_rejected_total",
			Help:        "Writes the provider refused under memory pressure.",
			ConstLabels: opts.ConstLabels,
		}),
	}
}

func (h *Hooks) Deduplicated(string) { h.queries.WithLabelValues("deduplicated").Inc() }
func (h *Hooks) Suspended(string)    { h.queries.WithLabelValues("suspended").Inc() }
func (h *Hooks) CacheHit(string)     { h.lookups.WithLabelValues("hit").Inc() }
func (h *Hooks) CacheMiss(string)    { h.lookups.WithLabelValues("miss").Inc() }
func (h *Hooks) StaleServed(string)  { h.lookups.WithLabelValues("stale").Inc() }

func (h *Hooks) RegenerationSkipped(string) { h.regenerate.WithLabelValues("skipped").Inc() }
func (h *Hooks) RegenerationFailed(string, error) {
	h.regenerate.WithLabelValues("failed").Inc()
}

func (h *Hooks) StoreError(_, op string, _ error) { h.storeErrors.WithLabelValues(op).Inc() }
func (h *Hooks) SelfHeal(_, reason string)        { h.selfHeals.WithLabelValues(reason).Inc() }
func (h *Hooks) ProviderSetRejected(string)       { h.setRejected.Inc() }
