package promhooks

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New(reg, Options{Namespace: "shop"})

	h.CacheHit("k")
	h.CacheHit("k")
	h.CacheMiss("k")
	h.StaleServed("k")
	h.Deduplicated("k")
	h.RegenerationFailed("k", errors.New("x"))
	h.StoreError("k", "set", errors.New("x"))
	h.SelfHeal("k", "corrupt")
	h.ProviderSetRejected("k")

	require.Equal(t, 2.0, testutil.ToFloat64(h.lookups.WithLabelValues("hit")))
	require.Equal(t, 1.0, testutil.ToFloat64(h.lookups.WithLabelValues("stale")))
	require.Equal(t, 1.0, testutil.ToFloat64(h.queries.WithLabelValues("deduplicated")))
	require.Equal(t, 1.0, testutil.ToFloat64(h.regenerate.WithLabelValues("failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(h.storeErrors.WithLabelValues("set")))
	require.Equal(t, 1.0, testutil.ToFloat64(h.setRejected))

	expected := `
# HELP shop_swrcache_self_heals_total Unreadable entries deleted on read.
# TYPE shop_swrcache_self_heals_total counter
shop_swrcache_self_heals_total{reason="corrupt"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "shop_swrcache_self_heals_total"))
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = New(reg, Options{})
	require.Panics(t, func() { New(reg, Options{}) })
}
