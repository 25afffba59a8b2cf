package swrcache

import (
	"time"

	c "github.com/unkn0wn-root/swrcache/codec"
)

const (
	defaultMaxAge       = time.Minute
	defaultLockTTL      = 30 * time.Second
	defaultGenRetention = 30 * 24 * time.Hour
	defaultSweep        = time.Hour
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func (o *CacheOptions[V]) withDefaults() CacheOptions[V] {
	out := *o
	if out.MaxAge <= 0 {
		out.MaxAge = defaultMaxAge
	}
	if out.Codec == nil {
		out.Codec = c.JSON[V]{}
	}
	return out
}

func (o *CacheOptions[V]) setOptions(observedGen uint64) SetOptions {
	return SetOptions{MaxAge: o.MaxAge, StaleTTL: o.StaleTTL, Gen: observedGen}
}
