package swrcache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; they run on the query path.
// Keys passed to hooks are cache keys (already hashed), never raw query parts.
type Hooks interface {
	// A Query/Preload reused an entry already in the dedup registry.
	Deduplicated(key string)
	// A Query returned a SuspendedError.
	Suspended(key string)

	// Store lookups.
	CacheHit(key string)
	CacheMiss(key string)
	StaleServed(key string)

	// Background regeneration was not started because the lock is held.
	RegenerationSkipped(key string)
	// Background regeneration failed (producer error or panic). The stale
	// entry stays in place.
	RegenerationFailed(key string, err error)

	// A store or lock operation failed. op ∈ {"get", "set", "lock", "unlock"}.
	StoreError(key, op string, err error)

	// An entry was deleted on read.
	// reason ∈ {"corrupt", "gen_mismatch", "value_decode"}
	SelfHeal(key, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(key string)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) Deduplicated(string)              {}
func (NopHooks) Suspended(string)                 {}
func (NopHooks) CacheHit(string)                  {}
func (NopHooks) CacheMiss(string)                 {}
func (NopHooks) StaleServed(string)               {}
func (NopHooks) RegenerationSkipped(string)       {}
func (NopHooks) RegenerationFailed(string, error) {}
func (NopHooks) StoreError(string, string, error) {}
func (NopHooks) SelfHeal(string, string)          {}
func (NopHooks) ProviderSetRejected(string)       {}
