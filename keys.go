package swrcache

import "github.com/unkn0wn-root/swrcache/internal/keyhash"

// Key identifies a logical query as an ordered list of parts.
//
// K("products") and Key{"products"} are the same key: a single string is a
// one-part key. Parts are length-prefixed before hashing, so
// K("a,b") != K("a", "b") and part order is significant.
type Key []string

// K builds a Key from parts.
func K(parts ...string) Key { return Key(parts) }

// Hash returns the deterministic digest of k. Equal content always yields the
// same digest, independent of slice identity.
func (k Key) Hash() (string, error) {
	if len(k) == 0 {
		return "", ErrEmptyKey
	}
	return keyhash.Sum(k), nil
}

const (
	cacheKeyPrefix = "q"
	lockKeyPrefix  = "lock-"
)

// LockKey derives the regeneration-lock key for a cache key.
// Cache keys start with "q:", so a lock key never equals a cache key.
func LockKey(cacheKey string) string { return lockKeyPrefix + cacheKey }

func cacheKey(ns string, k Key) (string, error) {
	if len(k) == 0 {
		return "", ErrEmptyKey
	}
	return keyhash.Namespaced(cacheKeyPrefix, ns, k), nil
}
