// Package keyhash turns ordered key parts into stable, fixed-width digests.
package keyhash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// digestLen is the number of hex chars kept from the sha256 sum (128 bits).
const digestLen = 32

// Sum returns a deterministic digest of parts. Order matters; each part is
// length-prefixed (u32 be) before hashing, so ["a,b"] and ["a","b"] never
// collide and the empty string is a distinct part.
func Sum(parts []string) string {
	h := sha256.New()
	var n [4]byte
	for _, p := range parts {
		binary.BigEndian.PutUint32(n[:], uint32(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:digestLen]
}

// Namespaced returns prefix + ":" + ns + ":" + Sum(parts).
func Namespaced(prefix, ns string, parts []string) string {
	return prefix + ":" + ns + ":" + Sum(parts)
}
