// Package swrcache is the data layer behind server-rendered components: it
// deduplicates concurrent queries, lets rendering suspend until data is
// ready, and serves cached results stale-while-revalidate.
//
// Components:
//   - Key: ordered query parts hashed into a namespaced cache key.
//   - Resource[V]: one running query seen synchronously as Pending, Success
//     or Failure.
//   - registry: per-Client table of live Resources, at most one per key.
//   - Store[V]: cache collaborator; the default frames values with a Codec
//     over a byte Provider (Ristretto, BigCache, Redis) and guards writes
//     with per-key generations.
//   - Locker: regeneration lock, stored in the Provider by default.
//
// Keys:
//
//	q:<ns>:<hash>       - cached outputs
//	lock-q:<ns>:<hash>  - regeneration locks
//
// Rendering pattern:
//
//	v, err := swrcache.Query(ctx, client, swrcache.K("products"), fetchProducts,
//		&swrcache.CacheOptions[[]Product]{MaxAge: time.Minute})
//	var s *swrcache.SuspendedError
//	if errors.As(err, &s) {
//		<-s.Done() // then render again
//	}
package swrcache
