// Package bincache is a bin-scoped cache for short-lived CLI processes.
// A bin is a named, independent partition of the keyspace; each bin resolves
// to exactly one storage backend per process, created lazily by a Registry
// the application owns (no hidden globals, fresh registry per test).
//
// Components:
//   - backend.Backend: per-bin byte store (memory, file, Redis, BigCache,
//     Ristretto) honoring the Permanent/Temporary/ExpiresAt policy.
//   - codec.Codec[V]: (de)serializes V <-> []byte.
//   - Registry: bin name -> backend, one instance per bin per process.
//   - Cache[V]: the facade; default bin handling, HIT/MISS tracing,
//     wildcard invalidation, whole-cache sweeps.
//
// Misses and rejected writes are ordinary return values, never errors:
// caching is an optional optimization and must not abort the caller's task.
// Backend I/O failures propagate unmodified.
//
//	reg := bincache.NewRegistry(file.Factory(dir))
//	c, _ := bincache.New[Manifest](bincache.Options[Manifest]{
//	    Registry: reg,
//	    Codec:    codec.JSON[Manifest]{},
//	})
//	c.Set(ctx, "", "commands", m, bincache.ExpiresIn(time.Hour))
//	m, ok, _ := c.Get(ctx, "", "commands")
package bincache
