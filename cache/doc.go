// Package cache memoizes provider responses with a TTL.
//
// A Store is keyed by (identifier, provider) and supports upsert, expiry,
// sweeping and counting. Three backends are provided:
//
//   - MemoryStore: in process.
//   - LevelDBStore: durable, on local disk.
//   - RedisStore: shared between processes; expiry is native to Redis.
//
// CachedSource and CachedGenerator wrap an adapter so that it consults the
// store before calling out and writes to it after a success:
//
//	src := cache.NewCachedSource(catalog, cache.Options{
//	    Provider: "catalog",
//	    Store:    store,
//	})
//
// A miss, an expired entry or an unreachable backend is never an error; the
// call simply goes to the provider. Errors are never cached. Concurrent
// misses for the same key share one upstream call; it runs detached from the
// callers, bounded by Options.FetchTimeout, and each caller stops waiting
// when its own context ends.
//
// CachedSearch, CachedDetails and CachedComparison read the store without
// calling out. The fallback orchestrator uses them to answer before an
// attempt, so a hit is neither spaced nor counted toward provider health.
package cache
