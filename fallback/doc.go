// Package fallback tries provider registries in priority order and turns
// their answers into one result.
//
// # Operations
//
//   - Search: walks the source registry, accumulating results until the
//     limit is reached, then deduplicates by name and brand.
//   - Resolve: returns the first provider's detail answer; when every
//     candidate fails it returns a degraded placeholder.
//   - Compare: asks the generator registry for a comparison of two parts;
//     when every candidate fails it returns a templated comparison built
//     locally.
//
// Every attempt runs through a resilience.Executor (spacing, retry,
// timeout) wrapped by observe.Middleware, and its outcome is recorded in the
// registry's health.Tracker. Providers the tracker marks unusable, or that
// report IsAvailable() == false, are skipped without being called.
//
// Provider failures never surface as errors. The only errors returned are
// ErrNoProviders, resilience.ErrBulkheadFull when a bulkhead is configured,
// and the caller's ctx.Err().
package fallback
