// Package observe provides observability primitives for provider calls.
//
// An Observer owns the OpenTelemetry tracer and meter providers and a JSON
// structured Logger. A Middleware built from it wraps a single provider
// attempt with a span, the attempt metrics and a log line; the fallback
// orchestrator runs every attempt through one.
//
// Metric names:
//
//	provider.attempt.total        counter, per provider/op
//	provider.attempt.errors       counter, per provider/op/error.kind
//	provider.attempt.duration_ms  histogram
//	fallback.degraded.total       counter, per op
//	cache.lookups.total           counter, per provider/op/cache.hit
package observe
