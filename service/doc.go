// Package service builds a running partsource instance from a config.Config.
//
// New instantiates the configured adapters, wraps them in caching
// decorators, registers them in a source and a generator registry, and
// wires the orchestrator, health aggregator and telemetry around them.
// Run drives the background loops (cache sweeping and provider
// rehabilitation) and Close releases the cache store and telemetry
// exporters.
//
// The HTTP surface and the CLI both sit on top of a Service.
package service
