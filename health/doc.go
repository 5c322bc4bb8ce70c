// Package health tracks provider health and reports it.
//
// # Tracker
//
// Tracker is the circuit breaker consulted before every provider attempt.
// It keeps two bounded counters per provider rather than an outcome log:
//
//	tracker := health.NewTracker(health.TrackerConfig{Threshold: 3})
//	tracker.Add("catalog")
//
//	tracker.RecordFailure("catalog", provider.KindTransient)
//	tracker.RecordSuccess("catalog", 120*time.Millisecond)
//
//	if tracker.IsUsable("catalog") {
//	    // call it
//	}
//
// A provider trips once its error count exceeds the threshold. Each
// success credits one failure back, so recovery is gradual. Reset and the
// Rehabilitate loop restore providers explicitly.
//
// # Reporting
//
// TrackerChecker turns a tracker into a Checker. Aggregator runs checkers
// together and the HTTP handlers expose them:
//
//	agg := health.NewAggregator(health.AggregatorConfig{})
//	agg.Register(health.NewTrackerChecker("sources", sources.Tracker()))
//	health.RegisterHandlers(router, agg)
package health
