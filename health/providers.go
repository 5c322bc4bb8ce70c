package health

import (
	"context"
	"fmt"
)

// TrackerChecker reports the circuit state of a provider pool.
//
// The pool is healthy when every provider is usable, degraded when some
// are tripped, and unhealthy when none is usable. A pool with no providers
// is unhealthy.
type TrackerChecker struct {
	name    string
	tracker *Tracker
}

// NewTrackerChecker exposes tracker as a Checker called name.
func NewTrackerChecker(name string, tracker *Tracker) *TrackerChecker {
	return &TrackerChecker{name: name, tracker: tracker}
}

// Name returns the pool name.
func (c *TrackerChecker) Name() string {
	return c.name
}

// Check summarizes the tracker.
func (c *TrackerChecker) Check(context.Context) Result {
	snapshot := c.tracker.Snapshot()
	if len(snapshot) == 0 {
		return Unhealthy("no providers registered", nil)
	}

	details := make(map[string]any, len(snapshot))
	tripped := 0
	for name, s := range snapshot {
		details[name] = map[string]any{
			"state":        s.State().String(),
			"errorCount":   s.ErrorCount,
			"successCount": s.SuccessCount,
			"avgMs":        s.AverageResponseTimeMs,
		}
		if !s.Healthy {
			tripped++
		}
	}

	var r Result
	switch {
	case tripped == 0:
		r = Healthy(fmt.Sprintf("%d providers usable", len(snapshot)))
	case tripped < len(snapshot):
		r = Degraded(fmt.Sprintf("%d of %d providers unhealthy", tripped, len(snapshot)))
	default:
		r = Unhealthy("all providers unhealthy", nil)
	}
	return r.WithDetails(details)
}
