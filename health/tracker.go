package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonwraymond/partsource/clock"
	"github.com/jonwraymond/partsource/provider"
)

// State is the circuit state of one provider.
type State int

const (
	// StateHealthy providers are tried.
	StateHealthy State = iota
	// StateUnhealthy providers are skipped until reset.
	StateUnhealthy
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of one provider's health counters.
type Stats struct {
	Healthy               bool               `json:"healthy"`
	ErrorCount            uint               `json:"errorCount"`
	SuccessCount          uint               `json:"successCount"`
	LastUsedAt            time.Time          `json:"lastUsedAt,omitzero"`
	AverageResponseTimeMs float64            `json:"averageResponseTimeMs"`
	LastErrorKind         provider.ErrorKind `json:"lastErrorKind,omitempty"`
}

// State returns the circuit state implied by s.
func (s Stats) State() State {
	if s.Healthy {
		return StateHealthy
	}
	return StateUnhealthy
}

// TrackerConfig configures a Tracker.
type TrackerConfig struct {
	// Threshold is the error count a provider may reach and stay healthy.
	// One more failure marks it unhealthy.
	// Default: 5
	Threshold uint

	// Clock is the time source for LastUsedAt.
	// Default: clock.Real
	Clock clock.Clock

	// OnStateChange is called after a provider changes state.
	OnStateChange func(name string, from, to State)
}

// Tracker is a counter-based circuit breaker with hysteresis.
//
// A failure adds one to the error count and takes one from the success
// count; a success does the reverse. Counters never go below zero. A
// provider becomes unhealthy as soon as its error count exceeds the
// threshold, and a success only restores health once the count is back at
// or under it, so recovery after a long failure streak is gradual. Reset
// clears the error count outright.
//
// Every entry has its own lock; calls for different providers never
// contend.
type Tracker struct {
	config TrackerConfig
	clock  clock.Clock

	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	stats   Stats
	samples uint64
}

// NewTracker creates a new tracker.
func NewTracker(config TrackerConfig) *Tracker {
	if config.Threshold == 0 {
		config.Threshold = 5
	}

	return &Tracker{
		config:  config,
		clock:   clock.OrReal(config.Clock),
		entries: make(map[string]*entry),
	}
}

// Threshold returns the configured threshold.
func (t *Tracker) Threshold() uint {
	return t.config.Threshold
}

// Add starts tracking name as healthy. Adding a tracked name is a no-op.
func (t *Tracker) Add(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[name]; !ok {
		t.entries[name] = &entry{stats: Stats{Healthy: true}}
	}
}

func (t *Tracker) lookup(name string) (*entry, error) {
	t.mu.RLock()
	e, ok := t.entries[name]
	t.mu.RUnlock()

	if !ok {
		return nil, ErrUnknownProvider
	}
	return e, nil
}

// RecordSuccess credits a successful call that took d.
func (t *Tracker) RecordSuccess(name string, d time.Duration) error {
	e, err := t.lookup(name)
	if err != nil {
		return err
	}

	e.mu.Lock()
	from := e.stats.State()

	e.stats.SuccessCount++
	if e.stats.ErrorCount > 0 {
		e.stats.ErrorCount--
	}
	e.stats.Healthy = e.stats.ErrorCount <= t.config.Threshold

	e.samples++
	ms := float64(d) / float64(time.Millisecond)
	e.stats.AverageResponseTimeMs += (ms - e.stats.AverageResponseTimeMs) / float64(e.samples)
	e.stats.LastUsedAt = t.clock.Now()

	to := e.stats.State()
	e.mu.Unlock()

	t.notify(name, from, to)
	return nil
}

// RecordFailure debits a failed call of the given kind.
func (t *Tracker) RecordFailure(name string, kind provider.ErrorKind) error {
	e, err := t.lookup(name)
	if err != nil {
		return err
	}

	e.mu.Lock()
	from := e.stats.State()

	e.stats.ErrorCount++
	if e.stats.SuccessCount > 0 {
		e.stats.SuccessCount--
	}
	if e.stats.ErrorCount > t.config.Threshold {
		e.stats.Healthy = false
	}
	e.stats.LastErrorKind = kind
	e.stats.LastUsedAt = t.clock.Now()

	to := e.stats.State()
	e.mu.Unlock()

	t.notify(name, from, to)
	return nil
}

// Record applies an attempt outcome.
func (t *Tracker) Record(o provider.AttemptOutcome) error {
	if o.Success {
		return t.RecordSuccess(o.Provider, o.Duration)
	}
	return t.RecordFailure(o.Provider, o.Kind)
}

// Reset clears the error count and marks the named providers healthy. With
// no names every provider is reset.
func (t *Tracker) Reset(names ...string) error {
	if len(names) == 0 {
		names = t.Names()
	}

	for _, name := range names {
		e, err := t.lookup(name)
		if err != nil {
			return err
		}

		e.mu.Lock()
		from := e.stats.State()
		e.stats.ErrorCount = 0
		e.stats.Healthy = true
		e.mu.Unlock()

		t.notify(name, from, StateHealthy)
	}
	return nil
}

// IsUsable reports whether name is tracked and healthy.
func (t *Tracker) IsUsable(name string) bool {
	s, ok := t.Stats(name)
	return ok && s.Healthy
}

// Stats returns a snapshot of name's counters.
func (t *Tracker) Stats(name string) (Stats, bool) {
	e, err := t.lookup(name)
	if err != nil {
		return Stats{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats, true
}

// Names returns the tracked names, sorted.
func (t *Tracker) Names() []string {
	t.mu.RLock()
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	t.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Snapshot returns the counters of every tracked provider.
func (t *Tracker) Snapshot() map[string]Stats {
	out := make(map[string]Stats)
	for _, name := range t.Names() {
		if s, ok := t.Stats(name); ok {
			out[name] = s
		}
	}
	return out
}

// Unhealthy returns the names of providers currently marked unhealthy.
func (t *Tracker) Unhealthy() []string {
	var names []string
	for _, name := range t.Names() {
		if !t.IsUsable(name) {
			names = append(names, name)
		}
	}
	return names
}

// Rehabilitate resets every unhealthy provider each interval until ctx is
// done. It blocks; run it in its own goroutine.
func (t *Tracker) Rehabilitate(ctx context.Context, interval time.Duration, onReset func(names []string)) {
	if interval <= 0 {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.clock.After(interval):
		}

		names := t.Unhealthy()
		if len(names) == 0 {
			continue
		}
		_ = t.Reset(names...)
		if onReset != nil {
			onReset(names)
		}
	}
}

func (t *Tracker) notify(name string, from, to State) {
	if from != to && t.config.OnStateChange != nil {
		t.config.OnStateChange(name, from, to)
	}
}
