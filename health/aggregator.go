package health

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/partsource/clock"
)

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	// Timeout bounds one Check or a whole CheckAll.
	// Default: 5 seconds
	Timeout time.Duration

	// Clock stamps results.
	// Default: clock.Real
	Clock clock.Clock
}

// Aggregator runs the registered probes (sources, generators, cache) and
// folds them into one status.
type Aggregator struct {
	timeout time.Duration
	clock   clock.Clock

	mu     sync.RWMutex
	byName map[string]int
	checks []Checker
}

func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Aggregator{
		timeout: cfg.Timeout,
		clock:   clock.OrReal(cfg.Clock),
		byName:  make(map[string]int),
	}
}

// Register adds c. A checker with the same name is replaced in place.
func (a *Aggregator) Register(c Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i, ok := a.byName[c.Name()]; ok {
		a.checks[i] = c
		return
	}
	a.byName[c.Name()] = len(a.checks)
	a.checks = append(a.checks, c)
}

// Names lists checkers in registration order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.checks))
	for i, c := range a.checks {
		names[i] = c.Name()
	}
	return names
}

// Check runs the checker registered as name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	i, ok := a.byName[name]
	var c Checker
	if ok {
		c = a.checks[i]
	}
	a.mu.RUnlock()
	if !ok {
		return Result{}, ErrUnknownCheck
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.run(ctx, c), nil
}

// CheckAll runs every checker concurrently under one shared timeout.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	checks := append([]Checker(nil), a.checks...)
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make([]Result, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = a.run(ctx, c)
		}()
	}
	wg.Wait()

	byName := make(map[string]Result, len(checks))
	for i, c := range checks {
		byName[c.Name()] = results[i]
	}
	return byName
}

// OverallStatus is the worst status in results; none at all is healthy.
func OverallStatus(results map[string]Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		worst = max(worst, r.Status)
	}
	return worst
}

// run gives up on c when ctx ends; the probe goroutine is left to finish
// into a buffered channel.
func (a *Aggregator) run(ctx context.Context, c Checker) Result {
	start := a.clock.Now()
	done := make(chan Result, 1)
	go func() { done <- c.Check(ctx) }()

	var r Result
	select {
	case r = <-done:
	case <-ctx.Done():
		r = Unhealthy("check timed out", ErrCheckTimedOut)
	}
	r.Duration = a.clock.Now().Sub(start)
	if r.Timestamp.IsZero() {
		r.Timestamp = start
	}
	return r
}
