package resilience

import (
	"context"
	"time"

	"github.com/jonwraymond/partsource/clock"
)

// TimeoutConfig configures the timeout racer.
type TimeoutConfig struct {
	// Timeout is the maximum duration for one attempt.
	// Default: 30 seconds
	Timeout time.Duration

	// Clock is the time source for the race timer.
	// Default: clock.Real
	Clock clock.Clock
}

// Timeout races operations against a timer.
//
// The race is best-effort: when the timer wins, the operation's context is
// cancelled and its result is discarded, but the goroutine keeps running
// until the operation itself returns. Side effects it performs after that
// point (a late cache write, for example) still happen.
type Timeout struct {
	config TimeoutConfig
	clock  clock.Clock
}

// NewTimeout creates a new timeout racer.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Timeout{config: config, clock: clock.OrReal(config.Clock)}
}

// Execute runs the operation with a timeout.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := Race(ctx, t, 0, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}

// Race runs fn against a timer of length d, or t's configured timeout when d
// is not positive. If the timer fires first it returns ErrTimeout; if ctx
// ends first it returns ctx.Err().
func Race[T any](ctx context.Context, t *Timeout, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if d <= 0 {
		d = t.config.Timeout
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)

	go func() {
		v, err := fn(runCtx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-t.clock.After(d):
		return zero, ErrTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// ExecuteWithTimeout is a convenience function to run an operation with timeout.
func ExecuteWithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	t := NewTimeout(TimeoutConfig{Timeout: timeout})
	return t.Execute(ctx, op)
}
