package resilience

import (
	"cmp"
	"context"
	"math/rand/v2"
	"time"

	"github.com/jonwraymond/partsource/clock"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// BaseDelay is the delay before the first retry. The delay before
	// attempt n+1 is BaseDelay * 2^(n-1).
	// Default: 200ms
	BaseDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 10s
	MaxDelay time.Duration

	// Jitter adds up to 25% random delay on top of the computed backoff.
	// Default: false
	Jitter bool

	// RetryIf reports whether an error is transient. Errors for which it
	// returns false are returned immediately.
	// Default: all non-nil errors are retried.
	RetryIf func(err error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Clock is the time source for backoff waits.
	// Default: clock.Real
	Clock clock.Clock
}

// Retry re-runs a failed provider attempt with capped exponential backoff.
type Retry struct {
	config RetryConfig
	clock  clock.Clock
}

func NewRetry(cfg RetryConfig) *Retry {
	cfg.MaxAttempts = cmp.Or(max(cfg.MaxAttempts, 0), 3)
	cfg.BaseDelay = cmp.Or(max(cfg.BaseDelay, 0), 200*time.Millisecond)
	cfg.MaxDelay = cmp.Or(max(cfg.MaxDelay, 0), 10*time.Second)
	if cfg.RetryIf == nil {
		cfg.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{config: cfg, clock: clock.OrReal(cfg.Clock)}
}

// Execute is Do for operations without a result.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := Do(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do runs fn until it succeeds, fails with an error RetryIf rejects, or
// the attempt budget is spent. The last case returns a *RetryError wrapping
// the final cause. Cancellation during a backoff wait returns ctx.Err().
func Do[T any](ctx context.Context, r *Retry, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero T
		err  error
	)
	for n := 1; ; n++ {
		var v T
		if v, err = fn(ctx); err == nil {
			return v, nil
		}
		switch {
		case !r.config.RetryIf(err):
			return zero, err
		case ctx.Err() != nil:
			return zero, ctx.Err()
		case n == r.config.MaxAttempts:
			return zero, &RetryError{Attempts: n, Last: err}
		}

		wait := r.Delay(n)
		if r.config.OnRetry != nil {
			r.config.OnRetry(n, err, wait)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-r.clock.After(wait):
		}
	}
}

// Delay is the wait after failed attempt n (1-based): BaseDelay doubled
// n-1 times, capped at MaxDelay, plus up to 25% jitter when enabled.
func (r *Retry) Delay(n int) time.Duration {
	d := r.config.BaseDelay
	for range max(n, 1) - 1 {
		if d >= r.config.MaxDelay {
			break
		}
		d *= 2
	}
	d = min(d, r.config.MaxDelay)

	if r.config.Jitter && d >= 4 {
		// #nosec G404 -- timing variance, not security.
		d += rand.N(d / 4)
	}
	return d
}

// Config returns the configuration with defaults applied.
func (r *Retry) Config() RetryConfig { return r.config }
