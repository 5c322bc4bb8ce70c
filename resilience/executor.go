package resilience

import (
	"context"
	"time"
)

// Executor is the per-attempt pipeline used for one provider call:
//
//	Spacer.Acquire -> Retry -> Race
//
// The spacer runs before every attempt, retries included, so backoff never
// lets a provider be called faster than its spacing allows. Each attempt is
// raced against its own timer.
type Executor struct {
	spacer  *Spacer
	retry   *Retry
	timeout *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new attempt pipeline. Missing stages are skipped.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithSpacer adds per-provider call spacing.
func WithSpacer(s *Spacer) ExecutorOption {
	return func(e *Executor) {
		e.spacer = s
	}
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithTimeout adds a default per-attempt timeout.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
	}
}

// WithTimeoutConfig adds a timeout racer with custom config.
func WithTimeoutConfig(t *Timeout) ExecutorOption {
	return func(e *Executor) {
		e.timeout = t
	}
}

// Spacer returns the configured spacer, or nil.
func (e *Executor) Spacer() *Spacer { return e.spacer }

// Execute runs op for provider name through the pipeline.
func (e *Executor) Execute(ctx context.Context, name string, op func(context.Context) error) error {
	_, err := Run(ctx, e, name, 0, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Run executes fn for provider name through the pipeline. timeout overrides
// the executor's per-attempt timeout when positive; with no racer configured
// a positive timeout still bounds each attempt.
func Run[T any](ctx context.Context, e *Executor, name string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	attempt := fn

	racer := e.timeout
	if racer == nil && timeout > 0 {
		racer = NewTimeout(TimeoutConfig{Timeout: timeout})
	}
	if racer != nil {
		inner := attempt
		attempt = func(ctx context.Context) (T, error) {
			return Race(ctx, racer, timeout, inner)
		}
	}

	if e.spacer != nil {
		inner := attempt
		attempt = func(ctx context.Context) (T, error) {
			var zero T
			if err := e.spacer.Acquire(ctx, name); err != nil {
				return zero, err
			}
			return inner(ctx)
		}
	}

	if e.retry == nil {
		return attempt(ctx)
	}
	return Do(ctx, e.retry, attempt)
}
