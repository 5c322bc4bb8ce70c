// Package resilience provides the per-attempt pipeline used when calling an
// external provider.
//
// # Patterns
//
//   - Spacer: guarantees a minimum interval between two calls to the same
//     provider. Callers reserve slots in order and sleep until theirs.
//
//   - Retry: bounded exponential backoff, BaseDelay * 2^(attempt-1). Only
//     errors accepted by RetryIf are retried; others fail immediately.
//     Exhaustion yields a *RetryError carrying the last cause.
//
//   - Race: runs an attempt against a timer and returns ErrTimeout if the
//     timer wins. This is best-effort: the attempt's context is cancelled
//     but the attempt itself is abandoned, not terminated.
//
//   - Bulkhead: caps the number of logical requests in flight.
//
// # Usage
//
//	exec := resilience.NewExecutor(
//	    resilience.WithSpacer(resilience.NewSpacer(resilience.SpacerConfig{
//	        MinInterval: 500 * time.Millisecond,
//	    })),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxAttempts: 3,
//	        BaseDelay:   200 * time.Millisecond,
//	        RetryIf:     provider.IsRetryable,
//	    })),
//	    resilience.WithTimeout(8*time.Second),
//	)
//
//	parts, err := resilience.Run(ctx, exec, "catalog", 0,
//	    func(ctx context.Context) ([]provider.NormalizedResult, error) {
//	        return src.SearchParts(ctx, "rtx 4070", "gpu", 10)
//	    })
//
// All waits go through a clock.Clock so tests can drive them with
// clock.Fake.
package resilience
