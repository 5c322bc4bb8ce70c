package resilience

import (
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations.
var (
	// ErrMaxRetriesExceeded is matched by the error returned when every
	// attempt failed with a retryable error.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrRateLimitExceeded is returned when the next free slot for a
	// provider is further away than the configured MaxWait.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// RetryError is returned once the attempt budget is spent. It matches both
// ErrMaxRetriesExceeded and the last underlying cause.
type RetryError struct {
	Attempts int
	Last     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrMaxRetriesExceeded, e.Attempts, e.Last)
}

func (e *RetryError) Unwrap() []error {
	return []error{ErrMaxRetriesExceeded, e.Last}
}
