package observe

import "errors"

var (
	// ErrInvalidConfig is wrapped by every Config.Validate failure. The
	// wrapping message names the offending field.
	ErrInvalidConfig = errors.New("observe: invalid config")

	// ErrNilObserver is returned by MiddlewareFromObserver for a nil Observer.
	ErrNilObserver = errors.New("observe: observer is nil")
)
