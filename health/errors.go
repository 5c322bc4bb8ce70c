package health

import "errors"

var (
	// ErrCheckTimedOut is the Error of a Result whose probe outlived the
	// aggregator timeout.
	ErrCheckTimedOut = errors.New("health: check timed out")

	// ErrUnknownCheck is returned by Aggregator.Check for unregistered names.
	ErrUnknownCheck = errors.New("health: unknown check")

	// ErrUnknownProvider is returned for names the tracker does not know.
	ErrUnknownProvider = errors.New("health: unknown provider")
)
