package fallback

import "errors"

var (
	// ErrNoProviders is returned when the registry needed by an operation
	// is nil or empty.
	ErrNoProviders = errors.New("fallback: no providers registered")

	// errAllProvidersExhausted marks a first-success walk in which every
	// candidate was skipped or failed. It never leaves the package.
	errAllProvidersExhausted = errors.New("fallback: all providers exhausted")
)
