package service

import "errors"

var (
	// ErrCacheDisabled is returned by cache operations when no store is
	// configured.
	ErrCacheDisabled = errors.New("service: cache disabled")

	// ErrUnknownProvider is returned when a name is in neither registry.
	ErrUnknownProvider = errors.New("service: unknown provider")
)
