package secret

import "errors"

var (
	// ErrMissingEnv indicates ${VAR} named an unset variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrUnknownScheme indicates a secretref with no registered Provider.
	ErrUnknownScheme = errors.New("secret: unknown scheme")

	// ErrNotFound indicates the provider has no value for the reference.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmpty indicates a reference resolved to the empty string.
	ErrEmpty = errors.New("secret: empty value")
)
