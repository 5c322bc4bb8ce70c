package config

import "errors"

var (
	// ErrMissingField is returned when a required field is empty.
	ErrMissingField = errors.New("config: required field missing")

	// ErrInvalidValue is returned when a field holds an unusable value.
	ErrInvalidValue = errors.New("config: invalid value")

	// ErrDuplicateProvider is returned when two providers in one registry
	// share a name.
	ErrDuplicateProvider = errors.New("config: duplicate provider name")

	// ErrUnknownType is returned for an unsupported provider type or
	// cache backend.
	ErrUnknownType = errors.New("config: unknown type")
)
