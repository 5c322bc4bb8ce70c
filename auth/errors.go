package auth

import "errors"

var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")

	// ErrKeyNotFound is returned by a KeyProvider with no key for a token.
	ErrKeyNotFound = errors.New("auth: signing key not found")

	// ErrForbidden is matched by every Authorizer denial.
	ErrForbidden = errors.New("auth: access denied")
)
