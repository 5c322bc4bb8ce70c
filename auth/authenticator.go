package auth

import (
	"context"
	"net/http"
)

// Authenticator turns request headers into an Identity. A rejected
// credential is reported in AuthResult.Error; the error return is reserved
// for the authenticator itself failing. Implementations must be safe for
// concurrent use.
type Authenticator interface {
	Name() string

	// Supports reports whether h carries this authenticator's credential.
	Supports(ctx context.Context, h http.Header) bool

	Authenticate(ctx context.Context, h http.Header) (*AuthResult, error)
}

// AuthResult is the outcome of one Authenticate call.
type AuthResult struct {
	Authenticated bool
	Identity      *Identity
	Error         error
	Method        string
}

func AuthSuccess(id *Identity) *AuthResult {
	return &AuthResult{Authenticated: true, Identity: id, Method: string(id.Method)}
}

func AuthFailure(err error, method string) *AuthResult {
	return &AuthResult{Error: err, Method: method}
}
