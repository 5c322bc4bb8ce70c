package auth

import (
	"slices"
	"time"
)

// Method names the credential an Identity was established with.
type Method string

const (
	MethodAPIKey    Method = "api_key"
	MethodJWT       Method = "jwt"
	MethodAnonymous Method = "anonymous"
)

// Identity is the caller behind a request.
type Identity struct {
	Principal string
	Roles     []string
	Method    Method

	// KeyID names the API key that was presented, never the key itself.
	KeyID string

	// Claims holds the verified token claims for MethodJWT.
	Claims map[string]any

	// ExpiresAt is the token expiry; zero for keys and anonymous callers.
	ExpiresAt time.Time
}

// HasRole reports whether id carries role. A nil identity has none.
func (id *Identity) HasRole(role string) bool {
	return id != nil && slices.Contains(id.Roles, role)
}

// Anonymous is the identity given to requests without credentials when the
// configuration grants anonymous roles.
func Anonymous(roles ...string) *Identity {
	return &Identity{Principal: "anonymous", Roles: roles, Method: MethodAnonymous}
}
