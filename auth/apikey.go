package auth

import (
	"context"
	"crypto/sha256"
	"net/http"
	"strings"
	"sync"
)

// DefaultAPIKeyHeader carries the key unless another header is configured.
const DefaultAPIKeyHeader = "X-API-Key"

type apiKey struct {
	id        string
	principal string
	roles     []string
}

// APIKeyAuthenticator admits requests presenting one of a fixed set of
// keys. Only SHA-256 digests of the keys are held.
type APIKeyAuthenticator struct {
	header string

	mu   sync.RWMutex
	keys map[[sha256.Size]byte]apiKey
}

// NewAPIKeyAuthenticator reads keys from header, or DefaultAPIKeyHeader when
// header is empty.
func NewAPIKeyAuthenticator(header string) *APIKeyAuthenticator {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return &APIKeyAuthenticator{header: header, keys: make(map[[sha256.Size]byte]apiKey)}
}

// Add accepts key on behalf of principal. id appears in logs and in
// Identity.KeyID; the key itself never does.
func (a *APIKeyAuthenticator) Add(id, key, principal string, roles ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys[sha256.Sum256([]byte(key))] = apiKey{id: id, principal: principal, roles: roles}
}

func (a *APIKeyAuthenticator) Name() string { return string(MethodAPIKey) }

func (a *APIKeyAuthenticator) Supports(_ context.Context, h http.Header) bool {
	return h.Get(a.header) != ""
}

func (a *APIKeyAuthenticator) Authenticate(_ context.Context, h http.Header) (*AuthResult, error) {
	presented := strings.TrimSpace(h.Get(a.header))
	if presented == "" {
		return AuthFailure(ErrMissingCredentials, a.Name()), nil
	}

	a.mu.RLock()
	k, ok := a.keys[sha256.Sum256([]byte(presented))]
	a.mu.RUnlock()
	if !ok {
		return AuthFailure(ErrInvalidCredentials, a.Name()), nil
	}
	return AuthSuccess(&Identity{
		Principal: k.principal,
		Roles:     k.roles,
		Method:    MethodAPIKey,
		KeyID:     k.id,
	}), nil
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)
