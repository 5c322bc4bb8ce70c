package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected token issuer (iss claim). Empty skips the check.
	Issuer string

	// Audience is the expected token audience (aud claim). Empty skips the check.
	Audience string

	// PrincipalClaim is the claim containing the caller principal.
	// Default: "sub"
	PrincipalClaim string

	// RolesClaim is the claim containing caller roles.
	// Default: "roles"
	RolesClaim string

	// Methods lists accepted signing algorithms.
	// Default: HS256
	Methods []string

	// Now returns the current time for claim validation.
	// Default: time.Now
	Now func() time.Time
}

// KeyProvider retrieves signing keys for JWT validation.
type KeyProvider interface {
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a single HMAC key.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	if len(p.key) == 0 {
		return nil, ErrKeyNotFound
	}
	return p.key, nil
}

// JWTAuthenticator validates bearer tokens.
type JWTAuthenticator struct {
	config JWTConfig
	keys   KeyProvider
	parser *jwt.Parser
}

// NewJWTAuthenticator creates a new JWT authenticator.
func NewJWTAuthenticator(config JWTConfig, keys KeyProvider) *JWTAuthenticator {
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}
	if len(config.Methods) == 0 {
		config.Methods = []string{jwt.SigningMethodHS256.Alg()}
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(config.Methods),
		jwt.WithTimeFunc(config.Now),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &JWTAuthenticator{config: config, keys: keys, parser: jwt.NewParser(opts...)}
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string { return "jwt" }

// Supports returns true if the request carries a bearer token.
func (a *JWTAuthenticator) Supports(_ context.Context, header http.Header) bool {
	_, ok := bearer(header)
	return ok
}

func bearer(header http.Header) (string, bool) {
	v := header.Get("Authorization")
	if len(v) < 7 || !strings.EqualFold(v[:7], "bearer ") {
		return "", false
	}
	return strings.TrimSpace(v[7:]), true
}

// Authenticate validates the token.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, header http.Header) (*AuthResult, error) {
	raw, ok := bearer(header)
	if !ok || raw == "" {
		return AuthFailure(ErrMissingCredentials, "jwt"), nil
	}

	claims := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		return a.keys.GetKey(ctx, kid)
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return AuthFailure(ErrTokenExpired, "jwt"), nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return AuthFailure(ErrTokenMalformed, "jwt"), nil
	default:
		return AuthFailure(ErrInvalidCredentials, "jwt"), nil
	}

	return AuthSuccess(a.buildIdentity(claims)), nil
}

func (a *JWTAuthenticator) buildIdentity(claims jwt.MapClaims) *Identity {
	id := &Identity{
		Method: MethodJWT,
		Claims: make(map[string]any, len(claims)),
	}
	for k, v := range claims {
		id.Claims[k] = v
	}

	id.Principal, _ = claims[a.config.PrincipalClaim].(string)

	switch roles := claims[a.config.RolesClaim].(type) {
	case []any:
		for _, r := range roles {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	case string:
		id.Roles = strings.Fields(roles)
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id
}

var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ KeyProvider   = (*StaticKeyProvider)(nil)
)
