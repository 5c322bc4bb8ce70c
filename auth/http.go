package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	// Authenticator validates credentials. Nil admits every request as
	// anonymous.
	Authenticator Authenticator

	// AnonymousRoles, when non-nil, admits requests without credentials as
	// an anonymous identity carrying these roles. When nil such requests
	// are rejected.
	AnonymousRoles []string
}

// Middleware authenticates each request and stores the identity in the
// request context.
func Middleware(config MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authn := config.Authenticator

			if authn == nil || !authn.Supports(ctx, r.Header) {
				if authn != nil && config.AnonymousRoles == nil {
					writeError(w, http.StatusUnauthorized, ErrMissingCredentials)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, Anonymous(config.AnonymousRoles...))))
				return
			}

			result, err := authn.Authenticate(ctx, r.Header)
			if err != nil {
				writeError(w, http.StatusInternalServerError, errors.New("auth: authentication unavailable"))
				return
			}
			if !result.Authenticated {
				writeError(w, http.StatusUnauthorized, result.Error)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, result.Identity)))
		})
	}
}

// Require rejects requests whose identity may not perform action.
func Require(authz Authorizer, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := authz.Authorize(r.Context(), IdentityFromContext(r.Context()), action); err != nil {
				writeError(w, http.StatusForbidden, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = ErrInvalidCredentials
	}
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="partsource"`)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
