package httpapi

import (
	"cmp"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/partsource/auth"
	"github.com/jonwraymond/partsource/config"
	"github.com/jonwraymond/partsource/health"
	"github.com/jonwraymond/partsource/service"
)

// Handler serves the API of one Service.
type Handler struct {
	svc *service.Service
}

// NewHandler creates a Handler for svc.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// NewRouter mounts every route. Authentication follows the auth section
// of the service configuration; health and metrics routes are never
// authenticated.
func NewRouter(h *Handler) http.Handler {
	logger := h.svc.Logger()
	authCfg := h.svc.Config().Auth

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(logger))
	r.Use(loggingMiddleware(logger))

	health.RegisterHandlers(r, h.svc.Health())
	if metrics := h.svc.Observer().MetricsHandler(); metrics != nil {
		r.Handle("/metrics", metrics)
	}

	var authz auth.Authorizer = auth.AllowAll{}
	if authCfg.Enabled {
		authz = auth.NewRoleAuthorizer(authCfg.OperatorRoles...)
	}

	r.Route("/v1", func(r chi.Router) {
		if authCfg.Enabled {
			r.Use(auth.Middleware(auth.MiddlewareConfig{
				Authenticator:  Authenticator(authCfg),
				AnonymousRoles: authCfg.AnonymousRoles,
			}))
		}

		r.Get("/search", h.search)
		r.Get("/parts/{id}", h.resolve)
		r.Post("/compare", h.compare)
		r.Get("/providers", h.listProviders)
		r.Get("/cache/stats", h.cacheStats)

		r.Group(func(r chi.Router) {
			r.Use(auth.Require(authz, auth.ActionOperate))
			r.Post("/providers/reset", h.resetProviders)
			r.Post("/providers/{name}/reset", h.resetProviders)
			r.Post("/cache/sweep", h.sweepCache)
		})
	})
	return r
}

// Authenticator builds the authenticator chain described by cfg: API keys
// first, then HMAC bearer tokens. It returns nil when neither is
// configured, which admits every request as anonymous.
func Authenticator(cfg config.AuthConfig) auth.Authenticator {
	var chain []auth.Authenticator

	if len(cfg.APIKeys) > 0 {
		keys := auth.NewAPIKeyAuthenticator(cfg.APIKeyHeader)
		for _, k := range cfg.APIKeys {
			keys.Add(cmp.Or(k.ID, k.Principal), k.Key, k.Principal, k.Roles...)
		}
		chain = append(chain, keys)
	}
	if cfg.JWT.Secret != "" {
		chain = append(chain, auth.NewJWTAuthenticator(auth.JWTConfig{
			Issuer:   cfg.JWT.Issuer,
			Audience: cfg.JWT.Audience,
		}, auth.NewStaticKeyProvider([]byte(cfg.JWT.Secret))))
	}

	switch len(chain) {
	case 0:
		return nil
	case 1:
		return chain[0]
	default:
		return auth.Chain(chain)
	}
}
