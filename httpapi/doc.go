// Package httpapi exposes a service.Service over HTTP.
//
// Routes:
//
//	GET  /v1/search?q=&category=&limit=&hint=&max_providers=&dedupe=&continue=
//	GET  /v1/parts/{id}?hint=
//	POST /v1/compare
//	GET  /v1/providers
//	POST /v1/providers/reset             (operator)
//	POST /v1/providers/{name}/reset      (operator)
//	GET  /v1/cache/stats?provider=
//	POST /v1/cache/sweep?provider=       (operator)
//	GET  /healthz, /readyz, /health, /health/{check}
//	GET  /metrics                        (prometheus exporter only)
//
// Provider failures never surface as HTTP errors: search, part and compare
// responses carry the per-provider trail and a degraded flag instead.
package httpapi
