package health

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Mux is the subset of a router the handlers are mounted on. Both
// *http.ServeMux and chi.Router satisfy it.
type Mux interface {
	Handle(pattern string, h http.Handler)
}

// LivenessHandler reports that the process is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler runs every check. A degraded provider pool is still
// ready: the fallback path keeps serving.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := OverallStatus(agg.CheckAll(r.Context()))
		body := "OK"
		if status != StatusHealthy {
			body = strings.ToUpper(status.String())
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(statusCode(status))
		_, _ = w.Write([]byte(body))
	}
}

// Report is the body of the /health endpoint.
type Report struct {
	Status    Status            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]Result `json:"checks,omitempty"`
}

// statusCode fails the probe only when unhealthy.
func statusCode(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// DetailedHandler reports every check as JSON.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := agg.CheckAll(r.Context())
		report := Report{
			Status:    OverallStatus(results),
			Timestamp: time.Now().UTC(),
			Checks:    results,
		}
		writeJSON(w, statusCode(report.Status), report)
	}
}

// SingleCheckHandler reports one named check as JSON.
func SingleCheckHandler(agg *Aggregator, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := agg.Check(r.Context(), name)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, statusCode(result.Status), result)
	}
}

// RegisterHandlers mounts /healthz, /readyz, /health and one
// /health/<name> route per registered checker.
func RegisterHandlers(mux Mux, agg *Aggregator) {
	mux.Handle("/healthz", LivenessHandler())
	mux.Handle("/readyz", ReadinessHandler(agg))
	mux.Handle("/health", DetailedHandler(agg))
	for _, name := range agg.Names() {
		mux.Handle("/health/"+name, SingleCheckHandler(agg, name))
	}
}
