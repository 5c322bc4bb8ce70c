package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/partsource/fallback"
	"github.com/jonwraymond/partsource/provider"
	"github.com/jonwraymond/partsource/resilience"
	"github.com/jonwraymond/partsource/service"
)

const maxBodyBytes = 1 << 20

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeMessage(w, http.StatusBadRequest, "q is required")
		return
	}

	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	maxProviders, err := intParam(q.Get("max_providers"))
	if err != nil || maxProviders < 0 {
		writeMessage(w, http.StatusBadRequest, "max_providers must be a non-negative integer")
		return
	}

	opts := fallback.SearchOptions{
		Hint:         q.Get("hint"),
		MaxProviders: maxProviders,
	}
	if v := q.Get("dedupe"); v != "" {
		dedupe, err := strconv.ParseBool(v)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "dedupe must be a boolean")
			return
		}
		opts.Dedupe = &dedupe
	}
	if v := q.Get("continue"); v != "" {
		cont, err := strconv.ParseBool(v)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "continue must be a boolean")
			return
		}
		opts.ContinueOnLimit = cont
	}

	res, err := h.svc.Orchestrator().Search(r.Context(), query, q.Get("category"), limit, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.svc.Orchestrator().Resolve(r.Context(), id, fallback.ResolveOptions{Hint: r.URL.Query().Get("hint")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type compareRequest struct {
	A     *provider.NormalizedResult `json:"a,omitempty"`
	B     *provider.NormalizedResult `json:"b,omitempty"`
	AID   string                     `json:"aId,omitempty"`
	BID   string                     `json:"bId,omitempty"`
	Focus string                     `json:"focus,omitempty"`
	Hint  string                     `json:"hint,omitempty"`
}

type compareResponse struct {
	*fallback.CompareResult
	A provider.NormalizedResult `json:"a"`
	B provider.NormalizedResult `json:"b"`
}

func (h *Handler) compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	a, err := h.part(ctx, req.A, req.AID)
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := h.part(ctx, req.B, req.BID)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.svc.Orchestrator().Compare(ctx, a, b, fallback.CompareOptions{Hint: req.Hint, Focus: req.Focus})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, compareResponse{CompareResult: res, A: a, B: b})
}

var errMissingPart = errors.New("httpapi: each side needs a part or a part id")

// part returns the inline part, or resolves id through the part sources.
func (h *Handler) part(ctx context.Context, inline *provider.NormalizedResult, id string) (provider.NormalizedResult, error) {
	switch {
	case inline != nil && inline.Name != "":
		return *inline, nil
	case id != "":
		res, err := h.svc.Orchestrator().Resolve(ctx, id, fallback.ResolveOptions{})
		if err != nil {
			return provider.NormalizedResult{}, err
		}
		return res.Result, nil
	default:
		return provider.NormalizedResult{}, errMissingPart
	}
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": h.svc.Providers()})
}

func (h *Handler) resetProviders(w http.ResponseWriter, r *http.Request) {
	var names []string
	if name := chi.URLParam(r, "name"); name != "" {
		names = append(names, name)
	}
	if err := h.svc.ResetProviders(r.Context(), names...); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": h.svc.Providers()})
}

func (h *Handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.CacheStats(r.Context(), r.URL.Query().Get("provider"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) sweepCache(w http.ResponseWriter, r *http.Request) {
	removed, err := h.svc.SweepCache(r.Context(), r.URL.Query().Get("provider"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps the few errors operations raise to a status code.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errMissingPart):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnknownProvider):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrCacheDisabled):
		status = http.StatusNotImplemented
	case errors.Is(err, fallback.ErrNoProviders):
		status = http.StatusServiceUnavailable
	case errors.Is(err, resilience.ErrBulkheadFull):
		w.Header().Set("Retry-After", "1")
		status = http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away; the status is never read
		status = http.StatusServiceUnavailable
	}
	writeMessage(w, status, err.Error())
}
