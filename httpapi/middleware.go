package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/partsource/observe"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-Id"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(observe.WithRequestID(r.Context(), reqID)))
	})
}

func recoverMiddleware(logger observe.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error(r.Context(), "handler panic",
						observe.Field{Key: "path", Value: r.URL.Path},
						observe.Field{Key: "panic", Value: rec},
					)
					writeMessage(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logger observe.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logger.Debug(r.Context(), "request served",
				observe.Field{Key: "method", Value: r.Method},
				observe.Field{Key: "path", Value: r.URL.Path},
				observe.Field{Key: "status", Value: rec.status},
				observe.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()},
			)
		})
	}
}
