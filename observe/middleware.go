package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/partsource/provider"
)

// AttemptFunc is one provider attempt.
type AttemptFunc func(ctx context.Context, meta ProviderMeta) error

// Middleware wraps provider attempts with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe AttemptFunc.
//   - Context: the span context is passed to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned
//     unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
	now     func() time.Time
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Metrics returns the metrics recorder.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the base logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Wrap wraps fn with a span, the attempt metrics and a log entry.
func (m *Middleware) Wrap(fn AttemptFunc) AttemptFunc {
	return func(ctx context.Context, meta ProviderMeta) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := m.now()

		err := fn(ctx, meta)

		duration := m.now().Sub(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordAttempt(ctx, meta, duration, err)

		log := m.logger.WithProvider(meta)
		fields := []Field{{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000}}
		if err != nil {
			fields = append(fields,
				Field{Key: "error", Value: err.Error()},
				Field{Key: "error.kind", Value: string(provider.Classify(err))},
			)
			log.Warn(ctx, "provider attempt failed", fields...)
		} else {
			log.Debug(ctx, "provider attempt completed", fields...)
		}
		return err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
