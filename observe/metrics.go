package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/partsource/provider"
)

// Metrics records provider and fallback metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordAttempt records one provider attempt with its duration and error.
	RecordAttempt(ctx context.Context, meta ProviderMeta, duration time.Duration, err error)

	// RecordDegraded records an operation answered by the degraded fallback.
	RecordDegraded(ctx context.Context, op string)

	// RecordCacheLookup records a cache consultation.
	RecordCacheLookup(ctx context.Context, providerName, op string, hit bool)
}

type metricsImpl struct {
	attempts     metric.Int64Counter
	errors       metric.Int64Counter
	durationHist metric.Float64Histogram
	degraded     metric.Int64Counter
	lookups      metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	attempts, err := meter.Int64Counter(
		"provider.attempt.total",
		metric.WithDescription("Total number of provider attempts"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errCount, err := meter.Int64Counter(
		"provider.attempt.errors",
		metric.WithDescription("Total number of failed provider attempts"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"provider.attempt.duration_ms",
		metric.WithDescription("Provider attempt duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	degraded, err := meter.Int64Counter(
		"fallback.degraded.total",
		metric.WithDescription("Operations answered with a degraded result"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	lookups, err := meter.Int64Counter(
		"cache.lookups.total",
		metric.WithDescription("Cache consultations by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		attempts:     attempts,
		errors:       errCount,
		durationHist: durationHist,
		degraded:     degraded,
		lookups:      lookups,
	}, nil
}

func (m *metricsImpl) RecordAttempt(ctx context.Context, meta ProviderMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attrs()...)

	m.attempts.Add(ctx, 1, opt)
	if err != nil {
		attrs := append(meta.attrs(), attribute.String("error.kind", string(provider.Classify(err))))
		m.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordDegraded(ctx context.Context, op string) {
	m.degraded.Add(ctx, 1, metric.WithAttributes(attribute.String("fallback.op", op)))
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, providerName, op string, hit bool) {
	m.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider.name", providerName),
		attribute.String("provider.op", op),
		attribute.Bool("cache.hit", hit),
	))
}

type noopMetrics struct{}

func (noopMetrics) RecordAttempt(context.Context, ProviderMeta, time.Duration, error) {}
func (noopMetrics) RecordDegraded(context.Context, string)                           {}
func (noopMetrics) RecordCacheLookup(context.Context, string, string, bool)          {}
