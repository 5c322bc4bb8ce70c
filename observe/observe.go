package observe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/partsource/observe/exporters"
)

// Config holds all configuration for the Observer.
type Config struct {
	ServiceName string        `yaml:"service_name"`
	Version     string        `yaml:"version"`
	Tracing     TracingConfig `yaml:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Logging     LoggingConfig `yaml:"logging"`
}

// TracingConfig configures the tracing subsystem.
type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"`   // otlp|jaeger|stdout|none
	SamplePct float64 `yaml:"sample_pct"` // 0.0-1.0
	Endpoint  string  `yaml:"endpoint"`   // otlp only; falls back to OTEL_* env
}

// MetricsConfig configures the metrics subsystem.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // otlp|prometheus|stdout|none
	Endpoint string `yaml:"endpoint"`
}

// LoggingConfig configures the logging subsystem.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // debug|info|warn|error
}

var (
	tracingExporters = []string{"otlp", "jaeger", "stdout", "none"}
	metricsExporters = []string{"otlp", "prometheus", "stdout", "none"}
)

// oneOf reports whether v is empty or listed in allowed.
func oneOf(v string, allowed []string) bool {
	return v == "" || slices.Contains(allowed, v)
}

// Validate checks only the sections that are enabled.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("%w: service_name is required", ErrInvalidConfig)
	}
	if t := c.Tracing; t.Enabled {
		if !oneOf(t.Exporter, tracingExporters) {
			return fmt.Errorf("%w: tracing.exporter %q", ErrInvalidConfig, t.Exporter)
		}
		if t.SamplePct < 0 || t.SamplePct > 1 {
			return fmt.Errorf("%w: tracing.sample_pct %v outside [0, 1]", ErrInvalidConfig, t.SamplePct)
		}
	}
	if m := c.Metrics; m.Enabled && !oneOf(m.Exporter, metricsExporters) {
		return fmt.Errorf("%w: metrics.exporter %q", ErrInvalidConfig, m.Exporter)
	}
	if l := c.Logging; l.Enabled && !oneOf(l.Level, levelNames[:]) {
		return fmt.Errorf("%w: logging.level %q", ErrInvalidConfig, l.Level)
	}
	return nil
}

// Observer bundles the tracer, meter and logger shared by every provider
// call. Disabled subsystems are backed by no-op implementations, so callers
// never nil-check. Safe for concurrent use.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger

	// MetricsHandler serves the Prometheus scrape endpoint, or returns nil
	// when the prometheus exporter is not in use.
	MetricsHandler() http.Handler

	// Shutdown flushes pending spans and metrics. Errors from both
	// providers are joined.
	Shutdown(ctx context.Context) error
}

// Logger writes structured entries. Logging is best effort: write errors are
// dropped.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	WithProvider(meta ProviderMeta) Logger
}

// Field is one key/value pair of a log entry.
type Field struct {
	Key   string
	Value any
}

type observer struct {
	tracer      trace.Tracer
	meter       metric.Meter
	logger      Logger
	promHandler http.Handler

	// shutdown flushes the SDK providers that were started, in start order.
	shutdown []func(context.Context) error
}

// NewObserver starts the enabled subsystems. Tracer and meter providers are
// also installed as the otel globals so library instrumentation shares them.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	obs := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer("noop"),
		meter:  noop.NewMeterProvider().Meter("noop"),
		logger: NopLogger(),
	}
	if cfg.Logging.Enabled {
		obs.logger = NewLogger(cfg.Logging.Level)
	}

	if cfg.Tracing.Enabled {
		exp, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter, exporters.Options{Endpoint: cfg.Tracing.Endpoint})
		if err != nil {
			return nil, fmt.Errorf("observe: tracing: %w", err)
		}
		topts := []sdktrace.TracerProviderOption{
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.Tracing.SamplePct))),
		}
		if exp != nil {
			topts = append(topts, sdktrace.WithBatcher(exp))
		}
		tp := sdktrace.NewTracerProvider(topts...)
		otel.SetTracerProvider(tp)
		obs.tracer = tp.Tracer(cfg.ServiceName)
		obs.shutdown = append(obs.shutdown, tp.Shutdown)
	}

	if cfg.Metrics.Enabled {
		eopts := exporters.Options{Endpoint: cfg.Metrics.Endpoint}
		if cfg.Metrics.Exporter == "prometheus" {
			reg := prometheus.NewRegistry()
			eopts.Registerer = reg
			obs.promHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		}
		reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter, eopts)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("observe: metrics: %w", err)
		}
		mopts := []sdkmetric.Option{sdkmetric.WithResource(res)}
		if reader != nil {
			mopts = append(mopts, sdkmetric.WithReader(reader))
		}
		mp := sdkmetric.NewMeterProvider(mopts...)
		otel.SetMeterProvider(mp)
		obs.meter = mp.Meter(cfg.ServiceName)
		obs.shutdown = append(obs.shutdown, mp.Shutdown)
	}

	return obs, nil
}

func sampler(pct float64) sdktrace.Sampler {
	switch {
	case pct >= 1:
		return sdktrace.AlwaysSample()
	case pct <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(pct)
	}
}

func (o *observer) Tracer() trace.Tracer         { return o.tracer }
func (o *observer) Meter() metric.Meter          { return o.meter }
func (o *observer) Logger() Logger               { return o.logger }
func (o *observer) MetricsHandler() http.Handler { return o.promHandler }

func (o *observer) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range o.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (l noopLogger) WithProvider(ProviderMeta) Logger      { return l }
