package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/partsource/provider"
)

const (
	KindSource    = "source"
	KindGenerator = "generator"
)

// ProviderMeta identifies one provider attempt in spans, metrics and logs.
type ProviderMeta struct {
	Name string // registered provider name
	Kind string // KindSource or KindGenerator
	Op   string // search, details or compare
}

// SpanName is "provider.<op>.<name>", or "provider.<name>" without an op.
func (m ProviderMeta) SpanName() string {
	if m.Op == "" {
		return "provider." + m.Name
	}
	return "provider." + m.Op + "." + m.Name
}

func (m ProviderMeta) attrs() []attribute.KeyValue {
	kv := make([]attribute.KeyValue, 0, 3)
	kv = append(kv, attribute.String("provider.name", m.Name))
	for _, a := range []struct{ key, val string }{{"provider.kind", m.Kind}, {"provider.op", m.Op}} {
		if a.val != "" {
			kv = append(kv, attribute.String(a.key, a.val))
		}
	}
	return kv
}

// Tracer opens one client span per provider attempt.
type Tracer interface {
	StartSpan(ctx context.Context, meta ProviderMeta) (context.Context, trace.Span)

	// EndSpan records err, classified by provider.Classify, and ends span.
	EndSpan(span trace.Span, err error)
}

type attemptTracer struct {
	tracer trace.Tracer
}

// NewTracer wraps t. A nil t yields spans that are never exported.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return attemptTracer{tracer: t}
}

func (t attemptTracer) StartSpan(ctx context.Context, meta ProviderMeta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(meta.attrs()...),
	)
}

func (t attemptTracer) EndSpan(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.kind", string(provider.Classify(err))))
	span.SetStatus(codes.Error, err.Error())
}
