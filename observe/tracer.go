package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// CallMeta contains metadata about an outbound provider call for telemetry purposes.
type CallMeta struct {
	Provider  string // Registered provider name (required)
	Endpoint  string // Logical endpoint/operation name (required)
	Method    string // HTTP method, e.g. GET/POST (optional)
	RequestID string // Per-call request identifier (optional)
}

// SpanName returns the deterministic span name for this call.
// Format: boundary.request.<provider>.<endpoint>
func (m CallMeta) SpanName() string {
	if m.Endpoint != "" {
		return "boundary.request." + m.Provider + "." + m.Endpoint
	}
	return "boundary.request." + m.Provider
}

// CallID returns a fully qualified call identifier for logging/metrics grouping.
func (m CallMeta) CallID() string {
	if m.Endpoint != "" {
		return m.Provider + "." + m.Endpoint
	}
	return m.Provider
}

// Tracer wraps OpenTelemetry tracing with provider-call span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan derives the span's context from ctx; it returns no error, even when ctx is canceled.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a provider call.
	StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// NewTracer wraps an OpenTelemetry tracer (e.g. an Observer's Tracer())
// as a boundary Tracer, for callers assembling a Tracer outside of this
// package's own Observer construction path.
func NewTracer(t trace.Tracer) Tracer {
	return newTracer(t)
}

// StartSpan starts a new span with call metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	spanName := meta.SpanName()

	attrs := []attribute.KeyValue{
		attribute.String("boundary.provider", meta.Provider),
		attribute.Bool("boundary.error", false), // Updated in EndSpan if error
	}

	if meta.Endpoint != "" {
		attrs = append(attrs, attribute.String("boundary.endpoint", meta.Endpoint))
	}
	if meta.Method != "" {
		attrs = append(attrs, attribute.String("boundary.method", meta.Method))
	}
	if meta.RequestID != "" {
		attrs = append(attrs, attribute.String("boundary.request_id", meta.RequestID))
	}

	ctx, span := t.tracer.Start(ctx, spanName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("boundary.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

// NoopTracer returns a Tracer that starts and ends spans without
// recording them anywhere, for use where tracing is disabled.
func NoopTracer() Tracer {
	return newNoopTracer()
}

func (t *noopTracer) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
