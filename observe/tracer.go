package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// RequestMeta describes one generation request for telemetry purposes.
type RequestMeta struct {
	ID       string // Queue request ID (may be empty for direct calls)
	Provider string // Upstream provider, e.g. "gemini"
	Model    string // Model name (required)
	Priority string // critical|high|normal|low (optional)
	Attempt  int    // 1-based attempt number (optional)
}

// SpanName returns the deterministic span name for this request.
// Format: genai.request.<provider>.<model> or genai.request.<model>
func (m RequestMeta) SpanName() string {
	if m.Provider != "" {
		return "genai.request." + m.Provider + "." + m.Model
	}
	return "genai.request." + m.Model
}

// RequestID returns the request identifier, falling back to the model
// name for direct calls that never touched the queue.
func (m RequestMeta) RequestID() string {
	if m.ID != "" {
		return m.ID
	}
	return m.Model
}

// Validate checks that required fields are set.
func (m RequestMeta) Validate() error {
	if m.Model == "" {
		return ErrMissingModel
	}
	return nil
}

// Tracer wraps OpenTelemetry tracing with request-scoped span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan must honor cancellation/deadlines and return ctx.Err() when canceled.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a generation request.
	StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span)

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

// StartSpan starts a new span with request metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("request.id", meta.RequestID()),
		attribute.String("genai.model", meta.Model),
		attribute.Bool("request.error", false), // Updated in EndSpan on error
	}

	if meta.Provider != "" {
		attrs = append(attrs, attribute.String("genai.provider", meta.Provider))
	}
	if meta.Priority != "" {
		attrs = append(attrs, attribute.String("request.priority", meta.Priority))
	}
	if meta.Attempt > 0 {
		attrs = append(attrs, attribute.Int("request.attempt", meta.Attempt))
	}

	ctx, span := t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("request.error", true))
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

func (t *noopTracer) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
