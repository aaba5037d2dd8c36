package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/squideyes/esignatures"

// Tracer provides OpenTelemetry tracing for submissions and relays.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from the global provider.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// NewTracerWithProvider creates a tracer from tp.
func NewTracerWithProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{
		tracer: tp.Tracer(tracerName),
	}
}

// StartSubmitSpan starts a span for one contract submission.
func (t *Tracer) StartSubmitSpan(ctx context.Context, templateID, title string, signers int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "esignatures.submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("esignatures.template_id", templateID),
			attribute.String("esignatures.title", title),
			attribute.Int("esignatures.signers", signers),
		),
	)
}

// EndSubmitSpan ends a submission span with its outcome.
func (t *Tracer) EndSubmitSpan(span trace.Span, outcome string, statusCode int, err error) {
	span.SetAttributes(attribute.String("esignatures.outcome", outcome))
	if statusCode != 0 {
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// StartReceiveSpan starts a span for one inbound webhook call.
func (t *Tracer) StartReceiveSpan(ctx context.Context, remoteAddr string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "esignatures.receive",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("net.peer.addr", remoteAddr)),
	)
}

// EndReceiveSpan ends a receive span with the HTTP status answered.
func (t *Tracer) EndReceiveSpan(span trace.Span, result string, statusCode int) {
	span.SetAttributes(
		attribute.String("esignatures.receive_result", result),
		attribute.Int("http.status_code", statusCode),
	)
	if statusCode >= 500 {
		span.SetStatus(codes.Error, result)
	}
	span.End()
}

// StartRelaySpan starts a span for relaying one queued message.
func (t *Tracer) StartRelaySpan(ctx context.Context, messageID string, attempt int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "esignatures.relay",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("esignatures.message_id", messageID),
			attribute.Int("esignatures.attempt", attempt),
		),
	)
}

// EndRelaySpan ends a relay span. kind and contractID are empty when the
// payload could not be parsed.
func (t *Tracer) EndRelaySpan(span trace.Span, kind, contractID string, err error) {
	if kind != "" {
		span.SetAttributes(attribute.String("esignatures.kind", kind))
	}
	if contractID != "" {
		span.SetAttributes(attribute.String("esignatures.contract_id", contractID))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
