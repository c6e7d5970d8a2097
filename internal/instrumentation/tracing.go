package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies spans emitted by todoagent.
const TracerName = "github.com/teemow/todoagent"

const (
	SpanAttrEmailID   = "todoagent.email_id"
	SpanAttrRule      = "todoagent.rule"
	SpanAttrLabel     = "todoagent.label"
	SpanAttrOutcome   = "todoagent.outcome"
	SpanAttrRunID     = "todoagent.run_id"
	SpanAttrTool      = "mcp.tool"
	SpanAttrService   = "google.service"
	SpanAttrOperation = "google.operation"
)

// SpanFields collects the domain identifiers that may be attached to a span.
// Empty fields are left out.
type SpanFields struct {
	EmailID string
	Rule    string
	Label   string
	RunID   string
}

// Attributes converts the non-empty fields to span attributes.
func (f SpanFields) Attributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for _, kv := range [...]struct{ key, value string }{
		{SpanAttrEmailID, f.EmailID},
		{SpanAttrRule, f.Rule},
		{SpanAttrLabel, f.Label},
		{SpanAttrRunID, f.RunID},
	} {
		if kv.value != "" {
			attrs = append(attrs, attribute.String(kv.key, kv.value))
		}
	}
	return attrs
}

func start(ctx context.Context, name string, kind trace.SpanKind, attrs []attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(kind),
	)
}

// StartSpan starts an internal span. Callers end it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return start(ctx, name, trace.SpanKindInternal, attrs)
}

// StartToolSpan starts a server span named tool.<name> for an MCP call.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return start(ctx, "tool."+toolName, trace.SpanKindServer,
		append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...))
}

// StartGoogleAPISpan starts a client span named google.<service>.<operation>.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return start(ctx, "google."+service+"."+operation, trace.SpanKindClient,
		append([]attribute.KeyValue{
			attribute.String(SpanAttrService, service),
			attribute.String(SpanAttrOperation, operation),
		}, attrs...))
}

// SetSpanError marks the span failed. A nil error is ignored.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// SetSpanOutcome tags the span with a pipeline outcome.
func SetSpanOutcome(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String(SpanAttrOutcome, outcome))
}

// TraceID returns the active trace ID, or "" outside a recorded span.
func TraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}
