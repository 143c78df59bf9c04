package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for every span this module starts.
const TracerName = "github.com/teemow/inboxreader"

// Span attribute keys.
const (
	SpanAttrTool      = "mcp.tool"
	SpanAttrCallID    = "mcp.call_id"
	SpanAttrStatus    = "mcp.status"
	SpanAttrErrorKind = "mcp.error_kind"
	SpanAttrOperation = "mail.operation"
	SpanAttrFolder    = "mail.folder"
	SpanAttrOffset    = "mail.offset"
	SpanAttrMessages  = "mail.messages"
)

// StartToolSpan starts the server span "tool.<name>" for one tool call.
func StartToolSpan(ctx context.Context, toolName, callID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+2)
	all = append(all, attribute.String(SpanAttrTool, toolName))
	if callID != "" {
		all = append(all, attribute.String(SpanAttrCallID, callID))
	}
	all = append(all, attrs...)

	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "tool."+toolName,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartBackendSpan starts the client span "mail.<operation>" for one backend
// round trip.
func StartBackendSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, attribute.String(SpanAttrOperation, operation))
	all = append(all, attrs...)

	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "mail."+operation,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records err on span and marks it failed. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks span OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace id of the span in ctx, or "".
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// GetSpanID returns the span id of the span in ctx, or "".
func GetSpanID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}
