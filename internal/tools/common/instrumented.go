package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/inboxreader/internal/instrumentation"
	"github.com/teemow/inboxreader/internal/logging"
	"github.com/teemow/inboxreader/internal/mail"
	"github.com/teemow/inboxreader/internal/server"
)

// ToolHandler is the mcp-go tool handler signature. It is an alias so that
// handlers pass straight to mcpserver.MCPServer.AddTool.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

type failureKey struct{}

// failure is filled in by ErrorResult so the wrapper can audit the kind.
type failure struct {
	kind mail.Kind
	err  error
	set  bool
}

func noteFailure(ctx context.Context, kind mail.Kind, err error) {
	if f, ok := ctx.Value(failureKey{}).(*failure); ok {
		f.kind, f.err, f.set = kind, err, true
	}
}

// InstrumentedToolHandler wraps handler with a fresh call id, a
// "tool.<name>" span, tool metrics and an audit record.
//
// Usage:
//
//	s.AddTool(tool, common.InstrumentedToolHandler("list_inbox_emails", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		callID := logging.NewCallID()
		ctx = logging.ContextWithCallID(ctx, callID)

		ctx, span := instrumentation.StartToolSpan(ctx, toolName, callID)
		defer span.End()

		f := &failure{}
		ctx = context.WithValue(ctx, failureKey{}, f)

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName, callID).WithSpanContext(ctx)

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.CompleteWithError(mail.KindBackend.String(), err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			kind := ""
			if f.set {
				kind = f.kind.String()
			}
			invocation.CompleteWithError(kind, f.err)
			if kind != "" {
				span.SetAttributes(attribute.String(instrumentation.SpanAttrErrorKind, kind))
			}
			instrumentation.SetSpanError(span, f.err)
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}
		invocation.Duration = duration

		sc.Metrics().RecordToolInvocation(ctx, toolName, status, duration)
		sc.AuditLogger().LogToolInvocation(invocation)

		return result, err
	}
}
