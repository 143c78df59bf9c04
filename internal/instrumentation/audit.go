package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation is one audited tool call. It carries no credentials and no
// message content.
type ToolInvocation struct {
	Tool   string
	CallID string

	StartTime time.Time
	Duration  time.Duration
	Success   bool

	// ErrorKind is the mail error kind of a failed call, e.g. "unauthorized".
	ErrorKind string
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts timing a call.
func NewToolInvocation(tool, callID string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		CallID:    callID,
		StartTime: time.Now(),
	}
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// WithSpanContext copies trace and span ids from the span in ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// CompleteSuccess stops the clock on a successful call.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = true
	return ti
}

// CompleteWithError stops the clock on a failed call.
func (ti *ToolInvocation) CompleteWithError(kind string, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = false
	ti.ErrorKind = kind
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// LogAttrs returns the structured fields of the audit record.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.String("call_id", ti.CallID),
		slog.String("status", ti.Status()),
		slog.Duration("duration", ti.Duration),
	}
	if ti.ErrorKind != "" {
		attrs = append(attrs, slog.String("error_kind", ti.ErrorKind))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID), slog.String("span_id", ti.SpanID))
	}
	return attrs
}

// AuditLogger writes one record per tool call.
type AuditLogger struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditLogger returns an enabled audit logger. A nil logger means
// slog.Default().
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig returns an audit logger honouring config.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger, enabled: config.Enabled}
}

// LogToolInvocation logs ti at info on success and warn on failure.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	attrs := ti.LogAttrs()
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
