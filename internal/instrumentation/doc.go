// Package instrumentation provides OpenTelemetry metrics, tracing and the
// tool audit log for the inboxreader MCP server.
//
// # Metrics
//
//   - http_requests_total, http_request_duration_seconds: by method, path and status
//   - mail_backend_operations_total, mail_backend_operation_duration_seconds:
//     by operation (folder, query, fetch) and status
//   - auth_rejections_total: by reason (unauthorized, missing_backend_credential)
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds: by tool and status
//
// Metrics are exported through prometheus (served by promhttp on the metrics
// server), OTLP over HTTP, or stdout.
//
// # Tracing
//
// Every tool call runs in a "tool.<name>" server span and every backend round
// trip in a "mail.<operation>" client span. WrapConnector adds the backend
// spans and metrics to any mail.Connector.
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED (default true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default 0.1)
//   - OTEL_SERVICE_NAME (default inboxreader)
//   - AUDIT_LOGGING_ENABLED (default true)
package instrumentation
