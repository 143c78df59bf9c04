// Package server provides the MCP server context and the HTTP side of the
// inboxreader server.
//
// ServerContext carries the mail service and the instrumentation recorders
// to tool handlers.
//
// HTTPServer mounts the mcp-go streamable HTTP transport at /mcp in
// stateless mode. Requests to /mcp pass through, in order:
//   - request metrics (http_requests_total, http_request_duration_seconds)
//   - a per-IP token bucket answering 429 with Retry-After
//   - a bearer check answering 401 with {"error":"Unauthorized"}
//
// The request headers are then copied into the tool call context, where the
// mail service resolves both credentials again for each call.
//
// HealthChecker serves /healthz, /readyz and /healthz/detailed without
// authentication. MetricsServer serves /metrics on a separate listener.
package server
