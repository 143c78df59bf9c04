// Package logging provides structured logging utilities for inboxreader.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Process logger construction with text or JSON output
//   - Per-call identifiers carried through context
//   - Token masking and account name hashing
//   - Logger adapter interface for flexibility
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "list_inbox_emails")
//	logger.Info("query executed",
//	    logging.CallID(logging.CallIDFromContext(ctx)),
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Debug("authenticated",
//	    slog.String("backend_token", logging.SanitizeToken(token)))
//
// # Security Considerations
//
//   - Tokens are never logged directly, only their length
//   - Account names are hashed to allow correlation without exposing PII
//   - Folder ids are never logged, only their roles
package logging
