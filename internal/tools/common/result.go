package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxreader/internal/instrumentation"
	"github.com/teemow/inboxreader/internal/mail"
	"github.com/teemow/inboxreader/internal/server"
)

// JSONResult renders v as indented JSON text.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ErrorResult renders err as a tool error "<kind>: <message>". Rejected
// credentials are counted on sc's metrics.
func ErrorResult(ctx context.Context, sc *server.ServerContext, err error) (*mcp.CallToolResult, error) {
	kind := mail.KindOf(err)
	noteFailure(ctx, kind, err)

	switch kind {
	case mail.KindUnauthorized:
		sc.Metrics().RecordAuthRejection(ctx, instrumentation.ReasonUnauthorized)
	case mail.KindMissingBackendCredential:
		sc.Metrics().RecordAuthRejection(ctx, instrumentation.ReasonMissingCredential)
	}

	return mcp.NewToolResultError(kind.String() + ": " + errorMessage(err)), nil
}

// errorMessage prefers the caller-facing message of a mail error over the
// full chain.
func errorMessage(err error) string {
	var me *mail.Error
	if errors.As(err, &me) && me.Msg != "" {
		return me.Msg
	}
	return err.Error()
}
