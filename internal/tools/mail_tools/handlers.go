package mail_tools

import (
	"context"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxreader/internal/mail"
	"github.com/teemow/inboxreader/internal/server"
	"github.com/teemow/inboxreader/internal/tools/common"
)

// inboxPage is the list_inbox_emails result.
type inboxPage struct {
	Offset int                   `json:"offset"`
	Emails []mail.MessageSummary `json:"emails"`
}

func newListHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		headers := mail.HeadersFromContext(ctx)

		offset, err := offsetArg(request.GetArguments())
		if err != nil {
			return rejectArgument(ctx, sc, headers, err)
		}

		emails, err := sc.Service().ListInbox(ctx, headers, offset)
		if err != nil {
			return common.ErrorResult(ctx, sc, err)
		}
		return common.JSONResult(inboxPage{Offset: offset, Emails: emails})
	}
}

func newSearchHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		headers := mail.HeadersFromContext(ctx)
		args := request.GetArguments()

		keyword, ok := args["keyword"].(string)
		if !ok {
			return rejectArgument(ctx, sc, headers, mail.NewValidationError("keyword", "keyword is required"))
		}
		offset, err := offsetArg(args)
		if err != nil {
			return rejectArgument(ctx, sc, headers, err)
		}

		page, err := sc.Service().SearchByKeyword(ctx, headers, keyword, offset)
		if err != nil {
			return common.ErrorResult(ctx, sc, err)
		}
		return common.JSONResult(page)
	}
}

func newContentHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		headers := mail.HeadersFromContext(ctx)

		id, ok := request.GetArguments()["email_id"].(string)
		if !ok {
			return rejectArgument(ctx, sc, headers, mail.NewValidationError("email_id", "email_id is required"))
		}

		content, err := sc.Service().GetContent(ctx, headers, id)
		if err != nil {
			return common.ErrorResult(ctx, sc, err)
		}
		return common.JSONResult(content)
	}
}

// rejectArgument reports a malformed argument, unless the call is not
// authenticated, in which case that is reported instead.
func rejectArgument(ctx context.Context, sc *server.ServerContext, headers mail.Headers, argErr error) (*mcp.CallToolResult, error) {
	if err := sc.Service().Authorize(ctx, headers); err != nil {
		return common.ErrorResult(ctx, sc, err)
	}
	return common.ErrorResult(ctx, sc, argErr)
}

// offsetArg reads the optional offset. JSON numbers arrive as float64; a
// fractional or non-numeric value is a validation error. Negative values are
// left to the service to reject.
func offsetArg(args map[string]any) (int, error) {
	v, ok := args["offset"]
	if !ok || v == nil {
		return 0, nil
	}
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, mail.NewValidationError("offset", "offset must be a non-negative integer")
	}
	if f > math.MaxInt32 {
		return 0, mail.NewValidationError("offset", "offset is too large")
	}
	return int(f), nil
}
