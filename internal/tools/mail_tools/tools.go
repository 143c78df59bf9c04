package mail_tools

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxreader/internal/server"
	"github.com/teemow/inboxreader/internal/tools/common"
)

// Tool names.
const (
	ToolListInbox  = "list_inbox_emails"
	ToolSearch     = "query_emails_by_keyword"
	ToolGetContent = "get_email_content"
)

// RegisterMailTools registers the mailbox tools with s.
func RegisterMailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool(ToolListInbox,
		mcp.WithDescription("List emails in the inbox, newest first, 10 per page. Returns id, sender, subject and received time for each email."),
		mcp.WithNumber("offset",
			mcp.Description("Number of emails to skip (default: 0)"),
			mcp.Min(0),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(listTool, common.InstrumentedToolHandler(ToolListInbox, sc, newListHandler(sc)))

	searchTool := mcp.NewTool(ToolSearch,
		mcp.WithDescription("Search emails whose subject or body contains a keyword, excluding junk and trash. Returns 10 results per page and the total number of matches."),
		mcp.WithString("keyword",
			mcp.Required(),
			mcp.Description("Text to look for in the subject or body"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of matches to skip (default: 0)"),
			mcp.Min(0),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(searchTool, common.InstrumentedToolHandler(ToolSearch, sc, newSearchHandler(sc)))

	contentTool := mcp.NewTool(ToolGetContent,
		mcp.WithDescription("Get the plain-text content of an email by id"),
		mcp.WithString("email_id",
			mcp.Required(),
			mcp.Description("Email id as returned by list_inbox_emails or query_emails_by_keyword"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(contentTool, common.InstrumentedToolHandler(ToolGetContent, sc, newContentHandler(sc)))

	return nil
}
