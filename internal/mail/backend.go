package mail

import "context"

// Backend is the capability set the core needs from a mail store. A Backend
// is bound to one account and lives for one call.
type Backend interface {
	// FolderByRole resolves role to a folder id. It returns an error wrapping
	// ErrFolderNotFound when the account has no such folder.
	FolderByRole(ctx context.Context, role Role) (FolderRef, error)

	// QueryMessages runs q and returns the matching window in q's order,
	// together with the total match count when q.CalculateTotal is set.
	QueryMessages(ctx context.Context, q Query) (QueryResult, error)

	// FetchMessages returns full records, bodies included, for ids. Ids the
	// backend does not know are omitted from the result.
	FetchMessages(ctx context.Context, ids []string) ([]RawMessage, error)
}

// QueryResult is the answer to QueryMessages.
type QueryResult struct {
	Messages []RawMessage
	// Total is only meaningful when the query asked for it.
	Total int
}

// Connector opens a Backend for the account identified by a backend token.
type Connector interface {
	Connect(ctx context.Context, backendToken string) (Backend, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context, backendToken string) (Backend, error)

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context, backendToken string) (Backend, error) {
	return f(ctx, backendToken)
}
