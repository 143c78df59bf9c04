// Package mail implements the read-only mailbox operations behind the MCP
// tools: credential resolution, folder location by role, query construction,
// and shaping of backend records into agent-friendly results.
//
// The package knows nothing about a concrete mail protocol. A Connector opens
// a call-scoped Backend for one backend token, and Service drives every call
// through a fixed sequence of steps:
//
//	Received -> Authenticated -> FolderResolved -> QueryExecuted -> Shaped -> Responded
//
// Any step may end the call with an *Error whose Kind classifies the failure.
//
// # Usage
//
//	resolver, err := mail.NewCredentialResolver(serverToken)
//	svc := mail.NewService(resolver, jmapConnector, logger)
//	page, err := svc.SearchByKeyword(ctx, headers, "invoice", 0)
//
// Nothing is cached between calls. Two calls carrying different backend
// tokens never share folder ids or results.
package mail
