// Package jmap adapts a JMAP server, Fastmail by default, to the mail.Backend
// capability set.
//
// A Connector opens one Backend per tool call. The Backend owns a JMAP client
// whose HTTP transport authenticates with the caller's API token and is bound
// to the call's context, so cancelling the call abandons any in-flight round
// trip. Nothing is shared between Backends.
//
// Round trips per operation:
//
//	FolderByRole    Mailbox/get
//	QueryMessages   Email/query + Email/get (back-referenced, one request)
//	FetchMessages   Email/get with all body values
//
// Opening a Backend also fetches the JMAP session resource once.
package jmap
