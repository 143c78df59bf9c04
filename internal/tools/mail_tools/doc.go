// Package mail_tools registers the three read-only mailbox tools:
//
//   - list_inbox_emails: one page of inbox summaries, newest first
//   - query_emails_by_keyword: one page of subject/body matches outside junk and trash
//   - get_email_content: the plain-text content of one message
//
// Credentials travel in the request headers of each call. Handlers read them
// from the context populated by the transport.
package mail_tools
