package mail

import "time"

// Role is a portable mailbox role.
type Role string

const (
	RoleInbox Role = "inbox"
	RoleJunk  Role = "junk"
	RoleTrash Role = "trash"
)

// FolderRef is a role resolved to a backend folder id for one account.
// It is only valid for the call that resolved it.
type FolderRef struct {
	Role Role
	ID   string
}

// Address is a mailbox address as reported by the backend.
type Address struct {
	Name  string
	Email string
}

// BodyPart describes one leaf body part of a message.
type BodyPart struct {
	PartID string
	Type   string
}

// RawMessage is a message record as returned by a Backend, before shaping.
type RawMessage struct {
	ID         string
	From       []Address
	Subject    string
	ReceivedAt time.Time
	// Mailboxes holds the ids of the folders the message is filed in.
	Mailboxes []string
	TextBody  []BodyPart
	HTMLBody  []BodyPart
	// BodyValues maps a BodyPart.PartID to its decoded content.
	BodyValues map[string]string
}

// MessageSummary is a single row of a list or search result.
type MessageSummary struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	ReceivedAt time.Time `json:"received_at"`
}

// MessageContent is the normalized text of one message.
type MessageContent struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// SearchPage is one window of a counted keyword search.
type SearchPage struct {
	TotalMatches int              `json:"total_matches"`
	Offset       int              `json:"offset"`
	Page         []MessageSummary `json:"page"`
}
