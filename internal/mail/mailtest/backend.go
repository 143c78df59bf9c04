// Package mailtest provides an in-memory mail.Backend for tests. It evaluates
// the query filter tree itself, so tests can check what a query selects
// rather than how it is spelled.
package mailtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/teemow/inboxreader/internal/mail"
)

// Backend is a fixture mailbox for one account.
type Backend struct {
	// Folders maps a role to a folder id. Roles absent from the map are
	// reported as not found.
	Folders map[mail.Role]string
	// Messages are the stored records. Mailboxes must hold folder ids.
	Messages []mail.RawMessage

	// Err, when set, is returned by every operation.
	Err error
	// TotalOverride, when non-negative, replaces the computed total.
	TotalOverride int

	mu          sync.Mutex
	folderCalls int
	queryCalls  int
	fetchCalls  int
	queries     []mail.Query
}

// New returns a Backend with the standard three folders.
func New(msgs ...mail.RawMessage) *Backend {
	return &Backend{
		Folders: map[mail.Role]string{
			mail.RoleInbox: "mb-inbox",
			mail.RoleJunk:  "mb-junk",
			mail.RoleTrash: "mb-trash",
		},
		Messages:      msgs,
		TotalOverride: -1,
	}
}

// FolderByRole implements mail.Backend.
func (b *Backend) FolderByRole(_ context.Context, role mail.Role) (mail.FolderRef, error) {
	b.mu.Lock()
	b.folderCalls++
	b.mu.Unlock()

	if b.Err != nil {
		return mail.FolderRef{}, b.Err
	}
	id, ok := b.Folders[role]
	if !ok {
		return mail.FolderRef{}, fmt.Errorf("%w: role %s", mail.ErrFolderNotFound, role)
	}
	return mail.FolderRef{Role: role, ID: id}, nil
}

// QueryMessages implements mail.Backend.
func (b *Backend) QueryMessages(_ context.Context, q mail.Query) (mail.QueryResult, error) {
	b.mu.Lock()
	b.queryCalls++
	b.queries = append(b.queries, q)
	b.mu.Unlock()

	if b.Err != nil {
		return mail.QueryResult{}, b.Err
	}

	var matched []mail.RawMessage
	for _, m := range b.Messages {
		if Match(q.Filter, m) {
			matched = append(matched, m)
		}
	}
	sortMessages(matched, q.Sort)

	total := len(matched)
	start := min(q.Offset, total)
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}

	res := mail.QueryResult{Messages: matched[start:end]}
	if q.CalculateTotal {
		res.Total = total
		if b.TotalOverride >= 0 {
			res.Total = b.TotalOverride
		}
	}
	return res, nil
}

// FetchMessages implements mail.Backend.
func (b *Backend) FetchMessages(_ context.Context, ids []string) ([]mail.RawMessage, error) {
	b.mu.Lock()
	b.fetchCalls++
	b.mu.Unlock()

	if b.Err != nil {
		return nil, b.Err
	}
	var out []mail.RawMessage
	for _, id := range ids {
		for _, m := range b.Messages {
			if m.ID == id {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// Calls returns the number of backend operations performed.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.folderCalls + b.queryCalls + b.fetchCalls
}

// FolderCalls returns the number of FolderByRole calls.
func (b *Backend) FolderCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.folderCalls
}

// Queries returns the queries received so far.
func (b *Backend) Queries() []mail.Query {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]mail.Query(nil), b.queries...)
}

// Match evaluates f against m. Text conditions match case-insensitively.
func Match(f mail.Filter, m mail.RawMessage) bool {
	switch f := f.(type) {
	case nil:
		return true
	case mail.InFolder:
		for _, id := range m.Mailboxes {
			if id == f.FolderID {
				return true
			}
		}
		return false
	case mail.SubjectContains:
		return containsFold(m.Subject, f.Text)
	case mail.BodyContains:
		for _, v := range m.BodyValues {
			if containsFold(v, f.Text) {
				return true
			}
		}
		return false
	case mail.And:
		for _, c := range f {
			if !Match(c, m) {
				return false
			}
		}
		return true
	case mail.Or:
		for _, c := range f {
			if Match(c, m) {
				return true
			}
		}
		return false
	case mail.Not:
		return !Match(f.Cond, m)
	default:
		panic(fmt.Sprintf("mailtest: unknown filter %T", f))
	}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func sortMessages(msgs []mail.RawMessage, keys []mail.SortKey) {
	for _, k := range keys {
		if k.Property != mail.SortReceivedAt {
			continue
		}
		desc := k.Descending
		sort.SliceStable(msgs, func(i, j int) bool {
			if desc {
				return msgs[i].ReceivedAt.After(msgs[j].ReceivedAt)
			}
			return msgs[i].ReceivedAt.Before(msgs[j].ReceivedAt)
		})
	}
}

// Connector hands out fixture backends by token.
type Connector struct {
	// Accounts maps a backend token to its mailbox. Unknown tokens get
	// ConnectErr, or an error when ConnectErr is nil.
	Accounts   map[string]*Backend
	ConnectErr error

	mu     sync.Mutex
	tokens []string
}

// NewConnector returns a Connector serving one account.
func NewConnector(token string, b *Backend) *Connector {
	return &Connector{Accounts: map[string]*Backend{token: b}}
}

// Connect implements mail.Connector.
func (c *Connector) Connect(_ context.Context, token string) (mail.Backend, error) {
	c.mu.Lock()
	c.tokens = append(c.tokens, token)
	c.mu.Unlock()

	if c.ConnectErr != nil {
		return nil, c.ConnectErr
	}
	b, ok := c.Accounts[token]
	if !ok {
		return nil, errors.New("backend rejected token")
	}
	return b, nil
}

// Connects returns the number of Connect calls.
func (c *Connector) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tokens)
}

// Tokens returns the tokens passed to Connect, in order.
func (c *Connector) Tokens() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.tokens...)
}
