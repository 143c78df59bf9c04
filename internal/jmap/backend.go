package jmap

import (
	"context"
	"errors"
	"fmt"

	gojmap "git.sr.ht/~rockorager/go-jmap"
	"git.sr.ht/~rockorager/go-jmap/mail/email"
	"git.sr.ht/~rockorager/go-jmap/mail/mailbox"

	"github.com/teemow/inboxreader/internal/logging"
	"github.com/teemow/inboxreader/internal/mail"
)

var (
	summaryProperties = []string{"id", "from", "subject", "receivedAt", "mailboxIds"}
	contentProperties = []string{"id", "from", "subject", "receivedAt", "mailboxIds", "textBody", "htmlBody", "bodyValues"}
)

// errUnexpectedResponse is returned when a response lacks the expected
// method result.
var errUnexpectedResponse = errors.New("jmap: unexpected response")

// Backend is a mail.Backend for one JMAP account. It is used by a single
// call and is not safe for concurrent use.
type Backend struct {
	client    *gojmap.Client
	account   gojmap.ID
	transport *contextTransport
	logger    logging.Logger

	// roles is filled by the first FolderByRole and lives as long as the call.
	roles map[mail.Role]gojmap.ID
}

// FolderByRole implements mail.Backend using Mailbox/get. The first lookup
// fetches every mailbox role of the account; later lookups on the same
// Backend reuse that answer, so a call resolving two roles costs one round
// trip.
func (b *Backend) FolderByRole(ctx context.Context, role mail.Role) (mail.FolderRef, error) {
	if b.roles == nil {
		roles, err := b.mailboxRoles(ctx)
		if err != nil {
			return mail.FolderRef{}, err
		}
		b.roles = roles
	}

	id, ok := b.roles[role]
	if !ok {
		return mail.FolderRef{}, fmt.Errorf("%w: no mailbox with role %q", mail.ErrFolderNotFound, role)
	}
	return mail.FolderRef{Role: role, ID: string(id)}, nil
}

func (b *Backend) mailboxRoles(ctx context.Context) (map[mail.Role]gojmap.ID, error) {
	req := &gojmap.Request{}
	req.Invoke(&mailbox.Get{
		Account:    b.account,
		Properties: []string{"id", "role"},
	})

	resp, err := b.do(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, inv := range resp.Responses {
		switch r := inv.Args.(type) {
		case *mailbox.GetResponse:
			roles := make(map[mail.Role]gojmap.ID, len(r.List))
			for _, mb := range r.List {
				if mb.Role == "" {
					continue
				}
				role := mail.Role(mb.Role)
				if _, dup := roles[role]; !dup {
					roles[role] = mb.ID
				}
			}
			return roles, nil
		case *gojmap.MethodError:
			return nil, fmt.Errorf("%s: %w", inv.Name, r)
		}
	}
	return nil, errUnexpectedResponse
}

// QueryMessages implements mail.Backend. The query and the summary fetch go
// out in one request, the fetch back-referencing the query's ids.
func (b *Backend) QueryMessages(ctx context.Context, q mail.Query) (mail.QueryResult, error) {
	req := &gojmap.Request{}
	queryID := req.Invoke(buildEmailQuery(b.account, q))
	req.Invoke(&email.Get{
		Account:    b.account,
		Properties: summaryProperties,
		ReferenceIDs: &gojmap.ResultReference{
			ResultOf: queryID,
			Name:     "Email/query",
			Path:     "/ids",
		},
	})

	resp, err := b.do(ctx, req)
	if err != nil {
		return mail.QueryResult{}, err
	}

	var (
		ids      []gojmap.ID
		total    int
		list     []*email.Email
		gotQuery bool
		gotGet   bool
	)
	for _, inv := range resp.Responses {
		switch r := inv.Args.(type) {
		case *email.QueryResponse:
			ids = r.IDs
			total = int(r.Total)
			gotQuery = true
		case *email.GetResponse:
			list = r.List
			gotGet = true
		case *gojmap.MethodError:
			return mail.QueryResult{}, fmt.Errorf("%s: %w", inv.Name, r)
		}
	}
	if !gotQuery || !gotGet {
		return mail.QueryResult{}, errUnexpectedResponse
	}

	b.logger.Debug("jmap query", "ids", len(ids), "total", total)
	return mail.QueryResult{Messages: orderByIDs(ids, list), Total: total}, nil
}

// FetchMessages implements mail.Backend using Email/get with every body
// value fetched, each capped at 1 MiB.
func (b *Backend) FetchMessages(ctx context.Context, ids []string) ([]mail.RawMessage, error) {
	jids := make([]gojmap.ID, 0, len(ids))
	for _, id := range ids {
		jids = append(jids, gojmap.ID(id))
	}

	req := &gojmap.Request{}
	req.Invoke(&email.Get{
		Account:            b.account,
		IDs:                jids,
		Properties:         contentProperties,
		FetchAllBodyValues: true,
		MaxBodyValueBytes:  maxBodyValueBytes,
	})

	resp, err := b.do(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, inv := range resp.Responses {
		switch r := inv.Args.(type) {
		case *email.GetResponse:
			out := make([]mail.RawMessage, 0, len(r.List))
			for _, e := range r.List {
				out = append(out, toRawMessage(e))
			}
			b.logger.Debug("jmap fetch", "found", len(out), "not_found", len(r.NotFound))
			return out, nil
		case *gojmap.MethodError:
			return nil, fmt.Errorf("%s: %w", inv.Name, r)
		}
	}
	return nil, errUnexpectedResponse
}

func (b *Backend) do(ctx context.Context, req *gojmap.Request) (*gojmap.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.transport.bind(ctx)

	resp, err := b.client.Do(req)
	if err != nil {
		// Prefer the cancellation cause over the transport's wrapping of it.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("jmap request: %w", err)
	}
	return resp, nil
}

// orderByIDs returns list in the order of ids, skipping ids the server did
// not return.
func orderByIDs(ids []gojmap.ID, list []*email.Email) []mail.RawMessage {
	byID := make(map[gojmap.ID]*email.Email, len(list))
	for _, e := range list {
		if e != nil {
			byID[e.ID] = e
		}
	}
	out := make([]mail.RawMessage, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, toRawMessage(e))
		}
	}
	return out
}
