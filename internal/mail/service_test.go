package mail_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxreader/internal/mail"
	"github.com/teemow/inboxreader/internal/mail/mailtest"
)

const (
	serverToken  = "server-secret"
	backendToken = "fm-token"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func headers(server, backend string) http.Header {
	h := http.Header{}
	if server != "" {
		h.Set(mail.HeaderAuthorization, "Bearer "+server)
	}
	if backend != "" {
		h.Set(mail.HeaderBackendToken, backend)
	}
	return h
}

func msg(id, folder, subject, body string, age time.Duration) mail.RawMessage {
	return mail.RawMessage{
		ID:         id,
		From:       []mail.Address{{Name: "Sender " + id, Email: id + "@example.com"}},
		Subject:    subject,
		ReceivedAt: base.Add(-age),
		Mailboxes:  []string{folder},
		TextBody:   []mail.BodyPart{{PartID: "1", Type: "text/plain"}},
		BodyValues: map[string]string{"1": body},
	}
}

// fixture returns an account with 25 inbox messages, two archived, and
// tagged junk and trash messages that all mention "invoice".
func fixture() *mailtest.Backend {
	var msgs []mail.RawMessage
	for i := 0; i < 25; i++ {
		msgs = append(msgs, msg(fmt.Sprintf("in-%02d", i), "mb-inbox", fmt.Sprintf("Inbox %d", i), "hello", time.Duration(i)*time.Hour))
	}
	msgs = append(msgs,
		msg("in-invoice", "mb-inbox", "Your invoice", "see attached", 30*time.Minute),
		msg("archived-invoice", "mb-archive", "Old stuff", "the INVOICE from last year", 48*time.Hour),
		msg("junk-invoice", "mb-junk", "Invoice overdue!!!", "pay now", time.Minute),
		msg("trash-invoice", "mb-trash", "re: invoice", "deleted", 2*time.Minute),
	)
	return mailtest.New(msgs...)
}

func newService(t *testing.T, b *mailtest.Backend) (*mail.Service, *mailtest.Connector) {
	t.Helper()
	resolver, err := mail.NewCredentialResolver(serverToken)
	require.NoError(t, err)
	conn := mailtest.NewConnector(backendToken, b)
	return mail.NewService(resolver, conn, nil), conn
}

func TestService_RejectsBeforeBackend(t *testing.T) {
	tests := []struct {
		name     string
		headers  http.Header
		wantKind mail.Kind
	}{
		{"missing server token", headers("", backendToken), mail.KindUnauthorized},
		{"wrong server token", headers("guess", backendToken), mail.KindUnauthorized},
		{"missing backend token", headers(serverToken, ""), mail.KindMissingBackendCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fixture()
			svc, conn := newService(t, b)
			ctx := context.Background()

			_, err := svc.ListInbox(ctx, tt.headers, 0)
			assert.Equal(t, tt.wantKind, mail.KindOf(err))

			_, err = svc.SearchByKeyword(ctx, tt.headers, "invoice", 0)
			assert.Equal(t, tt.wantKind, mail.KindOf(err))

			_, err = svc.GetContent(ctx, tt.headers, "in-01")
			assert.Equal(t, tt.wantKind, mail.KindOf(err))

			assert.Zero(t, conn.Connects(), "backend must not be contacted")
			assert.Zero(t, b.Calls(), "backend must not be contacted")
		})
	}
}

func TestService_NegativeOffset(t *testing.T) {
	b := fixture()
	svc, conn := newService(t, b)
	ctx := context.Background()

	_, err := svc.ListInbox(ctx, headers(serverToken, backendToken), -1)
	assert.True(t, errors.Is(err, mail.ErrValidation))

	_, err = svc.SearchByKeyword(ctx, headers(serverToken, backendToken), "x", -3)
	assert.True(t, errors.Is(err, mail.ErrValidation))

	assert.Zero(t, conn.Connects())
	assert.Zero(t, b.Calls())
}

func TestService_ListInbox(t *testing.T) {
	b := fixture()
	svc, conn := newService(t, b)
	ctx := context.Background()
	h := headers(serverToken, backendToken)

	page, err := svc.ListInbox(ctx, h, 0)
	require.NoError(t, err)
	require.Len(t, page, mail.PageSize)

	for i := 1; i < len(page); i++ {
		assert.False(t, page[i].ReceivedAt.After(page[i-1].ReceivedAt), "summaries must be newest first")
	}
	assert.Equal(t, "in-00", page[0].ID)
	assert.Equal(t, "Sender in-00 <in-00@example.com>", page[0].Sender)
	assert.Equal(t, []string{backendToken}, conn.Tokens())
	assert.Equal(t, 1, b.FolderCalls())
}

func TestService_ListInbox_ConsistentWindows(t *testing.T) {
	b := fixture()
	svc, _ := newService(t, b)
	ctx := context.Background()
	h := headers(serverToken, backendToken)

	first, err := svc.ListInbox(ctx, h, 0)
	require.NoError(t, err)

	const n = 4
	shifted, err := svc.ListInbox(ctx, h, n)
	require.NoError(t, err)

	k := len(first) - n
	assert.Equal(t, first[n:n+k], shifted[:k])
}

func TestService_ListInbox_OffsetPastEnd(t *testing.T) {
	svc, _ := newService(t, fixture())

	page, err := svc.ListInbox(context.Background(), headers(serverToken, backendToken), 500)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestService_SearchByKeyword_ExcludesJunkAndTrash(t *testing.T) {
	b := fixture()
	svc, _ := newService(t, b)

	page, err := svc.SearchByKeyword(context.Background(), headers(serverToken, backendToken), "invoice", 0)
	require.NoError(t, err)

	var ids []string
	for _, s := range page.Page {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{"in-invoice", "archived-invoice"}, ids)
	assert.Equal(t, 2, page.TotalMatches)
	assert.Equal(t, 0, page.Offset)
	assert.LessOrEqual(t, page.Offset+len(page.Page), page.TotalMatches)

	// junk and trash are resolved, the inbox is not
	assert.Equal(t, 2, b.FolderCalls())
}

func TestService_SearchByKeyword_WindowInvariant(t *testing.T) {
	svc, _ := newService(t, fixture())
	h := headers(serverToken, backendToken)

	for _, offset := range []int{0, 5, 10, 20, 26, 27, 100} {
		t.Run(fmt.Sprint(offset), func(t *testing.T) {
			page, err := svc.SearchByKeyword(context.Background(), h, "", offset)
			require.NoError(t, err)
			assert.Equal(t, offset, page.Offset)
			if offset >= page.TotalMatches {
				assert.Empty(t, page.Page)
			} else {
				assert.LessOrEqual(t, offset+len(page.Page), page.TotalMatches)
			}
			for _, s := range page.Page {
				assert.NotEqual(t, "junk-invoice", s.ID)
				assert.NotEqual(t, "trash-invoice", s.ID)
			}
		})
	}
}

func TestService_SearchByKeyword_ClampsUnderReportedTotal(t *testing.T) {
	b := fixture()
	b.TotalOverride = 1
	svc, _ := newService(t, b)

	page, err := svc.SearchByKeyword(context.Background(), headers(serverToken, backendToken), "invoice", 0)
	require.NoError(t, err)
	assert.Equal(t, len(page.Page), page.TotalMatches)
}

func TestService_SearchByKeyword_MissingFolder(t *testing.T) {
	b := fixture()
	delete(b.Folders, mail.RoleJunk)
	svc, _ := newService(t, b)

	_, err := svc.SearchByKeyword(context.Background(), headers(serverToken, backendToken), "invoice", 0)
	require.Error(t, err)
	assert.Equal(t, mail.KindBackend, mail.KindOf(err))
	assert.True(t, errors.Is(err, mail.ErrFolderNotFound))
	assert.Empty(t, b.Queries(), "no query after a failed folder lookup")
}

func TestService_GetContent(t *testing.T) {
	b := fixture()
	b.Messages = append(b.Messages, mail.RawMessage{
		ID:         "html-1",
		HTMLBody:   []mail.BodyPart{{PartID: "h", Type: "text/html"}},
		BodyValues: map[string]string{"h": "<p>Hello</p><p>World</p>"},
	}, mail.RawMessage{ID: "empty-1"})
	svc, _ := newService(t, b)
	ctx := context.Background()
	h := headers(serverToken, backendToken)

	got, err := svc.GetContent(ctx, h, "in-03")
	require.NoError(t, err)
	assert.Equal(t, mail.MessageContent{ID: "in-03", Text: "hello"}, got)

	got, err = svc.GetContent(ctx, h, "html-1")
	require.NoError(t, err)
	assert.Equal(t, "Hello\nWorld", got.Text)

	got, err = svc.GetContent(ctx, h, "empty-1")
	require.NoError(t, err, "a message without body is not an error")
	assert.Equal(t, "", got.Text)
}

func TestService_GetContent_NotFound(t *testing.T) {
	svc, _ := newService(t, fixture())

	_, err := svc.GetContent(context.Background(), headers(serverToken, backendToken), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, mail.ErrNotFound))
}

func TestService_GetContent_EmptyID(t *testing.T) {
	b := fixture()
	svc, conn := newService(t, b)

	_, err := svc.GetContent(context.Background(), headers(serverToken, backendToken), "")
	assert.True(t, errors.Is(err, mail.ErrValidation))
	assert.Zero(t, conn.Connects())
}

func TestService_BackendFailures(t *testing.T) {
	ctx := context.Background()
	h := headers(serverToken, backendToken)

	t.Run("connect", func(t *testing.T) {
		b := fixture()
		svc, conn := newService(t, b)
		conn.ConnectErr = errors.New("401 from session endpoint")

		_, err := svc.ListInbox(ctx, h, 0)
		assert.Equal(t, mail.KindBackend, mail.KindOf(err))
	})

	t.Run("query", func(t *testing.T) {
		b := fixture()
		b.Err = errors.New("connection reset")
		svc, _ := newService(t, b)

		page, err := svc.ListInbox(ctx, h, 0)
		assert.Equal(t, mail.KindBackend, mail.KindOf(err))
		assert.Nil(t, page, "no partial results")

		_, err = svc.GetContent(ctx, h, "in-01")
		assert.Equal(t, mail.KindBackend, mail.KindOf(err))
	})
}

func TestService_AccountsAreIsolated(t *testing.T) {
	resolver, err := mail.NewCredentialResolver(serverToken)
	require.NoError(t, err)

	alice := mailtest.New(msg("alice-1", "a-inbox", "for alice", "", 0))
	alice.Folders[mail.RoleInbox] = "a-inbox"
	bob := mailtest.New(msg("bob-1", "b-inbox", "for bob", "", 0))
	bob.Folders[mail.RoleInbox] = "b-inbox"

	conn := &mailtest.Connector{Accounts: map[string]*mailtest.Backend{"alice": alice, "bob": bob}}
	svc := mail.NewService(resolver, conn, nil)
	ctx := context.Background()

	a, err := svc.ListInbox(ctx, headers(serverToken, "alice"), 0)
	require.NoError(t, err)
	b, err := svc.ListInbox(ctx, headers(serverToken, "bob"), 0)
	require.NoError(t, err)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, "alice-1", a[0].ID)
	assert.Equal(t, "bob-1", b[0].ID)
	assert.Equal(t, 1, alice.FolderCalls())
	assert.Equal(t, 1, bob.FolderCalls())
}

func TestService_Authorize(t *testing.T) {
	svc, conn := newService(t, fixture())
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, headers(serverToken, backendToken)))
	assert.ErrorIs(t, svc.Authorize(ctx, headers("nope", backendToken)), mail.ErrUnauthorized)
	assert.ErrorIs(t, svc.Authorize(ctx, headers(serverToken, "")), mail.ErrMissingBackendCredential)
	assert.Zero(t, conn.Connects())
}
