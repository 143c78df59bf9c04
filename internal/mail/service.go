package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teemow/inboxreader/internal/logging"
)

// Service implements the three mailbox operations. It holds no per-call or
// per-account state and is safe for concurrent use.
type Service struct {
	resolver  *CredentialResolver
	connector Connector
	locator   Locator
	logger    *slog.Logger
}

// NewService wires a Service. A nil logger falls back to slog.Default.
func NewService(resolver *CredentialResolver, connector Connector, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		resolver:  resolver,
		connector: connector,
		logger:    logger,
	}
}

// ListInbox returns one page of inbox summaries, newest first.
func (s *Service) ListInbox(ctx context.Context, h Headers, offset int) ([]MessageSummary, error) {
	log := s.callLogger(ctx, "list_inbox_emails")

	creds, err := s.authenticate(log, h)
	if err != nil {
		return nil, err
	}
	if err := validateOffset(offset); err != nil {
		return nil, err
	}

	backend, err := s.connect(ctx, creds)
	if err != nil {
		return nil, err
	}

	inbox, err := s.locator.Locate(ctx, backend, RoleInbox)
	if err != nil {
		return nil, err
	}
	log.Debug("folder resolved", logging.Folder(string(inbox.Role)))

	q, err := BuildListQuery(inbox, offset)
	if err != nil {
		return nil, err
	}
	res, err := backend.QueryMessages(ctx, q)
	if err != nil {
		return nil, backendError("query", err)
	}
	log.Debug("query executed", slog.Int("count", len(res.Messages)), slog.Int("offset", offset))

	return ShapeSummaries(res.Messages), nil
}

// SearchByKeyword returns one page of messages whose subject or body contains
// keyword, excluding junk and trash, together with the total match count.
func (s *Service) SearchByKeyword(ctx context.Context, h Headers, keyword string, offset int) (SearchPage, error) {
	log := s.callLogger(ctx, "query_emails_by_keyword")

	creds, err := s.authenticate(log, h)
	if err != nil {
		return SearchPage{}, err
	}
	if err := validateOffset(offset); err != nil {
		return SearchPage{}, err
	}

	backend, err := s.connect(ctx, creds)
	if err != nil {
		return SearchPage{}, err
	}

	junk, err := s.locator.Locate(ctx, backend, RoleJunk)
	if err != nil {
		return SearchPage{}, err
	}
	trash, err := s.locator.Locate(ctx, backend, RoleTrash)
	if err != nil {
		return SearchPage{}, err
	}
	log.Debug("folders resolved", logging.Folder(string(junk.Role)), logging.Folder(string(trash.Role)))

	q, err := BuildSearchQuery(FolderRef{}, junk, trash, keyword, offset)
	if err != nil {
		return SearchPage{}, err
	}
	res, err := backend.QueryMessages(ctx, q)
	if err != nil {
		return SearchPage{}, backendError("query", err)
	}
	log.Debug("query executed", slog.Int("count", len(res.Messages)), slog.Int("total", res.Total))

	page := ShapeSummaries(res.Messages)
	total := res.Total
	if len(page) > 0 && total < offset+len(page) {
		// A backend that under-reports its total must not break the window
		// invariant.
		total = offset + len(page)
	}
	return SearchPage{TotalMatches: total, Offset: offset, Page: page}, nil
}

// GetContent returns the normalized text of the message with the given id.
func (s *Service) GetContent(ctx context.Context, h Headers, id string) (MessageContent, error) {
	log := s.callLogger(ctx, "get_email_content")

	creds, err := s.authenticate(log, h)
	if err != nil {
		return MessageContent{}, err
	}
	if id == "" {
		return MessageContent{}, validationError("email_id", "email_id is required")
	}

	backend, err := s.connect(ctx, creds)
	if err != nil {
		return MessageContent{}, err
	}

	msgs, err := backend.FetchMessages(ctx, []string{id})
	if err != nil {
		return MessageContent{}, backendError("fetch", err)
	}
	for _, m := range msgs {
		if m.ID == id {
			log.Debug("message fetched", logging.MessageID(id))
			return ShapeContent(m), nil
		}
	}

	return MessageContent{}, &Error{
		Kind: KindNotFound,
		Op:   "fetch",
		Msg:  fmt.Sprintf("no email found with id %q", id),
	}
}

// Authorize checks the call's credentials without contacting the backend.
// Transports use it to keep authentication ahead of argument validation.
func (s *Service) Authorize(ctx context.Context, h Headers) error {
	_, err := s.authenticate(s.callLogger(ctx, "authorize"), h)
	return err
}

func (s *Service) authenticate(log *slog.Logger, h Headers) (Credentials, error) {
	creds, err := s.resolver.Resolve(h)
	if err != nil {
		log.Debug("call rejected", slog.String("reason", KindOf(err).String()))
		return Credentials{}, err
	}
	log.Debug("authenticated", slog.String("backend_token", logging.SanitizeToken(creds.BackendToken)))
	return creds, nil
}

func (s *Service) connect(ctx context.Context, creds Credentials) (Backend, error) {
	backend, err := s.connector.Connect(ctx, creds.BackendToken)
	if err != nil {
		return nil, backendError("connect", err)
	}
	return backend, nil
}

func (s *Service) callLogger(ctx context.Context, op string) *slog.Logger {
	log := logging.WithOperation(s.logger, op)
	if id := logging.CallIDFromContext(ctx); id != "" {
		log = log.With(logging.CallID(id))
	}
	return log
}
