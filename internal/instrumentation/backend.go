package instrumentation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/inboxreader/internal/mail"
)

// WrapConnector returns a connector whose backends emit a "mail.<operation>"
// span and the mail_backend_operation metrics around every round trip.
func WrapConnector(conn mail.Connector, m *Metrics) mail.Connector {
	return mail.ConnectorFunc(func(ctx context.Context, token string) (mail.Backend, error) {
		b, err := conn.Connect(ctx, token)
		if err != nil {
			return nil, err
		}
		return &instrumentedBackend{next: b, metrics: m}, nil
	})
}

type instrumentedBackend struct {
	next    mail.Backend
	metrics *Metrics
}

func (b *instrumentedBackend) FolderByRole(ctx context.Context, role mail.Role) (mail.FolderRef, error) {
	ctx, finish := b.start(ctx, OperationFolder, attribute.String(SpanAttrFolder, string(role)))
	ref, err := b.next.FolderByRole(ctx, role)
	finish(err)
	return ref, err
}

func (b *instrumentedBackend) QueryMessages(ctx context.Context, q mail.Query) (mail.QueryResult, error) {
	ctx, finish := b.start(ctx, OperationQuery, attribute.Int(SpanAttrOffset, q.Offset))
	res, err := b.next.QueryMessages(ctx, q)
	finish(err)
	return res, err
}

func (b *instrumentedBackend) FetchMessages(ctx context.Context, ids []string) ([]mail.RawMessage, error) {
	ctx, finish := b.start(ctx, OperationFetch, attribute.Int(SpanAttrMessages, len(ids)))
	msgs, err := b.next.FetchMessages(ctx, ids)
	finish(err)
	return msgs, err
}

func (b *instrumentedBackend) start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := StartBackendSpan(ctx, operation, attrs...)
	return ctx, func(err error) {
		status := StatusSuccess
		if err != nil {
			status = StatusError
			SetSpanError(span, err)
		} else {
			SetSpanSuccess(span)
		}
		span.End()
		b.metrics.RecordBackendOperation(ctx, operation, status, time.Since(start))
	}
}
