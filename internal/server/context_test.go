package server

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxreader/internal/instrumentation"
	"github.com/teemow/inboxreader/internal/mail"
	"github.com/teemow/inboxreader/internal/mail/mailtest"
)

const testServerToken = "server-secret"

func newTestResolver(t *testing.T) *mail.CredentialResolver {
	t.Helper()
	r, err := mail.NewCredentialResolver(testServerToken)
	require.NoError(t, err)
	return r
}

func newTestServerContext(t *testing.T, opts ...Option) *ServerContext {
	t.Helper()
	svc := mail.NewService(newTestResolver(t), mailtest.NewConnector("fm-token", mailtest.New()), nil)
	sc, err := NewServerContext(context.Background(), svc, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestNewServerContext_RequiresService(t *testing.T) {
	_, err := NewServerContext(context.Background(), nil)
	assert.Error(t, err)
}

func TestServerContext_Options(t *testing.T) {
	metrics := &instrumentation.Metrics{}
	audit := instrumentation.NewAuditLogger(nil)
	logger := slog.New(slog.DiscardHandler)

	sc := newTestServerContext(t, WithMetrics(metrics), WithAuditLogger(audit), WithLogger(logger))
	assert.NotNil(t, sc.Service())
	assert.Same(t, metrics, sc.Metrics())
	assert.Same(t, audit, sc.AuditLogger())
	assert.Same(t, logger, sc.Logger())
}

func TestServerContext_Defaults(t *testing.T) {
	sc := newTestServerContext(t)
	assert.Nil(t, sc.Metrics())
	assert.Nil(t, sc.AuditLogger())
	assert.NotNil(t, sc.Logger())
}

func TestServerContext_Shutdown(t *testing.T) {
	sc := newTestServerContext(t)
	assert.False(t, sc.IsShutdown())
	assert.NoError(t, sc.Context().Err())

	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.ErrorIs(t, sc.Context().Err(), context.Canceled)

	assert.NoError(t, sc.Shutdown(), "second shutdown is a no-op")
}
