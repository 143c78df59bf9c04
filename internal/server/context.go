package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teemow/inboxreader/internal/instrumentation"
	"github.com/teemow/inboxreader/internal/mail"
)

// ServerContext holds what tool handlers share: the mail service and the
// instrumentation recorders. It holds no credentials.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	service     *mail.Service
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      *slog.Logger

	mu       sync.RWMutex
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithMetrics sets the metrics recorder used by tool handlers.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithAuditLogger sets the audit logger used by tool handlers.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) { sc.auditLogger = al }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(sc *ServerContext) { sc.logger = l }
}

// NewServerContext creates a server context around service.
func NewServerContext(ctx context.Context, service *mail.Service, opts ...Option) (*ServerContext, error) {
	if service == nil {
		return nil, errors.New("mail service is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		service: service,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc, nil
}

// Context returns the server context, cancelled on Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Service returns the mail service.
func (sc *ServerContext) Service() *mail.Service {
	return sc.service
}

// Metrics returns the metrics recorder, which may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, which may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// Logger returns the operational logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown reports whether Shutdown has been called.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is idempotent.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
