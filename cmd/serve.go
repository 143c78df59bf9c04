package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/inboxreader/internal/config"
	"github.com/teemow/inboxreader/internal/instrumentation"
	"github.com/teemow/inboxreader/internal/jmap"
	"github.com/teemow/inboxreader/internal/logging"
	"github.com/teemow/inboxreader/internal/mail"
	"github.com/teemow/inboxreader/internal/server"
	"github.com/teemow/inboxreader/internal/tools/mail_tools"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server.

Transports:
  - streamable-http: MCP endpoint at /mcp (default 127.0.0.1:8000). Each
    request must carry "Authorization: Bearer <BEARER_TOKEN>" and the
    caller's "Fastmail-Api-Token" header.
  - stdio: for local clients. The server token is implied and the mail
    token is read from FASTMAIL_API_TOKEN.

Settings are read from .env, an optional --config YAML file, the environment
and flags, with flags taking precedence.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	config.BindFlags(cmd.Flags())

	return cmd
}

// app holds the wired server components shared by both transports.
type app struct {
	mcp           *mcpserver.MCPServer
	serverContext *server.ServerContext
	resolver      *mail.CredentialResolver
	serverToken   string
}

func runServe(cfg *config.Config) error {
	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout belongs to the protocol under stdio, so logs always go to stderr
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation config: %w", err)
	}

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	a, err := newApp(ctx, cfg, provider, instrConfig.AuditLogging, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.serverContext.Shutdown(); err != nil {
			logger.Error("server context shutdown failed", logging.Err(err))
		}
	}()

	switch cfg.Transport {
	case config.TransportStdio:
		return runStdioServer(ctx, a, cfg.FastmailAPIToken, os.Stdin, os.Stdout, logger)
	case config.TransportStreamableHTTP:
		return runStreamableHTTPServer(ctx, a, cfg, provider, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", cfg.Transport)
	}
}

// newApp wires the mail service, instrumentation and MCP tools.
func newApp(ctx context.Context, cfg *config.Config, provider *instrumentation.Provider, audit instrumentation.AuditLoggingConfig, logger *slog.Logger) (*app, error) {
	serverToken := cfg.BearerToken
	if serverToken == "" && cfg.Transport == config.TransportStdio {
		serverToken = uuid.NewString()
	}
	resolver, err := mail.NewCredentialResolver(serverToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential resolver: %w", err)
	}

	connector := instrumentation.WrapConnector(jmap.NewConnector(jmap.Config{
		SessionURL: cfg.JMAPSessionURL,
		Timeout:    cfg.JMAPTimeout,
		Logger:     logging.NewSlogAdapter(logger.With(logging.Operation("jmap"))),
	}), provider.Metrics())

	service := mail.NewService(resolver, connector, logger)

	opts := []server.Option{server.WithLogger(logger)}
	if provider.Enabled() {
		opts = append(opts,
			server.WithMetrics(provider.Metrics()),
			server.WithAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, audit)),
		)
	}
	serverContext, err := server.NewServerContext(ctx, service, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}

	mcpSrv := mcpserver.NewMCPServer("inboxreader", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := mail_tools.RegisterMailTools(mcpSrv, serverContext); err != nil {
		_ = serverContext.Shutdown()
		return nil, fmt.Errorf("failed to register mail tools: %w", err)
	}

	return &app{
		mcp:           mcpSrv,
		serverContext: serverContext,
		resolver:      resolver,
		serverToken:   serverToken,
	}, nil
}

// stdioHeaders synthesizes the per-call headers for the stdio transport,
// where there is no HTTP request to carry them.
func stdioHeaders(serverToken, backendToken string) http.Header {
	h := http.Header{}
	h.Set(mail.HeaderAuthorization, "Bearer "+serverToken)
	if backendToken != "" {
		h.Set(mail.HeaderBackendToken, backendToken)
	}
	return h
}

func runStdioServer(ctx context.Context, a *app, backendToken string, in io.Reader, out io.Writer, logger *slog.Logger) error {
	headers := stdioHeaders(a.serverToken, backendToken)

	stdio := mcpserver.NewStdioServer(a.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
	stdio.SetContextFunc(func(ctx context.Context) context.Context {
		return mail.ContextWithHeaders(ctx, headers)
	})

	if backendToken == "" {
		logger.Warn("FASTMAIL_API_TOKEN is not set; tool calls will be rejected")
	}

	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, a *app, cfg *config.Config, provider *instrumentation.Provider, logger *slog.Logger) error {
	health := server.NewHealthChecker(a.serverContext, version)

	httpServer, err := server.NewHTTPServer(a.mcp, server.HTTPConfig{
		Addr:      cfg.HTTPAddr,
		Resolver:  a.resolver,
		RateLimit: cfg.RateLimitRPS,
		RateBurst: cfg.RateLimitBurst,
		Metrics:   provider.Metrics(),
		Health:    health,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	var metricsServer *server.MetricsServer
	if cfg.MetricsEnabled {
		if handler := provider.PrometheusHandler(); handler != nil {
			metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
				Addr:    cfg.MetricsAddr,
				Handler: handler,
				Logger:  logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create metrics server: %w", err)
			}
		} else {
			logger.Warn("metrics server disabled: instrumentation is off or not using the prometheus exporter")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpServer.Start)
	if metricsServer != nil {
		g.Go(metricsServer.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, stopping servers")
		health.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
