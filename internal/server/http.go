package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxreader/internal/instrumentation"
	"github.com/teemow/inboxreader/internal/mail"
)

const (
	// DefaultHTTPAddr binds the MCP endpoint to loopback.
	DefaultHTTPAddr = "127.0.0.1:8000"

	// EndpointPath is where the streamable HTTP transport is mounted.
	EndpointPath = "/mcp"

	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 90 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
)

// HTTPConfig configures the MCP HTTP server.
type HTTPConfig struct {
	// Addr defaults to DefaultHTTPAddr.
	Addr string

	// Resolver checks the server token before MCP dispatch. Required.
	Resolver *mail.CredentialResolver

	// RateLimit and RateBurst bound requests per client IP.
	RateLimit float64
	RateBurst int

	Metrics *instrumentation.Metrics
	Health  *HealthChecker
	Logger  *slog.Logger
}

// HTTPServer serves the MCP streamable HTTP transport and the health probes.
type HTTPServer struct {
	httpServer *http.Server
	limiter    *RateLimiter
	addr       string
	logger     *slog.Logger
}

// NewHTTPServer mounts mcpServer at EndpointPath. The transport runs
// stateless and copies each request's headers into the tool call context,
// so every call carries its own credentials.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, config HTTPConfig) (*HTTPServer, error) {
	if mcpServer == nil {
		return nil, errors.New("mcp server is required")
	}
	if config.Resolver == nil {
		return nil, errors.New("credential resolver is required")
	}
	if config.Addr == "" {
		config.Addr = DefaultHTTPAddr
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Health == nil {
		config.Health = NewHealthChecker(nil, "")
	}

	streamable := mcpserver.NewStreamableHTTPServer(mcpServer,
		mcpserver.WithEndpointPath(EndpointPath),
		mcpserver.WithStateLess(true),
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return mail.ContextWithHeaders(ctx, r.Header)
		}),
	)

	limiter := NewRateLimiter(config.RateLimit, config.RateBurst)

	mux := http.NewServeMux()
	mux.Handle(EndpointPath, RecordRequests(config.Metrics, EndpointPath,
		limiter.Middleware(
			RequireBearer(config.Resolver, config.Metrics, streamable))))
	config.Health.RegisterHealthEndpoints(mux)

	return &HTTPServer{
		limiter: limiter,
		addr:    config.Addr,
		logger:  config.Logger,
		httpServer: &http.Server{
			Addr:              config.Addr,
			Handler:           mux,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
	}, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens on the configured address and serves until Shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. A clean shutdown returns nil.
func (s *HTTPServer) Serve(ln net.Listener) error {
	s.logger.Info("starting MCP HTTP server",
		slog.String("addr", ln.Addr().String()),
		slog.String("endpoint", EndpointPath),
	)
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	s.logger.Info("shutting down MCP HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured address.
func (s *HTTPServer) Addr() string {
	return s.addr
}
