package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultMetricsAddr binds the metrics server to loopback.
	DefaultMetricsAddr = "127.0.0.1:9090"

	DefaultMetricsReadTimeout  = 10 * time.Second
	DefaultMetricsWriteTimeout = 10 * time.Second
	DefaultMetricsIdleTimeout  = 60 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown of either server.
	DefaultShutdownTimeout = 30 * time.Second
)

// MetricsServerConfig configures the metrics server.
type MetricsServerConfig struct {
	// Addr defaults to DefaultMetricsAddr.
	Addr string

	// Handler serves /metrics, normally the instrumentation provider's
	// prometheus handler.
	Handler http.Handler

	Logger *slog.Logger
}

// MetricsServer serves /metrics on its own listener, apart from the MCP
// endpoint and its credentials.
type MetricsServer struct {
	httpServer *http.Server
	addr       string
	logger     *slog.Logger
}

// NewMetricsServer validates config and builds the server.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.Handler == nil {
		return nil, errors.New("metrics handler is required; is the prometheus exporter enabled?")
	}
	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", config.Handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{
		addr:   config.Addr,
		logger: config.Logger,
		httpServer: &http.Server{
			Addr:              config.Addr,
			Handler:           mux,
			ReadHeaderTimeout: DefaultMetricsReadTimeout,
			WriteTimeout:      DefaultMetricsWriteTimeout,
			IdleTimeout:       DefaultMetricsIdleTimeout,
		},
	}, nil
}

// Start listens on the configured address and serves until Shutdown.
func (s *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("metrics server listen on %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. A clean shutdown returns nil.
func (s *MetricsServer) Serve(ln net.Listener) error {
	s.logger.Info("starting metrics server", slog.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured address.
func (s *MetricsServer) Addr() string {
	return s.addr
}
