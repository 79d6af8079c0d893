package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// shutdownTimeout bounds the graceful shutdown of the metrics listener.
const shutdownTimeout = 5 * time.Second

// Server exposes a Prometheus gatherer over HTTP.
//
// Server provides two endpoints:
//   - GET /metrics: Prometheus text exposition
//   - GET /healthz: liveness probe, always 200
type Server struct {
	addr       string
	gatherer   prometheus.Gatherer
	logger     *slog.Logger
	httpServer *http.Server
	listener   net.Listener
	done       chan struct{}
}

// NewServer creates a [Server] listening on addr (host:port). If logger is
// nil, slog.Default() is used. The server is not started until [Server.Start].
func NewServer(addr string, g prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:     addr,
		gatherer: g,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start binds the listener and serves in a background goroutine.
//
// Start is non-blocking and returns once the port is bound. The server runs
// until ctx is cancelled, then shuts down gracefully; [Server.Done] is closed
// once shutdown has finished.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind metrics listener on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		defer close(s.done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("metrics server shutdown error", "error", err)
		}
	}()

	s.logger.Info("metrics server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Done is closed after the server has shut down.
func (s *Server) Done() <-chan struct{} {
	return s.done
}
