// Package server exposes the resolution pipeline over HTTP for operators.
//
// It is not how users reach the bot. It exists to check a deployment
// without going through chat: health, a dry-run resolve, and history.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/issuebot/errors"
	"github.com/teranos/issuebot/history"
	"github.com/teranos/issuebot/pipeline"
)

// ShutdownTimeout bounds graceful shutdown of in-flight requests
const ShutdownTimeout = 5 * time.Second

// HistoryReader is the read side of the history store
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
	Stats(ctx context.Context, since time.Time) (*history.Stats, error)
}

// Server serves the operator endpoints
type Server struct {
	pipeline *pipeline.Pipeline
	history  HistoryReader // nil when storage.backend is "none"
	logger   *zap.SugaredLogger
	started  time.Time
}

// New creates a Server. history may be nil.
func New(p *pipeline.Pipeline, h HistoryReader, logger *zap.SugaredLogger) *Server {
	return &Server{
		pipeline: p,
		history:  h,
		logger:   logger,
		started:  time.Now(),
	}
}

// Handler returns the routed endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.HandleHealth)
	mux.HandleFunc("/api/resolve", s.HandleResolve)
	mux.HandleFunc("/api/history", s.HandleHistory)
	return mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WithHintf(errors.Wrapf(err, "failed to listen on %s", addr),
			"change server.address or set server.enabled = false")
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Infow("Operator endpoint listening", "address", ln.Addr().String())

	select {
	case err := <-errCh:
		return errors.Wrap(err, "operator endpoint stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("Operator endpoint shutdown timed out", "timeout", ShutdownTimeout, "error", err)
		return errors.Wrap(err, "failed to shut down operator endpoint")
	}
	s.logger.Infow("Operator endpoint stopped")
	return nil
}
