package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/speakup-platform/speakup-backend/internal/infrastructure/config"
)

// Server is the HTTP serving surface with graceful shutdown.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	shutdown   time.Duration
}

// NewServer assembles the middleware chain around the router.
func NewServer(cfg config.ServerConfig, mux *http.ServeMux, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	handler := chain(mux,
		recoveryMiddleware(logger),
		requestIDMiddleware,
		loggingMiddleware(logger),
		rateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize),
	)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger:   logger,
		shutdown: cfg.ShutdownTimeout,
	}
}

// Start serves until the context is canceled, then drains in-flight
// requests within the shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	s.logger.Info("http server draining")
	return s.httpServer.Shutdown(shutdownCtx)
}
