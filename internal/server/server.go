// Package server hosts the relay's HTTP surface and its lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/brizzai/auth-relay/internal/auth"
	"github.com/brizzai/auth-relay/internal/config"
	"github.com/brizzai/auth-relay/internal/logger"
	"github.com/brizzai/auth-relay/internal/utils"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
)

// Server owns the http.Server wrapping the auth service's routes.
type Server struct {
	cfg  *config.Config
	auth *auth.Service
	http *http.Server
}

// NewServer assembles the mux and middleware chain around the auth service.
func NewServer(cfg *config.Config, authService *auth.Service) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", handleHealth)
	authService.RegisterRoutes(mux)

	handler := authService.WrapWithMiddleware(mux, cfg.Server.AllowOrigins)

	return &Server{
		cfg:  cfg,
		auth: authService,
		http: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, map[string]string{
		"status":  "healthy",
		"service": "auth-relay",
		"version": config.Version(),
	})
}

// Handler exposes the full middleware-wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) serve() {
	logger.Info("Starting server", zap.String("address", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Module provides the HTTP server and hooks it into the fx lifecycle
var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go s.serve()
				return nil
			},
			OnStop: s.Stop,
		})
	}),
)
