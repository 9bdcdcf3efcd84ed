// Package server assembles the HTTP API: routes, middleware and lifecycle.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rumor-ml/commons.systems/txparse/internal/handlers"
	"github.com/rumor-ml/commons.systems/txparse/internal/middleware"
)

// Config holds the server assembly inputs. Parser is required. Verifier
// enables Firebase authentication on the API routes when set; History
// enables the transaction query endpoint.
type Config struct {
	Parser   handlers.Parser
	History  handlers.HistoryReader
	Verifier middleware.TokenVerifier
}

// Server is the parse API server.
type Server struct {
	mux  *http.ServeMux
	auth *middleware.Auth
}

// New creates a server and registers its routes.
func New(cfg Config) *Server {
	s := &Server{mux: http.NewServeMux()}
	if cfg.Verifier != nil {
		s.auth = middleware.NewAuth(cfg.Verifier)
	}

	api := handlers.NewAPI(cfg.Parser, cfg.History)

	// Health stays unauthenticated for load balancer probes.
	s.mux.HandleFunc("GET /health", handlers.HealthCheck)
	s.mux.Handle("POST /api/parse", s.protect(http.HandlerFunc(api.ParseStatement)))
	s.mux.Handle("POST /api/parse-text", s.protect(http.HandlerFunc(api.ParseText)))
	s.mux.Handle("GET /api/transactions/isin/{isin}", s.protect(http.HandlerFunc(api.TransactionsByISIN)))

	return s
}

// protect wraps h with authentication when a verifier is configured.
func (s *Server) protect(h http.Handler) http.Handler {
	if s.auth == nil {
		return h
	}
	return s.auth.RequireAuth(h)
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return middleware.CORS(middleware.RequestID(s.mux))
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
