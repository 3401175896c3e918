// Package httpserver wraps http.Server with timeouts suitable for an
// API-facing service so main stays lean.
package httpserver

import (
	"context"
	"net/http"
	"time"
)

// Server wraps http.Server with opinionated defaults.
type Server struct {
	srv *http.Server
}

// New creates a server bound to addr serving the given handler.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// ListenAndServe starts serving. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
