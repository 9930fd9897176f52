package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server wraps an HTTP server with graceful shutdown support.
type Server struct {
	server *http.Server
	router chi.Router
}

// NewServer creates a Server serving the router on addr.
func NewServer(router chi.Router, addr string) *Server {
	return &Server{
		router: router,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start listens and serves until the server is shut down.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains active connections until the context is cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// HTTPServer exposes the underlying server for shutdown hooks.
func (s *Server) HTTPServer() *http.Server {
	return s.server
}

// Router returns the server's router.
func (s *Server) Router() chi.Router {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}
