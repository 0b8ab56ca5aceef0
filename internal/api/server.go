// Package api exposes an optional, off-by-default HTTP surface around
// a running ami.Client: liveness, connection status, and a websocket
// stream of every AMI event. It is not part of the core client -
// amictl connect starts it only when api.enabled is set or the --api
// flag is given.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/stumpfworks/asterisk-ami/internal/config"
	"github.com/stumpfworks/asterisk-ami/pkg/ami"
)

// Server wraps a chi.Mux exposing status endpoints for one AMI Client.
type Server struct {
	router *chi.Mux
	client *ami.Client
	cfg    config.APIConfig
	hub    *eventHub
	http   *http.Server
}

// NewServer builds a Server bound to client, using cfg for the bind
// address and allowed CORS origins. Call Start to accept connections.
func NewServer(client *ami.Client, cfg config.APIConfig) *Server {
	s := &Server{
		router: chi.NewRouter(),
		client: client,
		cfg:    cfg,
		hub:    newEventHub(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/status", s.handleStatus)
	s.router.Get("/ws/events", s.handleWSEvents)

	// Every AMI event feeds the hub for fan-out to websocket clients,
	// registered once up front rather than per-connection so events
	// arriving before the first client connects aren't lost.
	client.RegisterEvent([]string{"*"}, s.hub.broadcast)

	return s
}

// Handler returns the underlying http.Handler, for embedding behind a
// caller-managed http.Server (tests, or a process that multiplexes
// several HTTP surfaces behind one listener).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving on cfg.Host:cfg.Port. Blocks until Shutdown
// stops it, returning nil in that case.
func (s *Server) Start() error {
	addr := formatAddr(s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{Addr: addr, Handler: s.router}
	log.Info().Str("addr", addr).Msg("starting ami status api")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server and closes any open
// websocket connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func formatAddr(host string, port int) string {
	if host == "" {
		host = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", host, port)
}
