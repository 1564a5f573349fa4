// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - /api/v1 serves the catalog contract, /ws the notification hub, and every
    other path goes through the offline cache proxy.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/cardbinder/internal/catalog"
	"github.com/taibuivan/cardbinder/internal/platform/config"
	"github.com/taibuivan/cardbinder/internal/platform/constants"
	"github.com/taibuivan/cardbinder/internal/platform/middleware"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups every HTTP handler the server mounts.
type Handlers struct {
	// Liveness is the /health handler: always 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler: 200 when all backing stores answer.
	Readiness http.HandlerFunc

	// Catalog serves the collaborator contract under /api/v1.
	Catalog *catalog.Handler

	// Notifications upgrades /ws to the broadcast websocket.
	Notifications http.Handler

	// Proxy serves the app, set files and artwork through the offline cache.
	Proxy http.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Notifications
	// Long-lived; kept outside the request timeout and the rate limiter.
	r.Handle("/ws", h.Notifications)

	r.Group(func(bounded chi.Router) {
		bounded.Use(chimw.Timeout(constants.GlobalRequestTimeout))
		bounded.Use(middleware.RateLimit(context))

		// # Application API
		bounded.Route("/api/v1", h.Catalog.RegisterRoutes)

		// # Offline Proxy
		// Everything else is app shell, dataset or artwork.
		bounded.Handle("/*", h.Proxy)
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
