// Package server contains the HTTP surface of the scheduler service.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"cronplane/internal/authz"
	"cronplane/internal/scheduler"
	"cronplane/internal/server/handlers"
	"cronplane/internal/server/middleware"
	"cronplane/internal/store"
)

// Config holds server wiring options.
type Config struct {
	Addr           string
	DispatchSecret string
	AuthzEnforce   bool
	RateLimit      float64
	RateLimitBurst int
}

// Server is the HTTP server for the scheduler API.
type Server struct {
	httpServer *http.Server
}

// New creates a new scheduler server.
func New(cfg Config, s store.Store, gate *authz.Gate, executor *scheduler.Executor, dispatcher *scheduler.Dispatcher, metricsHandler http.Handler, log *slog.Logger) *Server {
	h := handlers.New(s, gate, executor, dispatcher, log, cfg.AuthzEnforce)

	authMW := middleware.SessionAuth(s)
	rateMW := middleware.RateLimit(cfg.RateLimit, cfg.RateLimitBurst)
	dispatchMW := middleware.RequireDispatchSecret(cfg.DispatchSecret)

	operator := func(next http.HandlerFunc) http.Handler {
		return authMW(rateMW(next))
	}

	mux := http.NewServeMux()

	// Periodic trigger. Shared-secret auth, no human actor.
	mux.Handle("POST /internal/dispatch", dispatchMW(http.HandlerFunc(h.Dispatch)))

	// Operator APIs, session-authenticated.
	mux.Handle("POST /jobs", operator(h.CreateJob))
	mux.Handle("GET /jobs", authMW(http.HandlerFunc(h.ListJobs)))
	mux.Handle("GET /jobs/{id}", authMW(http.HandlerFunc(h.GetJob)))
	mux.Handle("POST /jobs/{id}/trigger", operator(h.TriggerJob))
	mux.Handle("POST /jobs/{id}/cancel", operator(h.CancelJob))

	mux.HandleFunc("GET /healthz", h.Health)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      middleware.RequestID(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 5 * time.Minute, // manual triggers block on handler execution
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
