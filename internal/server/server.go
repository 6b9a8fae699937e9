// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and
// routes, and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	Config → Server.New() creates:
//	  sqlite.DB ─┬→ IdentityService ─┬→ AuthHandler
//	             │   (GitHubProvider) │
//	             └→ FeedService ──────┴→ FeedHandler
//	  SessionRegistry → AuthHandler, auth middleware
//
// This is the "composition root": all dependencies are wired in one place
// (New/setupRoutes). Nothing is global except the Prometheus collectors.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/handler"
	"github.com/sakif/notes/internal/metrics"
	"github.com/sakif/notes/internal/middleware"
	sqliteRepo "github.com/sakif/notes/internal/repository/sqlite"
	"github.com/sakif/notes/internal/service"
	"github.com/sakif/notes/web"
)

const (
	defaultRateLimit = 2.0 // requests per second per client, on write routes
	defaultBurst     = 20

	shutdownTimeout = 30 * time.Second
)

// Config holds server configuration.
type Config struct {
	Host   string
	Port   int
	DBPath string

	GitHub        auth.GitHubConfig
	StateSecret   string // empty: random per process
	SecureCookies bool

	// Per-client limit on the write routes and the OAuth callback.
	// Zero means the defaults.
	RateLimit float64
	Burst     int
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and closes it when Start returns.
type Server struct {
	router   *chi.Mux
	config   Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions *auth.SessionRegistry
	limiter  *middleware.RateLimiter
}

// New creates a Server with the given config.
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		sessions: auth.NewSessionRegistry(),
		limiter:  middleware.NewRateLimiter(cfg.RateLimit, cfg.Burst, logger),
	}
	metrics.TrackSessions(s.sessions.Len)

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the router. Tests serve it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                    → Feed page (HTML), public
// GET    /api/notes           → Feed (JSON), public
// GET    /login/github        → Redirect to GitHub
// GET    /callbacks/github    → OAuth callback, sets the session cookie
// GET    /logout              → Revoke session, redirect to /
// POST   /add                 → Post a note, returns the notes fragment
// DELETE /delete/{note_id}    → Delete own note, returns the notes fragment
// GET    /static/*            → Embedded CSS
// GET    /metrics             → Prometheus
// GET    /healthz             → 200 when the database answers, else 503
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. Logger: logs each request with timing info
// 5. Metrics: counts requests per route pattern
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)

	// === Static Files ===
	staticFS, err := fs.Sub(web.FS, "static")
	if err != nil {
		return fmt.Errorf("opening static files: %w", err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(staticFS)))
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", s.handleHealth)

	// === Services ===
	// The handler never touches the database directly.
	// The service never touches HTTP.
	provider := auth.NewGitHubProvider(s.config.GitHub)
	identities := service.NewIdentityService(provider, s.db, s.logger)
	feed := service.NewFeedService(s.db, s.logger)

	states, err := auth.NewStateSigner(s.config.StateSecret)
	if err != nil {
		return err
	}

	feedHandler, err := handler.NewFeedHandler(feed, identities, s.logger)
	if err != nil {
		return fmt.Errorf("creating feed handler: %w", err)
	}
	authHandler := handler.NewAuthHandler(provider, identities, s.sessions, states, s.config.SecureCookies, s.logger)

	// === Public Routes ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(s.sessions))
		r.Get("/", feedHandler.HandleIndex)
		r.Get("/api/notes", feedHandler.HandleListNotes)
	})

	// === Login ===
	s.router.Get("/login/github", authHandler.HandleGitHubLogin)
	s.router.Get("/logout", authHandler.HandleLogout)
	s.router.With(s.limiter.Handler).Get("/callbacks/github", authHandler.HandleGitHubCallback)

	// === Protected Routes ===
	// RequireAuth answers 401 before the handler runs.
	s.router.Group(func(r chi.Router) {
		r.Use(s.limiter.Handler)
		r.Use(auth.RequireAuth(s.sessions))
		r.Post("/add", feedHandler.HandleAdd)
		r.Delete("/delete/{note_id}", feedHandler.HandleDelete)
	})

	return nil
}

// handleHealth reports whether the database is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go s.limiter.Cleanup(cleanupCtx)

	// WriteTimeout covers the callback's two provider round trips.
	srv := &http.Server{
		Addr:         net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port)),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*s.providerTimeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("url", "http://"+srv.Addr),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close releases the database without starting. Start closes it itself.
func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) providerTimeout() time.Duration {
	if s.config.GitHub.Timeout > 0 {
		return s.config.GitHub.Timeout
	}
	return auth.DefaultProviderTimeout
}
