// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/matthewbaird/oql/internal/analysis"
	"github.com/matthewbaird/oql/internal/history"
	"github.com/matthewbaird/oql/internal/repl"
	"github.com/matthewbaird/oql/internal/repl/session"
	"github.com/matthewbaird/oql/internal/schema"
)

// Config holds server configuration.
type Config struct {
	Port           int
	RequestTimeout time.Duration // /api request deadline; also bounds each REPL parse
	SweepInterval  time.Duration // how often stale REPL sessions are removed

	Registry *schema.Registry
	Analyzer *analysis.Analyzer
	Sessions *session.Manager
	Store    history.Store
	Logger   *slog.Logger
}

func (c *Config) defaults() {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// NewRouter returns the HTTP handler with every route registered.
func NewRouter(cfg Config) http.Handler {
	cfg.defaults()
	h := &handlers{
		registry: cfg.Registry,
		analyzer: cfg.Analyzer,
		store:    cfg.Store,
		logger:   cfg.Logger,
	}

	r := chi.NewMux()
	r.Use(middleware.RequestID, requestLogger(cfg.Logger), middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))

		r.Post("/api/parse", h.parse)
		r.Get("/api/schema", h.listEntities)
		r.Get("/api/schema/{entity}", h.getEntity)
		r.Get("/api/functions", h.listFunctions)
		r.Get("/api/history", h.listHistory)
		r.Get("/api/history/search", h.searchHistory)
	})

	repl.RegisterRoutes(r, repl.Deps{
		Registry: cfg.Registry,
		Analyzer: cfg.Analyzer,
		Sessions: cfg.Sessions,
		Store:    cfg.Store,
		Logger:   cfg.Logger,

		ParseTimeout: cfg.RequestTimeout,
	})
	return r
}

// Run starts the HTTP server and the session sweeper, and shuts both down
// when ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	cfg.defaults()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cfg.Logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		cfg.Logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Sessions != nil {
		g.Go(func() error {
			cfg.Sessions.Run(gctx, cfg.SweepInterval)
			return nil
		})
	}

	return g.Wait()
}
