// Package server exposes the pipeline workbench over HTTP: a JSON API
// for the canvas client plus SSE endpoints for live run progress.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/lumagraph-labs/lumagraph/internal/batch"
	"github.com/lumagraph-labs/lumagraph/internal/catalog"
	"github.com/lumagraph-labs/lumagraph/internal/engine"
	"github.com/lumagraph-labs/lumagraph/internal/notify"
	"github.com/lumagraph-labs/lumagraph/internal/remote"
	"github.com/lumagraph-labs/lumagraph/internal/workspace"
	"github.com/lumagraph-labs/lumagraph/pkg/core"
)

// Server is the main workbench server.
type Server struct {
	engine       *engine.Engine
	store        core.Store
	workspace    *workspace.Workspace
	batch        *batch.Manager
	catalog      *catalog.Catalog
	backend      *remote.Client
	sessionStore *sessions.CookieStore
	notifier     *notify.Notifier
	port         int
	watch        bool
	logger       *slog.Logger
}

// Config holds configuration for the workbench server.
type Config struct {
	Engine        *engine.Engine
	Store         core.Store
	Workspace     *workspace.Workspace
	Batch         *batch.Manager
	Catalog       *catalog.Catalog
	Backend       *remote.Client
	Notifier      *notify.Notifier
	Port          int
	Watch         bool
	SessionSecret string
	Logger        *slog.Logger
}

// NewServer creates a new workbench server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	nf := cfg.Notifier
	if nf == nil {
		nf = notify.New()
	}

	return &Server{
		engine:       cfg.Engine,
		store:        cfg.Store,
		workspace:    cfg.Workspace,
		batch:        cfg.Batch,
		catalog:      cfg.Catalog,
		backend:      cfg.Backend,
		sessionStore: sessionStore,
		notifier:     nf,
		port:         cfg.Port,
		watch:        cfg.Watch,
		logger:       logger,
	}
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting workbench server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Re-broadcast when workflow files change on disk, so open clients
	// pick up edits made outside the browser.
	if s.watch && s.workspace != nil {
		eg.Go(func() error {
			return s.workspace.Watch(egctx, s.notifier.Broadcast)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down workbench server...")
		// Release SSE streams first so Shutdown is not held up by
		// long-lived progress connections.
		s.notifier.Close()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// routes assembles the HTTP surface.
func (s *Server) routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/workflows", s.handleListWorkflows)
		r.Get("/workflows/{name}", s.handleGetWorkflow)
		r.Put("/workflows/{name}", s.handleSaveWorkflow)
		r.Delete("/workflows/{name}", s.handleDeleteWorkflow)
		r.Post("/workflows/{name}/run", s.handleRunWorkflow)

		r.Get("/run/state", s.handleRunState)
		r.Post("/run/cancel", s.handleRunCancel)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)

		r.Get("/operations", s.handleListOperations)
		r.Post("/operations/refresh", s.handleRefreshOperations)
		r.Get("/images", s.handleListImages)

		r.Post("/batch", s.handleStartBatch)
		r.Get("/batch/{id}", s.handleGetBatch)
		r.Post("/batch/{id}/cancel", s.handleCancelBatch)

		r.Get("/session", s.handleGetSession)
		r.Put("/session", s.handlePutSession)
	})

	r.Get("/sse/progress", s.handleProgressSSE)

	return r
}
