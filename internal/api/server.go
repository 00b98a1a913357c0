// Package api provides the HTTP admin API for the securekv service.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/narvanalabs/securekv/internal/api/handlers"
	"github.com/narvanalabs/securekv/internal/api/middleware"
	"github.com/narvanalabs/securekv/internal/auth"
	"github.com/narvanalabs/securekv/internal/backing"
	"github.com/narvanalabs/securekv/internal/backup"
	"github.com/narvanalabs/securekv/internal/migration"
	"github.com/narvanalabs/securekv/internal/securestore"
	"github.com/narvanalabs/securekv/pkg/config"
)

// Version is the current version of the service.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP admin API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	config     *config.Config
	backing    backing.Store
	store      *securestore.Store
	migrations *migration.Engine
	backups    *backup.Service
	auth       *auth.Service
	logger     *slog.Logger
}

// NewServer creates a new admin API server with the given dependencies.
func NewServer(cfg *config.Config, b backing.Store, store *securestore.Store, m *migration.Engine, bk *backup.Service, authSvc *auth.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:     cfg,
		backing:    b,
		store:      store,
		migrations: m,
		backups:    bk,
		auth:       authSvc,
		logger:     logger,
	}
	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check endpoint (no auth required)
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		handlers.WriteJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"version":    Version,
			"encrypting": s.store.Encrypting(),
			"entries":    s.backing.Len(),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		authMiddleware := middleware.NewAuthMiddleware(s.auth, s.logger)
		r.Use(authMiddleware.Authenticate)

		storeHandler := handlers.NewStoreHandler(s.store, s.logger)
		r.Route("/store", func(r chi.Router) {
			r.Get("/", storeHandler.Keys)
			r.Post("/clear", storeHandler.Clear)
			r.Post("/cleanup", storeHandler.Cleanup)
			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", storeHandler.Get)
				r.Put("/", storeHandler.Set)
				r.Delete("/", storeHandler.Delete)
			})
		})

		migrateHandler := handlers.NewMigrateHandler(s.migrations, s.logger)
		r.Route("/migrate", func(r chi.Router) {
			r.Post("/key", migrateHandler.Key)
			r.Post("/batch", migrateHandler.Batch)
			r.Post("/all", migrateHandler.All)
			r.Get("/status", migrateHandler.Status)
			r.Post("/rollback", migrateHandler.Rollback)
		})

		recommendHandler := handlers.NewRecommendHandler(s.backing, s.logger)
		r.Get("/recommendations", recommendHandler.List)

		backupHandler := handlers.NewBackupHandler(s.backups, s.config.Backup.AgeRecipient, s.config.Backup.AgeIdentity, s.logger)
		r.Post("/backup", backupHandler.Create)
		r.Post("/restore", backupHandler.Restore)
	})

	s.router = r
}

// Start runs the HTTP server until the context is canceled, then shuts it
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting admin API server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down admin API server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
