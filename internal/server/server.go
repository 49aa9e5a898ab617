// Package server exposes the module system's boundary operations over a
// small JSON HTTP API. It is a thin caller of the registry; all
// behavior lives behind the registry's operations.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/stablecore-labs/stablecore/pkg/core"
)

// Service is the registry surface the API serves.
type Service interface {
	GetModuleStatus() core.ModuleStatus
	GetSystemHealth() core.SystemHealth
	UpdateModule(name, source string) core.UpdateResult
	CompileModule(name, source string) core.CompilationResult
	ValidateModule(artifactLocation string) core.ValidationResult
	HotReloadModule(name, artifactLocation string) core.HotReloadResult
	ListBackups() map[string]core.BackupRecord
	ListCoreModules() []core.ModuleRecord
	ListDynamicModules() []core.ModuleRecord
}

// Server is the HTTP API server.
type Server struct {
	service Service
	addr    string
	logger  *slog.Logger
}

// New creates an API server for the given registry service.
func New(service Service, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{service: service, addr: addr, logger: logger}
}

// Router builds the chi router for the API.
func (s *Server) Router() http.Handler {
	r := chi.NewMux()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/health", s.handleHealth)
		r.Get("/backups", s.handleBackups)
		r.Get("/modules/core", s.handleCoreModules)
		r.Get("/modules/dynamic", s.handleDynamicModules)
		r.Post("/modules/{name}", s.handleUpdate)
		r.Post("/modules/{name}/reload", s.handleReload)
		r.Post("/compile", s.handleCompile)
		r.Post("/validate", s.handleValidate)
	})
	return r
}

// Serve runs the HTTP server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting API server", "addr", s.addr)

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
