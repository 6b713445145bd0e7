// Package server provides the HTTP API for Tadoru.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/tadoru/internal/config"
	"github.com/hyperjump/tadoru/internal/resolve"
	"github.com/hyperjump/tadoru/internal/storage"
)

// Server is the HTTP server for the Tadoru API.
type Server struct {
	coordinator *resolve.Coordinator
	storage     storage.Storage
	config      *config.ServerConfig
	appConfig   *config.Config
	logger      *zap.Logger
	server      *http.Server
}

// NewServer creates a server with the given dependencies. appConfig may be nil;
// it only enriches the status response.
func NewServer(
	coordinator *resolve.Coordinator,
	store storage.Storage,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	appConfig *config.Config,
) *Server {
	return &Server{
		coordinator: coordinator,
		storage:     store,
		config:      cfg,
		appConfig:   appConfig,
		logger:      logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/resolve", s.handleResolve)
	r.Get("/api/v1/artifacts/{id}", s.handleGetArtifact)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
