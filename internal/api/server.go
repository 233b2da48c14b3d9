package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fincore-statement-engine/internal/api/handler"
	"github.com/fincore-statement-engine/internal/cache"
	"github.com/fincore-statement-engine/internal/config"
	"github.com/fincore-statement-engine/internal/domain/statement"
	"github.com/fincore-statement-engine/internal/monitor"
	"github.com/fincore-statement-engine/internal/resilience"
	"github.com/fincore-statement-engine/internal/statement_service"
)

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger // For structured logging
	httpServer *http.Server // Underlying HTTP server
	httpRouter *gin.Engine  // Gin router instance
}

// Dependencies carries everything the HTTP layer needs wired in
type Dependencies struct {
	Service    statement_service.Service
	Archive    statement.AuditArchive
	Exporter   statement_service.Exporter
	Cache      *cache.Cache[*statement.Statement]
	Monitor    *monitor.Monitor
	Resilience *resilience.Handler
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, deps Dependencies) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	statementHandler := handler.NewStatementHandler(log, deps.Service, deps.Archive, deps.Exporter)
	systemHandler := handler.NewSystemHandler(log, deps.Cache, deps.Monitor, deps.Resilience)

	setupRouter(log, httpRouter, statementHandler, systemHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
