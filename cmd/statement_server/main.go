package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fincore-statement-engine/internal/api"
	"github.com/fincore-statement-engine/internal/cache"
	"github.com/fincore-statement-engine/internal/config"
	"github.com/fincore-statement-engine/internal/data/mongo"
	"github.com/fincore-statement-engine/internal/data/postgres"
	"github.com/fincore-statement-engine/internal/domain/statement"
	"github.com/fincore-statement-engine/internal/engine/computation"
	"github.com/fincore-statement-engine/internal/engine/validation"
	"github.com/fincore-statement-engine/internal/export"
	"github.com/fincore-statement-engine/internal/logger"
	"github.com/fincore-statement-engine/internal/monitor"
	"github.com/fincore-statement-engine/internal/platform/messaging/producers"
	"github.com/fincore-statement-engine/internal/platform/persistence"
	"github.com/fincore-statement-engine/internal/resilience"
	"github.com/fincore-statement-engine/internal/statement_service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("statement_server")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producers for statement distribution
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ producer", "error", err)
		os.Exit(1)
	}
	var dlq producers.DeadLetterPublisher
	if dlqProducer != nil {
		dlq = dlqProducer
	}
	eventProducer, err := producers.NewStatementEventProducer(appCtx, log, &cfg.Kafka, dlq)
	if err != nil {
		log.Error("Failed to initialize statement event producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	statementRepo := postgres.NewStatementRepository(log, postgresDB)
	accountReader := postgres.NewAccountReader(log, postgresDB)
	auditArchive := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize engines
	computeEngine := computation.NewEngine(log)
	validationEngine := validation.NewEngine(log)

	// Initialize statement cache with deep-copied entries
	statementCache := cache.New(log, cache.Config{
		MaxEntries: cfg.Cache.MaxEntries,
		MaxBytes:   cfg.Cache.MaxBytes,
		DefaultTTL: cfg.Cache.DefaultTTL,
	}, func(st *statement.Statement) *statement.Statement {
		return st.Clone()
	})

	// Initialize performance monitor with Prometheus metrics
	metrics := monitor.NewMetrics(prometheus.DefaultRegisterer)
	thresholds := map[string]time.Duration{}
	for k, v := range monitor.DefaultThresholds {
		thresholds[k] = v
	}
	if cfg.Monitor.GenerationThreshold > 0 {
		thresholds["generation"] = cfg.Monitor.GenerationThreshold
	}
	if cfg.Monitor.ValidationThreshold > 0 {
		thresholds["validation"] = cfg.Monitor.ValidationThreshold
	}
	perfMonitor := monitor.New(log,
		monitor.WithThresholds(thresholds),
		monitor.WithMetrics(metrics),
	)

	// Critical errors are surfaced as error logs until an alerting channel
	// is attached.
	errHandler := resilience.NewHandler(log, func(e resilience.StructuredError) {
		log.Error("Critical error escalated",
			"operation", e.Operation,
			"category", e.Category,
			"message", e.Message,
			"error_id", e.ID,
		)
	})

	// Initialize statement exporter
	exporter, err := export.NewFileExporter(log, &cfg.Export)
	if err != nil {
		log.Error("Failed to initialize exporter", "error", err)
		os.Exit(1)
	}

	// Initialize statement service
	service := statement_service.NewStatementService(
		log,
		statementRepo,
		auditArchive,
		accountReader,
		computeEngine,
		validationEngine,
		statementCache,
		perfMonitor,
		errHandler,
		eventProducer,
		cfg.Resilience.MaxRetryAttempts,
	)

	// Initialize REST server
	server := api.NewServer(log, cfg, api.Dependencies{
		Service:    service,
		Archive:    auditArchive,
		Exporter:   exporter,
		Cache:      statementCache,
		Monitor:    perfMonitor,
		Resilience: errHandler,
	})
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing statement event producer", "error", err)
	}
	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ producer", "error", err)
		}
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
