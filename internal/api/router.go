package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fincore-statement-engine/internal/api/handler"
	"github.com/fincore-statement-engine/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	statementHandler *handler.StatementHandler,
	systemHandler *handler.SystemHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Statement lifecycle operations
		statements := v1.Group("/statements")
		{
			statements.POST("", statementHandler.Create)
			statements.GET("", statementHandler.List)
			statements.GET("/:id", statementHandler.GetByID)
			statements.PATCH("/:id", statementHandler.Update)
			statements.DELETE("/:id", statementHandler.Delete)
			statements.POST("/:id/approve", statementHandler.Approve)
			statements.POST("/:id/reject", statementHandler.Reject)
			statements.POST("/:id/publish", statementHandler.Publish)
			statements.POST("/:id/export", statementHandler.Export)
			statements.GET("/:id/audit", statementHandler.GetAuditTrail)
			statements.GET("/:id/validations", statementHandler.GetValidationReports)
		}

		// Diagnostics
		system := v1.Group("/system")
		{
			system.GET("/cache", systemHandler.CacheStats)
			system.GET("/performance", systemHandler.PerformanceReport)
			system.GET("/errors", systemHandler.ErrorStats)
			system.GET("/errors/recent", systemHandler.RecentErrors)
		}
	}

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
