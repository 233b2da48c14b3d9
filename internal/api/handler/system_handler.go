package handler

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fincore-statement-engine/internal/cache"
	"github.com/fincore-statement-engine/internal/domain/statement"
	"github.com/fincore-statement-engine/internal/monitor"
	"github.com/fincore-statement-engine/internal/resilience"
)

// SystemHandler exposes cache, performance and error diagnostics
type SystemHandler struct {
	cache      *cache.Cache[*statement.Statement]
	monitor    *monitor.Monitor
	resilience *resilience.Handler
	logger     *slog.Logger
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(logger *slog.Logger, statementCache *cache.Cache[*statement.Statement], perfMonitor *monitor.Monitor, errHandler *resilience.Handler) *SystemHandler {
	return &SystemHandler{
		cache:      statementCache,
		monitor:    perfMonitor,
		resilience: errHandler,
		logger:     logger,
	}
}

// CacheStats reports hit rate, eviction counts and the hottest keys
func (h *SystemHandler) CacheStats(c *gin.Context) {
	topN := 10
	if raw := c.Query("top"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			RespondBadRequest(c, "Invalid top parameter")
			return
		}
		topN = parsed
	}
	RespondOK(c, h.cache.Stats(topN))
}

// PerformanceReport reports operation latencies, threshold breaches and
// recent failures
func (h *SystemHandler) PerformanceReport(c *gin.Context) {
	maxFailures := 10
	if raw := c.Query("max_failures"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			RespondBadRequest(c, "Invalid max_failures parameter")
			return
		}
		maxFailures = parsed
	}
	RespondOK(c, h.monitor.Report(maxFailures))
}

// ErrorStats reports recorded error counts grouped by severity and operation
func (h *SystemHandler) ErrorStats(c *gin.Context) {
	window := time.Hour
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			RespondBadRequest(c, "Invalid window parameter, expected a duration like 30m")
			return
		}
		window = parsed
	}
	RespondOK(c, h.resilience.Stats(window))
}

// RecentErrors reports the most recently recorded structured errors
func (h *SystemHandler) RecentErrors(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			RespondBadRequest(c, "Invalid limit parameter")
			return
		}
		limit = parsed
	}
	RespondOK(c, h.resilience.Recent(limit))
}
