package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mixshift/sqp-importer/internal/api/handler"
	"github.com/mixshift/sqp-importer/internal/api/middleware"
	"github.com/mixshift/sqp-importer/internal/logger"
	"github.com/mixshift/sqp-importer/internal/repository"
	"github.com/mixshift/sqp-importer/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	registry *repository.Registry,
	scheduler *service.Scheduler,
	detector *service.StuckDetector,
	backfill *service.Backfill,
	log *logger.Logger,
	mode string,
) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	cronHandler := handler.NewCronHandler(registry, scheduler, detector, backfill, log)
	jobHandler := handler.NewJobHandler(registry)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Cron triggers
		cron := v1.Group("/cron")
		{
			cron.POST("/pull", cronHandler.Pull)
			cron.POST("/check-status", cronHandler.CheckStatus)
			cron.POST("/retry-stuck", cronHandler.RetryStuck)
			cron.POST("/backfill", cronHandler.Backfill)
			cron.POST("/reset-eligibility", cronHandler.ResetEligibility)
			cron.GET("/status", cronHandler.Status)
		}

		// Jobs
		v1.GET("/jobs/:id", jobHandler.GetJob)
	}

	return r
}
