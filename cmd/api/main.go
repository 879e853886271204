package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mixshift/sqp-importer/internal/api"
	"github.com/mixshift/sqp-importer/internal/app"
	"github.com/mixshift/sqp-importer/internal/config"
	"github.com/mixshift/sqp-importer/internal/logger"
	"github.com/mixshift/sqp-importer/internal/repository"
)

func main() {
	// Initialize logger first (with defaults, then env overrides)
	appLogger := logger.NewFromEnv(nil)
	logger.SetDefaultLogger(appLogger)

	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if len(cfg.Tenants) == 0 {
		appLogger.Fatal("No tenants configured")
	}

	registry := repository.NewRegistry(cfg.Tenants, cfg.Database)

	scheduler, detector, backfill, err := app.BuildEngine(cfg, registry, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to build engine")
	}

	router := api.SetupRouter(registry, scheduler, detector, backfill, appLogger, cfg.Server.Mode)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithField("port", cfg.Server.Port).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Error("Forced shutdown")
	}
	appLogger.Info("Server stopped")
}
