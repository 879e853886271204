package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/mixshift/sqp-importer/internal/app"
	"github.com/mixshift/sqp-importer/internal/config"
	"github.com/mixshift/sqp-importer/internal/logger"
	"github.com/mixshift/sqp-importer/internal/repository"
	"github.com/mixshift/sqp-importer/internal/service"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "sqp-puller",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	mode := flag.String("mode", "pull", "Operation to run: pull, status, stuck, backfill, reset-eligibility")
	tenantID := flag.String("tenant", "", "Tenant to operate on (default: all, or rotation for pull)")
	configPath := flag.String("config", "", "Path to config file")
	fromStr := flag.String("from", "", "Backfill window start (YYYY-MM-DD); overrides configured windows")
	toStr := flag.String("to", "", "Backfill window end (YYYY-MM-DD); defaults to now when -from is set")
	flag.Parse()

	override, err := parseWindow(*fromStr, *toStr)
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid backfill window")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if len(cfg.Tenants) == 0 {
		appLogger.Fatal("No tenants configured")
	}

	appLogger.WithFields(logger.Fields{
		"mode":   *mode,
		"tenant": *tenantID,
	}).Info("Starting pull run")

	registry := repository.NewRegistry(cfg.Tenants, cfg.Database)
	scheduler, detector, backfill, err := app.BuildEngine(cfg, registry, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to build engine")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *mode, *tenantID, override, registry, scheduler, detector, backfill); err != nil {
		appLogger.WithError(err).Fatal("Run failed")
	}
	appLogger.Info("Run complete")
}

func run(
	ctx context.Context,
	mode, tenantID string,
	override *service.Window,
	registry *repository.Registry,
	scheduler *service.Scheduler,
	detector *service.StuckDetector,
	backfill *service.Backfill,
) error {
	tctxs, err := resolveTenants(registry, tenantID)
	if err != nil {
		return err
	}

	switch mode {
	case "pull":
		if tenantID == "" {
			_, err := scheduler.RunOnce(ctx)
			return err
		}
		_, err = scheduler.RunTenant(ctx, tctxs[0])
		return err
	case "status":
		return forEach(ctx, tctxs, detector.CheckPending)
	case "stuck":
		return forEach(ctx, tctxs, detector.Scan)
	case "backfill":
		return forEach(ctx, tctxs, func(ctx context.Context, tctx *repository.TenantContext) (int, error) {
			return backfill.Run(ctx, tctx, override)
		})
	case "reset-eligibility":
		return forEach(ctx, tctxs, func(ctx context.Context, tctx *repository.TenantContext) (int, error) {
			n, err := scheduler.ResetEligibility(ctx, tctx)
			return int(n), err
		})
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// parseWindow builds the explicit backfill window from the flags, or nil
// when -from is absent.
func parseWindow(fromStr, toStr string) (*service.Window, error) {
	if fromStr == "" && toStr == "" {
		return nil, nil
	}
	if fromStr == "" {
		return nil, fmt.Errorf("-from is required when -to is given")
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return nil, fmt.Errorf("invalid -from date %q: expected YYYY-MM-DD", fromStr)
	}
	to := time.Now().UTC()
	if toStr != "" {
		if to, err = time.Parse("2006-01-02", toStr); err != nil {
			return nil, fmt.Errorf("invalid -to date %q: expected YYYY-MM-DD", toStr)
		}
	}
	if to.Before(from) {
		return nil, fmt.Errorf("-to %s precedes -from %s", toStr, fromStr)
	}
	return &service.Window{From: from, To: to}, nil
}

func resolveTenants(registry *repository.Registry, tenantID string) ([]*repository.TenantContext, error) {
	if tenantID != "" {
		tctx, err := registry.Context(tenantID)
		if err != nil {
			return nil, err
		}
		return []*repository.TenantContext{tctx}, nil
	}
	var out []*repository.TenantContext
	for _, id := range registry.TenantIDs() {
		tctx, err := registry.Context(id)
		if err != nil {
			return nil, err
		}
		out = append(out, tctx)
	}
	return out, nil
}

func forEach(ctx context.Context, tctxs []*repository.TenantContext, fn func(context.Context, *repository.TenantContext) (int, error)) error {
	for _, tctx := range tctxs {
		if _, err := fn(ctx, tctx); err != nil {
			return err
		}
	}
	return nil
}
