// Package app wires the pull engine from configuration. Both the API server
// and the CLI runner build the same engine through it.
package app

import (
	"fmt"

	"github.com/mixshift/sqp-importer/internal/archive"
	"github.com/mixshift/sqp-importer/internal/config"
	"github.com/mixshift/sqp-importer/internal/logger"
	"github.com/mixshift/sqp-importer/internal/notify"
	"github.com/mixshift/sqp-importer/internal/repository"
	"github.com/mixshift/sqp-importer/internal/resilience"
	"github.com/mixshift/sqp-importer/internal/service"
	"github.com/mixshift/sqp-importer/internal/spapi"
)

// BuildEngine constructs the scheduler, stuck detector, and backfill
// resolver over a fully wired pipeline.
func BuildEngine(cfg *config.Config, registry *repository.Registry, log *logger.Logger) (*service.Scheduler, *service.StuckDetector, *service.Backfill, error) {
	tokens := spapi.NewLWATokenProvider(&spapi.LWAConfig{
		Endpoint:     cfg.SPAPI.LWAEndpoint,
		ClientID:     cfg.SPAPI.ClientID,
		ClientSecret: cfg.SPAPI.ClientSecret,
		Timeout:      cfg.SPAPI.Timeout,
	}, func(credentialKey string) (string, error) {
		token, ok := cfg.SPAPI.RefreshTokens[credentialKey]
		if !ok {
			return "", fmt.Errorf("no refresh token configured for %q", credentialKey)
		}
		return token, nil
	})

	client := spapi.NewClient(&spapi.ClientConfig{
		Endpoint: cfg.SPAPI.Endpoint,
		Timeout:  cfg.SPAPI.Timeout,
	}, tokens)

	store, err := archive.NewStore(&cfg.Archive)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initialize archive store: %w", err)
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout, log)
	}

	breaker := resilience.NewCircuitBreaker(cfg.Pull.BreakerThreshold, cfg.Pull.BreakerTimeout)
	limiter := resilience.NewSellerRateLimiter(cfg.Pull.RateLimitMax, cfg.Pull.RateLimitWindow)
	memGate := resilience.NewMemoryGate(uint64(cfg.Pull.MaxHeapMB) * 1024 * 1024)

	pipeline := service.NewPipeline(client, breaker, limiter, notifier, store, log, &service.PipelineConfig{
		MaxRetries:        cfg.Pull.MaxRetries,
		InitialRetryDelay: cfg.Pull.InitialRetryDelay,
		MaxRetryDelay:     cfg.Pull.MaxRetryDelay,
	})

	scheduler := service.NewScheduler(registry, pipeline, memGate, service.SchedulerConfig{
		RetryCooldown: cfg.Pull.RetryCooldown,
	}, log)
	detector := service.NewStuckDetector(pipeline, service.StuckConfig{
		GraceWindow: cfg.Pull.StuckGraceWindow,
	}, log)
	backfill := service.NewBackfill(pipeline, log)

	return scheduler, detector, backfill, nil
}
