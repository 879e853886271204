package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mixshift/sqp-importer/internal/logger"
	"github.com/mixshift/sqp-importer/internal/repository"
	"github.com/mixshift/sqp-importer/internal/service"
)

// CronHandler exposes the trigger surface of the engine. Each endpoint runs
// one operation to completion; a second invocation while the same operation
// is still running is answered with 409 instead of stacking work.
type CronHandler struct {
	registry  *repository.Registry
	scheduler *service.Scheduler
	detector  *service.StuckDetector
	backfill  *service.Backfill
	logger    *logger.Logger

	mu      sync.Mutex
	running map[string]bool
	lastRun map[string]time.Time
}

// NewCronHandler creates a new cron trigger handler.
// Parameters:
//   - registry: tenant registry for context resolution.
//   - scheduler: scheduling loop.
//   - detector: stuck-job detector.
//   - backfill: historical gap resolver.
//   - log: logger instance.
// Returns:
//   - *CronHandler: initialized handler.
func NewCronHandler(
	registry *repository.Registry,
	scheduler *service.Scheduler,
	detector *service.StuckDetector,
	backfill *service.Backfill,
	log *logger.Logger,
) *CronHandler {
	return &CronHandler{
		registry:  registry,
		scheduler: scheduler,
		detector:  detector,
		backfill:  backfill,
		logger:    log,
		running:   make(map[string]bool),
		lastRun:   make(map[string]time.Time),
	}
}

// acquire marks the operation running, or reports that it already is.
func (h *CronHandler) acquire(op string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running[op] {
		return false
	}
	h.running[op] = true
	return true
}

func (h *CronHandler) release(op string) {
	h.mu.Lock()
	h.running[op] = false
	h.lastRun[op] = time.Now()
	h.mu.Unlock()
}

// tenantContexts resolves the tenants an operation applies to: the one
// named by the "tenant" query parameter, or all configured tenants.
func (h *CronHandler) tenantContexts(c *gin.Context) ([]*repository.TenantContext, error) {
	if id := c.Query("tenant"); id != "" {
		tctx, err := h.registry.Context(id)
		if err != nil {
			return nil, err
		}
		return []*repository.TenantContext{tctx}, nil
	}
	var out []*repository.TenantContext
	for _, id := range h.registry.TenantIDs() {
		tctx, err := h.registry.Context(id)
		if err != nil {
			return nil, err
		}
		out = append(out, tctx)
	}
	return out, nil
}

// Pull runs one scheduling cycle. Without a tenant parameter the registry
// rotation picks the next tenant; with one, that tenant is scheduled.
func (h *CronHandler) Pull(c *gin.Context) {
	if !h.acquire("pull") {
		c.JSON(http.StatusConflict, gin.H{"error": "pull cycle already running"})
		return
	}
	defer h.release("pull")

	ctx := c.Request.Context()
	var (
		job interface{}
		err error
	)
	if id := c.Query("tenant"); id != "" {
		var tctx *repository.TenantContext
		tctx, err = h.registry.Context(id)
		if err == nil {
			job, err = h.scheduler.RunTenant(ctx, tctx)
		}
	} else {
		job, err = h.scheduler.RunOnce(ctx)
	}
	if err != nil {
		h.logger.WithError(err).Error("Pull cycle failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "pull cycle complete", "job": job})
}

// CheckStatus advances every pending report across the resolved tenants.
func (h *CronHandler) CheckStatus(c *gin.Context) {
	h.runPerTenant(c, "check-status", func(ctx context.Context, tctx *repository.TenantContext) (int, error) {
		return h.detector.CheckPending(ctx, tctx)
	})
}

// RetryStuck scans for stale jobs and re-drives their stuck units.
func (h *CronHandler) RetryStuck(c *gin.Context) {
	h.runPerTenant(c, "retry-stuck", func(ctx context.Context, tctx *repository.TenantContext) (int, error) {
		return h.detector.Scan(ctx, tctx)
	})
}

// Backfill fills historical coverage gaps for the resolved tenants. The
// optional "from" and "to" query parameters (YYYY-MM-DD) override every
// configured coverage window.
func (h *CronHandler) Backfill(c *gin.Context) {
	override, err := parseWindow(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.runPerTenant(c, "backfill", func(ctx context.Context, tctx *repository.TenantContext) (int, error) {
		return h.backfill.Run(ctx, tctx, override)
	})
}

// parseWindow reads the explicit coverage window off the request, or nil
// when neither bound is given. "to" defaults to now.
func parseWindow(c *gin.Context) (*service.Window, error) {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" && toStr == "" {
		return nil, nil
	}
	if fromStr == "" {
		return nil, fmt.Errorf("from is required when to is given")
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return nil, fmt.Errorf("invalid from date %q: expected YYYY-MM-DD", fromStr)
	}
	to := time.Now().UTC()
	if toStr != "" {
		if to, err = time.Parse("2006-01-02", toStr); err != nil {
			return nil, fmt.Errorf("invalid to date %q: expected YYYY-MM-DD", toStr)
		}
	}
	if to.Before(from) {
		return nil, fmt.Errorf("to %s precedes from %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	return &service.Window{From: from, To: to}, nil
}

// ResetEligibility clears stale eligibility outcomes for a new period.
func (h *CronHandler) ResetEligibility(c *gin.Context) {
	h.runPerTenant(c, "reset-eligibility", func(ctx context.Context, tctx *repository.TenantContext) (int, error) {
		n, err := h.scheduler.ResetEligibility(ctx, tctx)
		return int(n), err
	})
}

// Status reports which operations are running and when each last finished.
func (h *CronHandler) Status(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	last := make(map[string]string, len(h.lastRun))
	for op, t := range h.lastRun {
		last[op] = t.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, gin.H{
		"running":  h.running,
		"last_run": last,
	})
}

func (h *CronHandler) runPerTenant(c *gin.Context, op string, fn func(context.Context, *repository.TenantContext) (int, error)) {
	if !h.acquire(op) {
		c.JSON(http.StatusConflict, gin.H{"error": op + " already running"})
		return
	}
	defer h.release(op)

	tctxs, err := h.tenantContexts(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	results := make(map[string]int, len(tctxs))
	for _, tctx := range tctxs {
		n, err := fn(ctx, tctx)
		if err != nil {
			h.logger.WithError(err).WithField(logger.FieldTenantID, tctx.TenantID).Error("Cron operation failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":  err.Error(),
				"tenant": tctx.TenantID,
			})
			return
		}
		results[tctx.TenantID] = n
	}
	c.JSON(http.StatusOK, gin.H{"message": op + " complete", "processed": results})
}
