package service

import (
	"context"
	"time"

	"github.com/mixshift/sqp-importer/internal/domain"
	"github.com/mixshift/sqp-importer/internal/logger"
	"github.com/mixshift/sqp-importer/internal/repository"
)

// StuckConfig tunes the stuck-job detector.
type StuckConfig struct {
	// GraceWindow is how long a per-type state may sit without advancing
	// before it counts as stuck.
	GraceWindow time.Duration
}

// StuckDetector scans a tenant for jobs whose per-type state stopped
// advancing and re-drives them through the pipeline. Recovery re-enters at
// Poll, never Request, and is attempted at most once per pass; see
// Pipeline.Recover.
type StuckDetector struct {
	pipeline *Pipeline
	cfg      StuckConfig
	logger   *logger.Logger
	now      func() time.Time
}

// NewStuckDetector creates a detector re-driving stuck work through pipeline.
func NewStuckDetector(pipeline *Pipeline, cfg StuckConfig, log *logger.Logger) *StuckDetector {
	return &StuckDetector{
		pipeline: pipeline,
		cfg:      cfg,
		logger:   log,
		now:      time.Now,
	}
}

// Scan finds stale jobs for the tenant and recovers each stuck (job, type)
// pair. Returns the number of pairs recovery was attempted for.
func (d *StuckDetector) Scan(ctx context.Context, tctx *repository.TenantContext) (int, error) {
	return d.scan(ctx, tctx, d.now().Add(-d.cfg.GraceWindow))
}

// CheckPending re-drives every in-progress unit of the tenant regardless of
// staleness. Used by the status-check trigger to advance jobs whose reports
// were still queued on the previous cycle.
func (d *StuckDetector) CheckPending(ctx context.Context, tctx *repository.TenantContext) (int, error) {
	return d.scan(ctx, tctx, d.now())
}

func (d *StuckDetector) scan(ctx context.Context, tctx *repository.TenantContext, cutoff time.Time) (int, error) {
	log := d.logger.WithField(logger.FieldTenantID, tctx.TenantID)
	ctx = log.WithContext(ctx)

	jobs, err := tctx.Jobs.ListStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for i := range jobs {
		job := &jobs[i]
		seller, err := tctx.Sellers.GetByID(ctx, job.SellerID)
		if err != nil {
			log.WithError(err).WithField(logger.FieldJobID, job.ID).Warn("Stale job references unknown seller")
			continue
		}
		if seller.AuthLost {
			continue
		}

		n, err := d.recoverJob(ctx, tctx, job, seller, cutoff)
		if err != nil {
			log.WithError(err).WithField(logger.FieldJobID, job.ID).Error("Recovery pass failed")
			continue
		}
		recovered += n

		if _, err := ResolveJobStatus(ctx, tctx, job, d.now()); err != nil {
			log.WithError(err).WithField(logger.FieldJobID, job.ID).Error("Failed to re-resolve job status")
		}
	}
	return recovered, nil
}

// recoverJob re-drives every stuck period type of one job.
func (d *StuckDetector) recoverJob(ctx context.Context, tctx *repository.TenantContext, job *domain.PullJob, seller *domain.Seller, cutoff time.Time) (int, error) {
	entries, err := tctx.Activity.ListByJob(ctx, job.ID)
	if err != nil {
		return 0, err
	}

	// Index the newest in-progress entry per (type, range) so historical
	// jobs recover each stuck range, not just one per type.
	type unitKey struct {
		pt  domain.PeriodType
		key string
	}
	stuck := make(map[unitKey]*domain.ActivityLogEntry)
	for i := range entries {
		e := &entries[i]
		if !e.InProgress() {
			continue
		}
		if !e.UpdatedAt.Before(cutoff) && (job.StartedAt == nil || !e.UpdatedAt.Before(*job.StartedAt)) {
			continue
		}
		stuck[unitKey{e.PeriodType, e.RangeKey}] = e
	}

	recovered := 0
	for k, entry := range stuck {
		// The period state caches only the latest range, so for historical
		// jobs the entry's own status decides; a fatal outcome on one range
		// must not freeze the others.
		st := job.State(k.pt)
		if st.PullStatus.Terminal() && !job.IsHistorical {
			continue
		}
		unit := &PullUnit{
			Job:    job,
			Seller: seller,
			Type:   k.pt,
			Range: domain.Range{
				Type:  k.pt,
				Start: entry.RangeStart,
				End:   entry.RangeEnd,
			},
		}
		d.logger.WithFields(logger.Fields{
			logger.FieldJobID:      job.ID,
			logger.FieldPeriodType: k.pt,
			logger.FieldRangeKey:   k.key,
		}).Info("Recovering stuck pull unit")
		if err := d.pipeline.Recover(ctx, tctx, unit); err != nil {
			d.logger.WithError(err).WithFields(logger.Fields{
				logger.FieldJobID:      job.ID,
				logger.FieldPeriodType: k.pt,
			}).Warn("Stuck unit did not recover")
		}
		recovered++
	}
	return recovered, nil
}
