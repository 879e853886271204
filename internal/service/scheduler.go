package service

import (
	"context"
	"time"

	"github.com/mixshift/sqp-importer/internal/domain"
	"github.com/mixshift/sqp-importer/internal/logger"
	"github.com/mixshift/sqp-importer/internal/repository"
	"github.com/mixshift/sqp-importer/internal/resilience"
)

// SchedulerConfig tunes the scheduling loop.
type SchedulerConfig struct {
	// RetryCooldown is how long a non-successful period type waits before
	// it becomes due again.
	RetryCooldown time.Duration
	// ActiveJobWindow is how recent an in-progress job must be to count as
	// live work that blocks a new run.
	ActiveJobWindow time.Duration
}

// Scheduler drives one pull cycle per invocation: pick a tenant, pick the
// single seller most in need of a pull, and run the pipeline for every
// period type that is due. Processing exactly one seller per run bounds
// run duration and spreads retries across invocations.
type Scheduler struct {
	registry *repository.Registry
	pipeline *Pipeline
	memGate  *resilience.MemoryGate
	cfg      SchedulerConfig
	logger   *logger.Logger
	now      func() time.Time
}

// NewScheduler creates a scheduler over the tenant registry.
func NewScheduler(registry *repository.Registry, pipeline *Pipeline, memGate *resilience.MemoryGate, cfg SchedulerConfig, log *logger.Logger) *Scheduler {
	if cfg.ActiveJobWindow <= 0 {
		cfg.ActiveJobWindow = 30 * time.Minute
	}
	return &Scheduler{
		registry: registry,
		pipeline: pipeline,
		memGate:  memGate,
		cfg:      cfg,
		logger:   log,
		now:      time.Now,
	}
}

// RunOnce executes one scheduling cycle and returns the job it created, or
// nil when nothing was due.
func (s *Scheduler) RunOnce(ctx context.Context) (*domain.PullJob, error) {
	tctx, err := s.registry.Next()
	if err != nil {
		return nil, err
	}
	return s.RunTenant(ctx, tctx)
}

// RunTenant executes one scheduling cycle against a specific tenant. The
// memory gate sits here so every entry point, rotation or tenant-directed,
// is admission checked before new work starts.
func (s *Scheduler) RunTenant(ctx context.Context, tctx *repository.TenantContext) (*domain.PullJob, error) {
	if s.memGate != nil && !s.memGate.Allow() {
		s.logger.Warn("Heap usage above ceiling; skipping this cycle")
		return nil, nil
	}

	now := s.now()
	log := s.logger.WithField(logger.FieldTenantID, tctx.TenantID)
	ctx = log.WithContext(ctx)

	active, err := tctx.Jobs.HasActiveJob(ctx, now.Add(-s.cfg.ActiveJobWindow))
	if err != nil {
		return nil, err
	}
	if active {
		log.Info("Tenant has a live job; nothing scheduled")
		return nil, nil
	}

	seller, dueTypes, asins, err := s.selectSeller(ctx, tctx, now)
	if err != nil {
		return nil, err
	}
	if seller == nil {
		log.Info("No seller due for a pull")
		return nil, nil
	}

	job := &domain.PullJob{
		ID:            newID(),
		SellerID:      seller.ID,
		CredentialKey: seller.CredentialKey,
		MarketplaceID: seller.MarketplaceID,
		ASINs:         asins,
		OverallStatus: domain.AggregateInProgress,
		PeriodStates:  domain.PeriodStateMap{},
		StartedAt:     &now,
	}
	for _, pt := range dueTypes {
		job.PeriodStates[pt] = &domain.PeriodState{PullStatus: domain.PullPending}
	}
	if err := tctx.Jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	log.WithFields(logger.Fields{
		logger.FieldJobID:    job.ID,
		logger.FieldSellerID: seller.ID,
		logger.FieldCount:    len(dueTypes),
	}).Info("Pull job created")

	for _, pt := range dueTypes {
		unit := &PullUnit{
			Job:    job,
			Seller: seller,
			Type:   pt,
			Range:  domain.LastCompleteRange(pt, now),
		}
		// Unit errors are already classified and persisted by the
		// pipeline; the cycle continues with the remaining types.
		if err := s.pipeline.Run(ctx, tctx, unit); err != nil {
			log.WithError(err).WithField(logger.FieldPeriodType, pt).Warn("Pull unit did not complete")
		}
	}

	if _, err := ResolveJobStatus(ctx, tctx, job, s.now()); err != nil {
		return job, err
	}
	return job, nil
}

// selectSeller finds the first active seller with at least one period type
// due, returning the due types and the covered identifier set. Eligibility
// is per (seller, ASIN); a type is due for the seller when any of its ASINs
// is due.
func (s *Scheduler) selectSeller(ctx context.Context, tctx *repository.TenantContext, now time.Time) (*domain.Seller, []domain.PeriodType, domain.StringArray, error) {
	sellers, err := tctx.Sellers.ListActive(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	for i := range sellers {
		seller := &sellers[i]
		recs, err := tctx.Eligibility.ListBySeller(ctx, seller.ID)
		if err != nil {
			return nil, nil, nil, err
		}
		if len(recs) == 0 {
			continue
		}

		var dueTypes []domain.PeriodType
		asinSet := make(map[string]bool)
		for _, pt := range domain.AllPeriodTypes {
			due := false
			for j := range recs {
				if recs[j].DueFor(pt, s.cfg.RetryCooldown, now) {
					due = true
					asinSet[recs[j].ASIN] = true
				}
			}
			if due {
				dueTypes = append(dueTypes, pt)
			}
		}
		if len(dueTypes) == 0 {
			continue
		}

		asins := make(domain.StringArray, 0, len(asinSet))
		for j := range recs {
			if asinSet[recs[j].ASIN] {
				asins = append(asins, recs[j].ASIN)
			}
		}
		return seller, dueTypes, asins, nil
	}
	return nil, nil, nil, nil
}

// ResetEligibility clears recorded outcomes for every period type whose
// calendar period has rolled over since the outcome was written. Safe to
// invoke repeatedly; outcomes from the current period are left alone.
func (s *Scheduler) ResetEligibility(ctx context.Context, tctx *repository.TenantContext) (int64, error) {
	now := s.now()
	var total int64
	for _, pt := range domain.AllPeriodTypes {
		n, err := tctx.Eligibility.ResetOutcomes(ctx, pt, domain.CurrentPeriodStart(pt, now))
		if err != nil {
			return total, err
		}
		total += n
	}
	if total > 0 {
		s.logger.WithFields(logger.Fields{
			logger.FieldTenantID: tctx.TenantID,
			logger.FieldCount:    total,
		}).Info("Eligibility outcomes reset for new period")
	}
	return total, nil
}
