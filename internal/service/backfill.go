package service

import (
	"context"
	"time"

	"github.com/mixshift/sqp-importer/internal/domain"
	"github.com/mixshift/sqp-importer/internal/logger"
	"github.com/mixshift/sqp-importer/internal/repository"
)

// Window is an explicit coverage window. A non-nil window passed to a
// backfill run overrides every configured one.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether the range lies entirely inside the window.
func (w Window) Contains(r domain.Range) bool {
	return !r.Start.Before(w.From) && !r.End.After(w.To)
}

// Backfill fills historical coverage gaps: it computes which periods of the
// desired coverage window are not yet represented in the metrics store and
// pulls only those. The window for each identifier resolves in order:
// explicit dates passed to the run, the identifier's own configured window,
// the seller's window. An identifier resolving no window is excluded.
type Backfill struct {
	pipeline *Pipeline
	logger   *logger.Logger
	now      func() time.Time
}

// NewBackfill creates a backfill resolver over pipeline.
func NewBackfill(pipeline *Pipeline, log *logger.Logger) *Backfill {
	return &Backfill{pipeline: pipeline, logger: log, now: time.Now}
}

// MissingRanges returns the grid of complete periods of type pt inside
// [from, to] whose canonical range key is absent from existing.
func MissingRanges(pt domain.PeriodType, from, to, now time.Time, existing map[string]bool) []domain.Range {
	grid := domain.RangesBetween(pt, from, to, now)
	missing := make([]domain.Range, 0, len(grid))
	for _, r := range grid {
		if existing[r.Key()] {
			continue
		}
		missing = append(missing, r)
	}
	return missing
}

// windowFor resolves the effective coverage window for one identifier:
// the explicit override when given, else the identifier's own window, else
// the seller's. An open end defaults to now.
func windowFor(seller *domain.Seller, rec *domain.EligibilityRecord, override *Window, now time.Time) (Window, bool) {
	if override != nil {
		return *override, true
	}
	if rec.BackfillStart != nil {
		w := Window{From: *rec.BackfillStart, To: now}
		if rec.BackfillEnd != nil {
			w.To = *rec.BackfillEnd
		}
		return w, true
	}
	if seller.BackfillStart != nil {
		w := Window{From: *seller.BackfillStart, To: now}
		if seller.BackfillEnd != nil {
			w.To = *seller.BackfillEnd
		}
		return w, true
	}
	return Window{}, false
}

// RunSeller backfills one seller's coverage windows. A seller resolving no
// window for any identifier, without identifiers, or without missing ranges
// is skipped before any external call. Returns the historical job created,
// or nil when nothing was missing.
func (b *Backfill) RunSeller(ctx context.Context, tctx *repository.TenantContext, seller *domain.Seller, override *Window) (*domain.PullJob, error) {
	log := b.logger.WithFields(logger.Fields{
		logger.FieldTenantID: tctx.TenantID,
		logger.FieldSellerID: seller.ID,
	})
	ctx = log.WithContext(ctx)

	recs, err := tctx.Eligibility.ListBySeller(ctx, seller.ID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		log.Debug("Seller has no identifiers; skipping backfill")
		return nil, nil
	}

	now := b.now()
	var windows []Window
	asins := make(domain.StringArray, 0, len(recs))
	for i := range recs {
		w, ok := windowFor(seller, &recs[i], override, now)
		if !ok {
			continue
		}
		windows = append(windows, w)
		asins = append(asins, recs[i].ASIN)
	}
	if len(windows) == 0 {
		log.Debug("No coverage window configured; skipping backfill")
		return nil, nil
	}

	// The grid spans the union of the resolved windows; a range counts only
	// when at least one window fully covers it.
	from, to := windows[0].From, windows[0].To
	for _, w := range windows[1:] {
		if w.From.Before(from) {
			from = w.From
		}
		if w.To.After(to) {
			to = w.To
		}
	}

	missing := make(map[domain.PeriodType][]domain.Range, len(domain.AllPeriodTypes))
	total := 0
	for _, pt := range domain.AllPeriodTypes {
		existing, err := tctx.Metrics.ExistingRangeKeys(ctx, seller.ID, pt)
		if err != nil {
			return nil, err
		}
		var ranges []domain.Range
		for _, r := range MissingRanges(pt, from, to, now, existing) {
			for _, w := range windows {
				if w.Contains(r) {
					ranges = append(ranges, r)
					break
				}
			}
		}
		if len(ranges) > 0 {
			missing[pt] = ranges
			total += len(ranges)
		}
	}
	if total == 0 {
		log.Info("Coverage window already complete; skipping backfill")
		return nil, nil
	}

	job := &domain.PullJob{
		ID:            newID(),
		SellerID:      seller.ID,
		CredentialKey: seller.CredentialKey,
		MarketplaceID: seller.MarketplaceID,
		ASINs:         asins,
		IsHistorical:  true,
		OverallStatus: domain.AggregateInProgress,
		PeriodStates:  domain.PeriodStateMap{},
		StartedAt:     &now,
	}
	for pt := range missing {
		job.PeriodStates[pt] = &domain.PeriodState{PullStatus: domain.PullPending}
	}
	if err := tctx.Jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	log.WithFields(logger.Fields{
		logger.FieldJobID: job.ID,
		logger.FieldCount: total,
	}).Info("Backfill job created")

	for _, pt := range domain.AllPeriodTypes {
		for _, r := range missing[pt] {
			unit := &PullUnit{Job: job, Seller: seller, Type: pt, Range: r}
			if err := b.pipeline.Run(ctx, tctx, unit); err != nil {
				log.WithError(err).WithFields(logger.Fields{
					logger.FieldPeriodType: pt,
					logger.FieldRangeKey:   r.Key(),
				}).Warn("Backfill range did not complete")
			}
		}
	}

	if _, err := ResolveJobStatus(ctx, tctx, job, b.now()); err != nil {
		return job, err
	}
	return job, nil
}

// Run backfills every active seller of the tenant in turn. A non-nil
// override window applies to every seller.
func (b *Backfill) Run(ctx context.Context, tctx *repository.TenantContext, override *Window) (int, error) {
	sellers, err := tctx.Sellers.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	jobs := 0
	for i := range sellers {
		job, err := b.RunSeller(ctx, tctx, &sellers[i], override)
		if err != nil {
			b.logger.WithError(err).WithField(logger.FieldSellerID, sellers[i].ID).Error("Backfill failed for seller")
			continue
		}
		if job != nil {
			jobs++
		}
	}
	return jobs, nil
}
