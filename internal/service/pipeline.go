package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mixshift/sqp-importer/internal/archive"
	"github.com/mixshift/sqp-importer/internal/domain"
	"github.com/mixshift/sqp-importer/internal/logger"
	"github.com/mixshift/sqp-importer/internal/notify"
	"github.com/mixshift/sqp-importer/internal/repository"
	"github.com/mixshift/sqp-importer/internal/resilience"
	"github.com/mixshift/sqp-importer/internal/spapi"
	"gorm.io/gorm"
)

// ErrFatalReport marks a report the external system resolved as FATAL or
// CANCELLED. The tuple is dead; no automatic retry will touch it again.
var ErrFatalReport = errors.New("report resolved fatal by reporting service")

// Activity log action names.
const (
	actionRequest  = "report.request"
	actionPoll     = "report.poll"
	actionDownload = "report.download"
	actionImport   = "report.import"
	actionDeferred = "pull.deferred"
)

// ReportsAPI is the slice of the reporting client the pipeline depends on.
type ReportsAPI interface {
	CreateReport(ctx context.Context, credentialKey string, req *spapi.ReportRequest) (string, error)
	GetReportStatus(ctx context.Context, credentialKey, reportID string) (*spapi.StatusResult, error)
	GetDocument(ctx context.Context, credentialKey, documentID string) (*spapi.DocumentMeta, error)
	FetchDocument(ctx context.Context, meta *spapi.DocumentMeta) ([]byte, error)
}

// PullUnit is one (seller, period type, date range) tuple to pull.
type PullUnit struct {
	Job    *domain.PullJob
	Seller *domain.Seller
	Type   domain.PeriodType
	Range  domain.Range
}

// PipelineConfig tunes the pull pipeline.
type PipelineConfig struct {
	MaxRetries        int
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
}

// Pipeline drives one pull unit through the four phases: request, poll,
// download, import. Every external call sequence runs under the circuit
// breaker and behind the seller's rate limit; every phase transition lands
// in the activity log before the pipeline moves on.
type Pipeline struct {
	api      ReportsAPI
	breaker  *resilience.CircuitBreaker
	limiter  *resilience.SellerRateLimiter
	retry    *resilience.Retryer
	recovery *resilience.Retryer
	notifier notify.Notifier
	store    archive.Store
	logger   *logger.Logger
	now      func() time.Time
}

// NewPipeline creates a pipeline with injected resilience primitives.
// store may be nil to skip artifact archival.
func NewPipeline(
	api ReportsAPI,
	breaker *resilience.CircuitBreaker,
	limiter *resilience.SellerRateLimiter,
	notifier notify.Notifier,
	store archive.Store,
	log *logger.Logger,
	cfg *PipelineConfig,
) *Pipeline {
	return &Pipeline{
		api:      api,
		breaker:  breaker,
		limiter:  limiter,
		retry:    resilience.NewRetryer(cfg.MaxRetries, cfg.InitialRetryDelay, cfg.MaxRetryDelay),
		recovery: resilience.NewRetryer(1, cfg.InitialRetryDelay, cfg.MaxRetryDelay),
		notifier: notifier,
		store:    store,
		logger:   log,
		now:      time.Now,
	}
}

func (p *Pipeline) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx)
}

// Run pulls one unit to completion under the bounded retry budget. The
// returned error reflects the terminal classification; the job state,
// activity log, and eligibility outcomes are already persisted when Run
// returns.
func (p *Pipeline) Run(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit) error {
	return p.execute(ctx, tctx, unit, p.retry)
}

// Recover re-drives a stuck unit through the pipeline starting at Poll.
// Request is not idempotent, so recovery never re-submits; a unit with no
// recorded report ID is deferred instead. Recovery retries at most once.
func (p *Pipeline) Recover(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit) error {
	entry, err := tctx.Activity.Get(ctx, unit.Job.ID, unit.Type, unit.Range.Key())
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if entry == nil || entry.ReportID == "" {
		p.markDeferred(ctx, tctx, unit, "stuck before request completed; awaiting next scheduling cycle")
		return nil
	}
	return p.execute(ctx, tctx, unit, p.recovery)
}

// execute wraps advance with the retry budget and terminal classification.
func (p *Pipeline) execute(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, retryer *resilience.Retryer) error {
	ctx = p.logger.WithFields(logger.Fields{
		logger.FieldJobID:      unit.Job.ID,
		logger.FieldSellerID:   unit.Seller.ID,
		logger.FieldPeriodType: unit.Type,
		logger.FieldRangeKey:   unit.Range.Key(),
	}).WithContext(ctx)

	if err := p.limiter.CheckLimit(unit.Seller.ID); err != nil {
		p.markDeferred(ctx, tctx, unit, "seller rate limit reached")
		return err
	}

	// Mark the attempt before any phase runs; should the process die
	// mid-unit the records still show a pull was started. finishUnit
	// overwrites this with the terminal outcome.
	if !unit.Job.IsHistorical {
		p.recordEligibility(ctx, tctx, unit, domain.PullPending, p.now())
	}

	retries := 0
	err := retryer.Do(ctx, func(ctx context.Context, attempt int) error {
		retries = attempt
		return p.advance(ctx, tctx, unit, attempt)
	}, func(attempt int, attemptErr error) {
		p.logAttempt(ctx, tctx, unit, attempt, attemptErr)
	})

	switch {
	case err == nil:
		p.finishUnit(ctx, tctx, unit, domain.PullSuccess, "")
		return nil

	case errors.Is(err, spapi.ErrAuthLost):
		// Configuration failure: skip the seller entirely, no retry slot
		// consumed and no notification.
		p.log(ctx).Warn("Seller authorization lost; skipping seller")
		if markErr := tctx.Sellers.MarkAuthLost(ctx, unit.Seller.ID); markErr != nil {
			p.log(ctx).WithError(markErr).Error("Failed to flag seller auth lost")
		}
		p.finishUnit(ctx, tctx, unit, domain.PullRetryable, err.Error())
		return err

	case errors.Is(err, ErrFatalReport):
		p.finishUnit(ctx, tctx, unit, domain.PullFatal, err.Error())
		p.notifyFailure(ctx, tctx, unit, err, retries, true)
		return err

	case errors.Is(err, resilience.ErrRetriesExhausted):
		p.finishUnit(ctx, tctx, unit, domain.PullRetryable, err.Error())
		p.notifyFailure(ctx, tctx, unit, err, retries, false)
		return err

	default:
		// Cancelled context or another non-classified failure: leave the
		// unit retryable for a later cycle without notification.
		p.finishUnit(ctx, tctx, unit, domain.PullRetryable, err.Error())
		return err
	}
}

// advance executes the remaining phases for the unit, resuming from the
// activity log. Completed phases are skipped by their recorded identifiers,
// which also makes recovery re-enter at Poll rather than Request.
func (p *Pipeline) advance(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, attempt int) error {
	entry, err := tctx.Activity.Get(ctx, unit.Job.ID, unit.Type, unit.Range.Key())
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		entry = nil
	}

	reportID := ""
	documentID := ""
	if entry != nil {
		reportID = entry.ReportID
		documentID = entry.DocumentID
	}

	// Phase 1: request.
	if reportID == "" {
		reportID, err = p.phaseRequest(ctx, tctx, unit, attempt)
		if err != nil {
			return err
		}
	}

	// Phase 2: poll.
	if documentID == "" {
		documentID, err = p.phasePoll(ctx, tctx, unit, reportID, attempt)
		if err != nil {
			return err
		}
	}

	// Phase 3: download.
	data, err := p.phaseDownload(ctx, tctx, unit, reportID, documentID, attempt)
	if err != nil {
		return err
	}

	// Phase 4: import.
	return p.phaseImport(ctx, tctx, unit, reportID, documentID, data, attempt)
}

func (p *Pipeline) phaseRequest(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, attempt int) (string, error) {
	p.setPhase(ctx, tctx, unit, domain.PhaseRequesting)

	var reportID string
	err := p.breaker.Execute(func() error {
		var callErr error
		reportID, callErr = p.api.CreateReport(ctx, unit.Seller.CredentialKey, &spapi.ReportRequest{
			ReportType:     spapi.ReportTypeSQP,
			MarketplaceIDs: []string{unit.Seller.MarketplaceID},
			DataStartTime:  unit.Range.Start,
			DataEndTime:    unit.Range.End,
			ReportOptions:  map[string]string{"reportPeriod": string(unit.Type)},
		})
		return callErr
	})
	if err != nil {
		if errors.Is(err, spapi.ErrAuthLost) {
			return "", resilience.Permanent(err)
		}
		return "", fmt.Errorf("request report: %w", err)
	}

	if err := p.writeEntry(ctx, tctx, unit, actionRequest, domain.LogPending, "report requested", reportID, "", attempt); err != nil {
		return "", err
	}
	p.log(ctx).WithField(logger.FieldReportID, reportID).Info("Report requested")
	return reportID, nil
}

func (p *Pipeline) phasePoll(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, reportID string, attempt int) (string, error) {
	p.setPhase(ctx, tctx, unit, domain.PhasePolling)

	var result *spapi.StatusResult
	err := p.breaker.Execute(func() error {
		var callErr error
		result, callErr = p.api.GetReportStatus(ctx, unit.Seller.CredentialKey, reportID)
		return callErr
	})
	if err != nil {
		if errors.Is(err, spapi.ErrAuthLost) {
			return "", resilience.Permanent(err)
		}
		return "", fmt.Errorf("poll report %s: %w", reportID, err)
	}

	switch result.Status {
	case spapi.StatusReady:
		if err := p.writeEntry(ctx, tctx, unit, actionPoll, domain.LogPending, "report ready", reportID, result.DocumentID, attempt); err != nil {
			return "", err
		}
		return result.DocumentID, nil

	case spapi.StatusQueued, spapi.StatusInProgress:
		// Not a failure: reschedule the poll with backoff. The retry
		// executor charges this against the unit's budget.
		return "", fmt.Errorf("report %s still %s: %w", reportID, result.Status, resilience.ErrNotReady)

	default: // FATAL, CANCELLED
		return "", resilience.Permanent(fmt.Errorf("%w: report %s status %s", ErrFatalReport, reportID, result.Status))
	}
}

func (p *Pipeline) phaseDownload(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, reportID, documentID string, attempt int) ([]byte, error) {
	p.setPhase(ctx, tctx, unit, domain.PhaseDownloading)

	rec := p.ensureDownloadRecord(ctx, tctx, unit, reportID, documentID)

	// Archived bytes satisfy a resumed import without touching the API.
	if data, ok := p.fromArchive(ctx, tctx, unit, rec, reportID); ok {
		return data, nil
	}

	rec.Status = domain.DownloadDownloading
	rec.DownloadAttempts++
	if err := tctx.Downloads.Update(ctx, rec); err != nil {
		return nil, err
	}

	var data []byte
	err := p.breaker.Execute(func() error {
		meta, callErr := p.api.GetDocument(ctx, unit.Seller.CredentialKey, documentID)
		if callErr != nil {
			return callErr
		}
		data, callErr = p.api.FetchDocument(ctx, meta)
		return callErr
	})
	if err != nil {
		rec.Status = domain.DownloadFailed
		rec.LastError = err.Error()
		if updErr := tctx.Downloads.Update(ctx, rec); updErr != nil {
			p.log(ctx).WithError(updErr).Error("Failed to persist download failure")
		}
		if errors.Is(err, spapi.ErrAuthLost) {
			return nil, resilience.Permanent(err)
		}
		return nil, fmt.Errorf("download document %s: %w", documentID, err)
	}

	rec.SizeBytes = int64(len(data))
	p.archiveArtifact(ctx, tctx, unit, rec, reportID, data)
	rec.Status = domain.DownloadCompleted
	if err := tctx.Downloads.Update(ctx, rec); err != nil {
		return nil, err
	}

	if err := p.writeEntry(ctx, tctx, unit, actionDownload, domain.LogPending, "document downloaded", reportID, documentID, attempt); err != nil {
		return nil, err
	}
	return data, nil
}

func (p *Pipeline) phaseImport(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, reportID, documentID string, data []byte, attempt int) error {
	p.setPhase(ctx, tctx, unit, domain.PhaseImporting)

	rec, err := tctx.Downloads.GetByReportID(ctx, reportID)
	if err != nil {
		return err
	}
	rec.ImportStatus = domain.ImportProcessing
	rec.ImportAttempts++
	if err := tctx.Downloads.Update(ctx, rec); err != nil {
		return err
	}

	records, err := spapi.ParseSQPReport(data)
	if err != nil {
		rec.ImportStatus = domain.ImportFailed
		rec.LastError = err.Error()
		if updErr := tctx.Downloads.Update(ctx, rec); updErr != nil {
			p.log(ctx).WithError(updErr).Error("Failed to persist import failure")
		}
		return fmt.Errorf("parse report %s: %w", reportID, err)
	}

	rows := p.toMetricRows(unit, reportID, records)

	// Delete-then-insert keyed by report ID: re-import never duplicates.
	if err := tctx.Metrics.ReplaceForReport(ctx, reportID, rows); err != nil {
		rec.ImportStatus = domain.ImportFailed
		rec.LastError = err.Error()
		if updErr := tctx.Downloads.Update(ctx, rec); updErr != nil {
			p.log(ctx).WithError(updErr).Error("Failed to persist import failure")
		}
		return fmt.Errorf("import report %s: %w", reportID, err)
	}

	rec.ImportStatus = domain.ImportSuccess
	rec.RowsImported = len(rows)
	if err := tctx.Downloads.Update(ctx, rec); err != nil {
		return err
	}

	// An empty report is a valid result: SUCCESS with zero imported rows.
	msg := fmt.Sprintf("imported %d rows", len(rows))
	if err := p.writeEntry(ctx, tctx, unit, actionImport, domain.LogSuccess, msg, reportID, documentID, attempt); err != nil {
		return err
	}
	p.log(ctx).WithFields(logger.Fields{
		logger.FieldReportID: reportID,
		logger.FieldCount:    len(rows),
	}).Info("Report imported")
	return nil
}

// toMetricRows maps parsed records onto metric rows, dropping rows with no
// measurable signal.
func (p *Pipeline) toMetricRows(unit *PullUnit, reportID string, records []spapi.SQPRecord) []domain.SQPMetric {
	rows := make([]domain.SQPMetric, 0, len(records))
	for _, rec := range records {
		row := domain.SQPMetric{
			SellerID:         unit.Seller.ID,
			ASIN:             rec.ASIN,
			SearchQuery:      rec.SearchQuery.Query,
			PeriodType:       unit.Type,
			RangeKey:         unit.Range.Key(),
			RangeStart:       unit.Range.Start,
			RangeEnd:         unit.Range.End,
			ReportID:         reportID,
			QueryVolume:      rec.SearchQuery.Vol,
			Impressions:      rec.Impressions.ASINCount,
			Clicks:           rec.Clicks.ASINCount,
			CartAdds:         rec.CartAdds.ASINCount,
			Purchases:        rec.Purchases.ASINCount,
			MedianClickPrice: rec.Clicks.MedianClickPrice,
		}
		if row.Impressions > 0 {
			row.ClickRate = float64(row.Clicks) / float64(row.Impressions)
		}
		if row.Clicks > 0 {
			row.CartAddRate = float64(row.CartAdds) / float64(row.Clicks)
			row.PurchaseRate = float64(row.Purchases) / float64(row.Clicks)
		}
		if !row.HasSignal() {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func (p *Pipeline) ensureDownloadRecord(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, reportID, documentID string) *domain.DownloadRecord {
	rec, err := tctx.Downloads.GetByReportID(ctx, reportID)
	if err == nil {
		rec.DocumentID = documentID
		return rec
	}
	rec = &domain.DownloadRecord{
		ID:         newID(),
		JobID:      unit.Job.ID,
		SellerID:   unit.Seller.ID,
		PeriodType: unit.Type,
		RangeKey:   unit.Range.Key(),
		ReportID:   reportID,
		DocumentID: documentID,
		Status:     domain.DownloadPending,
	}
	if err := tctx.Downloads.Upsert(ctx, rec); err != nil {
		p.log(ctx).WithError(err).Error("Failed to create download record")
	}
	return rec
}

func (p *Pipeline) fromArchive(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, rec *domain.DownloadRecord, reportID string) ([]byte, bool) {
	if p.store == nil || rec.Status != domain.DownloadCompleted {
		return nil, false
	}
	key := archive.ArtifactKey(tctx.TenantID, unit.Seller.ID, reportID)
	reader, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	defer reader.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

func (p *Pipeline) archiveArtifact(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, rec *domain.DownloadRecord, reportID string, data []byte) {
	if p.store == nil {
		return
	}
	key := archive.ArtifactKey(tctx.TenantID, unit.Seller.ID, reportID)
	path, err := p.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		p.log(ctx).WithError(err).Warn("Failed to archive report artifact")
		return
	}
	rec.ArtifactPath = path
}

// setPhase records the current phase on the job's period state. Phase is
// only meaningful while the pull status is non-terminal.
func (p *Pipeline) setPhase(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, phase domain.PhaseStatus) {
	st := unit.Job.State(unit.Type)
	if st.PullStatus.Terminal() {
		return
	}
	st.PhaseStatus = phase
	if st.StartedAt == nil {
		now := p.now()
		st.StartedAt = &now
	}
	if err := tctx.Jobs.Update(ctx, unit.Job); err != nil {
		p.log(ctx).WithError(err).Error("Failed to persist phase transition")
	}
}

// writeEntry upserts the activity log entry for the unit. This write must
// land before the phase is considered complete.
func (p *Pipeline) writeEntry(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, action string, status domain.LogStatus, message, reportID, documentID string, retryCount int) error {
	st := unit.Job.State(unit.Type)
	if reportID != "" {
		st.ReportID = reportID
	}
	if documentID != "" {
		st.DocumentID = documentID
	}
	return tctx.Activity.Upsert(ctx, &domain.ActivityLogEntry{
		JobID:      unit.Job.ID,
		PeriodType: unit.Type,
		RangeKey:   unit.Range.Key(),
		Action:     action,
		Status:     status,
		Message:    message,
		ReportID:   reportID,
		DocumentID: documentID,
		RetryCount: retryCount,
		RangeStart: unit.Range.Start,
		RangeEnd:   unit.Range.End,
	})
}

// logAttempt records a failed attempt in the activity log before backoff.
func (p *Pipeline) logAttempt(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, attempt int, attemptErr error) {
	st := unit.Job.State(unit.Type)
	status := domain.LogRetryable
	if resilience.IsPermanent(attemptErr) || errors.Is(attemptErr, ErrFatalReport) {
		status = domain.LogFatal
	}
	entry := &domain.ActivityLogEntry{
		JobID:      unit.Job.ID,
		PeriodType: unit.Type,
		RangeKey:   unit.Range.Key(),
		Action:     "pull.attempt",
		Status:     status,
		Message:    attemptErr.Error(),
		ReportID:   st.ReportID,
		DocumentID: st.DocumentID,
		RetryCount: attempt,
		RangeStart: unit.Range.Start,
		RangeEnd:   unit.Range.End,
	}
	if err := tctx.Activity.Upsert(ctx, entry); err != nil {
		p.log(ctx).WithError(err).Error("Failed to record attempt")
	}
	p.log(ctx).WithError(attemptErr).WithField(logger.FieldRetryCount, attempt).Warn("Pull attempt failed")
}

// finishUnit writes the terminal (or deferred) pull status for the unit,
// the matching log entry, and the eligibility outcomes for its ASINs.
func (p *Pipeline) finishUnit(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, status domain.PullStatus, errMsg string) {
	now := p.now()
	st := unit.Job.State(unit.Type)
	st.PullStatus = status
	st.LastError = errMsg
	if status.Terminal() {
		st.CompletedAt = &now
	}
	if err := tctx.Jobs.Update(ctx, unit.Job); err != nil {
		p.log(ctx).WithError(err).Error("Failed to persist unit completion")
	}

	logStatus := domain.LogSuccess
	switch status {
	case domain.PullFatal:
		logStatus = domain.LogFatal
	case domain.PullRetryable:
		logStatus = domain.LogRetryable
	case domain.PullPending:
		logStatus = domain.LogPending
	}
	if status != domain.PullSuccess {
		// Success already wrote its import entry; overwrite only on failure.
		entry := &domain.ActivityLogEntry{
			JobID:      unit.Job.ID,
			PeriodType: unit.Type,
			RangeKey:   unit.Range.Key(),
			Action:     "pull.finish",
			Status:     logStatus,
			Message:    errMsg,
			ReportID:   st.ReportID,
			DocumentID: st.DocumentID,
			RangeStart: unit.Range.Start,
			RangeEnd:   unit.Range.End,
		}
		if err := tctx.Activity.Upsert(ctx, entry); err != nil {
			p.log(ctx).WithError(err).Error("Failed to record unit completion")
		}
	}

	if !unit.Job.IsHistorical {
		p.recordEligibility(ctx, tctx, unit, status, now)
	}
}

// markDeferred records a deferral (rate limit, missing report ID) without
// charging the unit's retry budget.
func (p *Pipeline) markDeferred(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, message string) {
	st := unit.Job.State(unit.Type)
	entry := &domain.ActivityLogEntry{
		JobID:      unit.Job.ID,
		PeriodType: unit.Type,
		RangeKey:   unit.Range.Key(),
		Action:     actionDeferred,
		Status:     domain.LogRetryable,
		Message:    message,
		ReportID:   st.ReportID,
		DocumentID: st.DocumentID,
		RangeStart: unit.Range.Start,
		RangeEnd:   unit.Range.End,
	}
	if err := tctx.Activity.Upsert(ctx, entry); err != nil {
		p.log(ctx).WithError(err).Error("Failed to record deferral")
	}
	st.PullStatus = domain.PullRetryable
	st.LastError = message
	if err := tctx.Jobs.Update(ctx, unit.Job); err != nil {
		p.log(ctx).WithError(err).Error("Failed to persist deferral")
	}
}

// recordEligibility writes the unit outcome onto every eligibility record
// covered by the job's identifier set.
func (p *Pipeline) recordEligibility(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, status domain.PullStatus, at time.Time) {
	recs, err := tctx.Eligibility.ListBySeller(ctx, unit.Seller.ID)
	if err != nil {
		p.log(ctx).WithError(err).Error("Failed to load eligibility records")
		return
	}
	covered := make(map[string]bool, len(unit.Job.ASINs))
	for _, asin := range unit.Job.ASINs {
		covered[asin] = true
	}
	for i := range recs {
		rec := &recs[i]
		if !covered[rec.ASIN] {
			continue
		}
		if rec.Outcomes == nil {
			rec.Outcomes = domain.PeriodOutcomeMap{}
		}
		attempted := at
		rec.Outcomes[unit.Type] = &domain.PeriodOutcome{
			Status:      status,
			AttemptedAt: &attempted,
			RangeKey:    unit.Range.Key(),
		}
		if err := tctx.Eligibility.Update(ctx, rec); err != nil {
			p.log(ctx).WithError(err).Error("Failed to update eligibility record")
		}
	}
}

func (p *Pipeline) notifyFailure(ctx context.Context, tctx *repository.TenantContext, unit *PullUnit, err error, retries int, fatal bool) {
	p.notifier.SendFailure(ctx, notify.FailureNotification{
		TenantID:   tctx.TenantID,
		JobID:      unit.Job.ID,
		SellerID:   unit.Seller.ID,
		PeriodType: unit.Type,
		RangeKey:   unit.Range.Key(),
		Error:      err.Error(),
		RetryCount: retries,
		Fatal:      fatal,
	})
}
