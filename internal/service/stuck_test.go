package service

import (
	"context"
	"testing"
	"time"

	"github.com/mixshift/sqp-importer/internal/domain"
	"github.com/mixshift/sqp-importer/internal/logger"
	"github.com/mixshift/sqp-importer/internal/repository"
	"github.com/mixshift/sqp-importer/internal/spapi"
)

// seedStuckJob creates a job whose weekly pull requested a report two hours
// ago and never advanced past the request phase.
func seedStuckJob(t *testing.T, tctx *repository.TenantContext, now time.Time, reportID string) *domain.PullJob {
	t.Helper()
	ctx := context.Background()

	seller := &domain.Seller{
		ID:            "seller-1",
		MarketplaceID: "ATVPDKIKX0DER",
		CredentialKey: "cred-1",
	}
	if err := tctx.Sellers.Update(ctx, seller); err != nil {
		t.Fatalf("seed seller: %v", err)
	}

	started := now.Add(-2 * time.Hour)
	rng := domain.LastCompleteRange(domain.PeriodWeek, now)
	job := &domain.PullJob{
		ID:            "job-stuck",
		SellerID:      seller.ID,
		CredentialKey: seller.CredentialKey,
		MarketplaceID: seller.MarketplaceID,
		ASINs:         domain.StringArray{"B000TEST01"},
		OverallStatus: domain.AggregateInProgress,
		PeriodStates: domain.PeriodStateMap{
			domain.PeriodWeek: {
				PullStatus:  domain.PullPending,
				PhaseStatus: domain.PhasePolling,
				ReportID:    reportID,
				StartedAt:   &started,
			},
		},
		StartedAt: &started,
	}
	if err := tctx.Jobs.Create(ctx, job); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	entry := &domain.ActivityLogEntry{
		JobID:      job.ID,
		PeriodType: domain.PeriodWeek,
		RangeKey:   rng.Key(),
		Action:     "report.request",
		Status:     domain.LogPending,
		ReportID:   reportID,
		RangeStart: rng.Start,
		RangeEnd:   rng.End,
	}
	if err := tctx.Activity.Upsert(ctx, entry); err != nil {
		t.Fatalf("seed activity: %v", err)
	}

	// Age the records past the grace window.
	stale := now.Add(-2 * time.Hour)
	if err := tctx.DB.Exec("UPDATE pull_jobs SET updated_at = ? WHERE id = ?", stale, job.ID).Error; err != nil {
		t.Fatalf("age job: %v", err)
	}
	if err := tctx.DB.Exec("UPDATE pull_activity_log SET updated_at = ? WHERE job_id = ?", stale, job.ID).Error; err != nil {
		t.Fatalf("age activity: %v", err)
	}
	return job
}

func TestStuckScanReentersAtPoll(t *testing.T) {
	ctx := context.Background()
	tctx := testTenant(t)
	now := time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)
	seedStuckJob(t, tctx, now, "rpt-stuck")

	api := &fakeReports{
		statuses: []spapi.StatusResult{{Status: spapi.StatusReady, DocumentID: "doc-1"}},
		document: []byte(`{"dataByAsin": []}`),
	}
	p := newTestPipeline(api, &captureNotifier{}, 3)
	d := NewStuckDetector(p, StuckConfig{GraceWindow: time.Hour}, logger.NewDefault())
	d.now = func() time.Time { return now }

	recovered, err := d.Scan(ctx, tctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("recovered = %d, want 1", recovered)
	}
	if api.createCalls != 0 {
		t.Errorf("create calls = %d, want 0 (recovery must not re-submit)", api.createCalls)
	}
	if api.statusCalls == 0 {
		t.Error("recovery should have polled the report status")
	}

	job, err := tctx.Jobs.GetByID(ctx, "job-stuck")
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if job.OverallStatus != domain.AggregateSuccess {
		t.Errorf("overall status = %s, want SUCCESS", job.OverallStatus)
	}
	if st := job.State(domain.PeriodWeek); st.PullStatus != domain.PullSuccess {
		t.Errorf("weekly pull status = %s, want SUCCESS", st.PullStatus)
	}
}

func TestStuckScanDefersUnitWithoutReportID(t *testing.T) {
	ctx := context.Background()
	tctx := testTenant(t)
	now := time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)
	job := seedStuckJob(t, tctx, now, "")

	api := &fakeReports{}
	p := newTestPipeline(api, &captureNotifier{}, 3)
	d := NewStuckDetector(p, StuckConfig{GraceWindow: time.Hour}, logger.NewDefault())
	d.now = func() time.Time { return now }

	recovered, err := d.Scan(ctx, tctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("recovered = %d, want 1", recovered)
	}
	if api.createCalls != 0 || api.statusCalls != 0 {
		t.Errorf("api calls = (%d, %d), want none for a unit without report ID", api.createCalls, api.statusCalls)
	}

	rng := domain.LastCompleteRange(domain.PeriodWeek, now)
	entry, err := tctx.Activity.Get(ctx, job.ID, domain.PeriodWeek, rng.Key())
	if err != nil {
		t.Fatalf("get activity: %v", err)
	}
	if entry.Action != actionDeferred {
		t.Errorf("action = %s, want %s", entry.Action, actionDeferred)
	}
}

func TestStuckScanIgnoresFreshJobs(t *testing.T) {
	ctx := context.Background()
	tctx := testTenant(t)
	now := time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)
	seedStuckJob(t, tctx, now, "rpt-fresh")

	// Freshen the job so it falls inside the grace window.
	if err := tctx.DB.Exec("UPDATE pull_jobs SET updated_at = ?, started_at = ? WHERE id = ?",
		now.Add(-10*time.Minute), now.Add(-10*time.Minute), "job-stuck").Error; err != nil {
		t.Fatalf("freshen job: %v", err)
	}

	api := &fakeReports{}
	p := newTestPipeline(api, &captureNotifier{}, 3)
	d := NewStuckDetector(p, StuckConfig{GraceWindow: time.Hour}, logger.NewDefault())
	d.now = func() time.Time { return now }

	recovered, err := d.Scan(ctx, tctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if recovered != 0 {
		t.Errorf("recovered = %d, want 0 for a fresh job", recovered)
	}
	if api.statusCalls != 0 {
		t.Errorf("status calls = %d, want 0", api.statusCalls)
	}
}

func TestCheckPendingAdvancesQueuedReport(t *testing.T) {
	ctx := context.Background()
	tctx := testTenant(t)
	now := time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)
	seedStuckJob(t, tctx, now, "rpt-queued")

	api := &fakeReports{
		statuses: []spapi.StatusResult{{Status: spapi.StatusReady, DocumentID: "doc-1"}},
		document: []byte(`{"dataByAsin": []}`),
	}
	p := newTestPipeline(api, &captureNotifier{}, 3)
	d := NewStuckDetector(p, StuckConfig{GraceWindow: 24 * time.Hour}, logger.NewDefault())
	d.now = func() time.Time { return now }

	// The grace window has not elapsed, but the status-check trigger still
	// advances the pending report.
	recovered, err := d.CheckPending(ctx, tctx)
	if err != nil {
		t.Fatalf("CheckPending: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("recovered = %d, want 1", recovered)
	}

	job, err := tctx.Jobs.GetByID(ctx, "job-stuck")
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if job.OverallStatus != domain.AggregateSuccess {
		t.Errorf("overall status = %s, want SUCCESS", job.OverallStatus)
	}
}

func TestStuckScanRecoversEscalatedHistoricalJob(t *testing.T) {
	ctx := context.Background()
	tctx := testTenant(t)
	now := time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)

	seller := &domain.Seller{
		ID:            "seller-1",
		MarketplaceID: "ATVPDKIKX0DER",
		CredentialKey: "cred-1",
	}
	if err := tctx.Sellers.Update(ctx, seller); err != nil {
		t.Fatalf("seed seller: %v", err)
	}

	// A historical job escalated to FAILED: one weekly range resolved fatal,
	// a second one is still retryable with its report already requested.
	weeks := domain.RangesBetween(domain.PeriodWeek,
		time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC), now)
	if len(weeks) != 2 {
		t.Fatalf("weeks = %d, want 2", len(weeks))
	}
	started := now.Add(-3 * time.Hour)
	job := &domain.PullJob{
		ID:            "job-hist",
		SellerID:      seller.ID,
		CredentialKey: seller.CredentialKey,
		MarketplaceID: seller.MarketplaceID,
		ASINs:         domain.StringArray{"B000TEST01"},
		IsHistorical:  true,
		OverallStatus: domain.AggregateFailed,
		PeriodStates: domain.PeriodStateMap{
			domain.PeriodWeek: {PullStatus: domain.PullFatal, ReportID: "rpt-h1"},
		},
		StartedAt: &started,
	}
	if err := tctx.Jobs.Create(ctx, job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	entries := []*domain.ActivityLogEntry{
		{
			JobID: job.ID, PeriodType: domain.PeriodWeek, RangeKey: weeks[0].Key(),
			Action: "pull.finish", Status: domain.LogFatal, ReportID: "rpt-h1",
			RangeStart: weeks[0].Start, RangeEnd: weeks[0].End,
		},
		{
			JobID: job.ID, PeriodType: domain.PeriodWeek, RangeKey: weeks[1].Key(),
			Action: "report.request", Status: domain.LogRetryable, ReportID: "rpt-h2",
			RangeStart: weeks[1].Start, RangeEnd: weeks[1].End,
		},
	}
	for _, e := range entries {
		if err := tctx.Activity.Upsert(ctx, e); err != nil {
			t.Fatalf("seed activity: %v", err)
		}
	}
	stale := now.Add(-2 * time.Hour)
	if err := tctx.DB.Exec("UPDATE pull_jobs SET updated_at = ? WHERE id = ?", stale, job.ID).Error; err != nil {
		t.Fatalf("age job: %v", err)
	}
	if err := tctx.DB.Exec("UPDATE pull_activity_log SET updated_at = ? WHERE job_id = ?", stale, job.ID).Error; err != nil {
		t.Fatalf("age activity: %v", err)
	}

	api := &fakeReports{
		statuses: []spapi.StatusResult{{Status: spapi.StatusReady, DocumentID: "doc-1"}},
		document: []byte(`{"dataByAsin": []}`),
	}
	p := newTestPipeline(api, &captureNotifier{}, 3)
	d := NewStuckDetector(p, StuckConfig{GraceWindow: time.Hour}, logger.NewDefault())
	d.now = func() time.Time { return now }

	recovered, err := d.Scan(ctx, tctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("recovered = %d, want 1 (only the retryable range)", recovered)
	}
	if api.createCalls != 0 {
		t.Errorf("create calls = %d, want 0 (recovery must not re-submit)", api.createCalls)
	}
	if api.statusCalls == 0 {
		t.Error("recovery should have polled the retryable range's report")
	}

	entry, err := tctx.Activity.Get(ctx, job.ID, domain.PeriodWeek, weeks[1].Key())
	if err != nil {
		t.Fatalf("get activity: %v", err)
	}
	if entry.Status != domain.LogSuccess {
		t.Errorf("recovered range status = %s, want SUCCESS", entry.Status)
	}

	// The fatal range keeps the job failed.
	job, err = tctx.Jobs.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if job.OverallStatus != domain.AggregateFailed {
		t.Errorf("overall status = %s, want FAILED while a fatal range remains", job.OverallStatus)
	}
}
