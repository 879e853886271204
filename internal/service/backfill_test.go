package service

import (
	"context"
	"testing"
	"time"

	"github.com/mixshift/sqp-importer/internal/domain"
	"github.com/mixshift/sqp-importer/internal/logger"
	"github.com/mixshift/sqp-importer/internal/spapi"
)

func TestMissingRangesSkipsExisting(t *testing.T) {
	// Desired window covers the first four SQP weeks of 2024; the first two
	// are already imported.
	now := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)
	from := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 27, 0, 0, 0, 0, time.UTC)
	existing := map[string]bool{"2024-W01": true, "2024-W02": true}

	missing := MissingRanges(domain.PeriodWeek, from, to, now, existing)

	want := []string{"2024-W03", "2024-W04"}
	if len(missing) != len(want) {
		t.Fatalf("missing = %d ranges, want %d", len(missing), len(want))
	}
	for i, r := range missing {
		if r.Key() != want[i] {
			t.Errorf("missing[%d] = %s, want %s", i, r.Key(), want[i])
		}
	}
}

func TestMissingRangesAllPresent(t *testing.T) {
	now := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)
	from := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC)
	existing := map[string]bool{"2024-W01": true, "2024-W02": true}

	if missing := MissingRanges(domain.PeriodWeek, from, to, now, existing); len(missing) != 0 {
		t.Errorf("missing = %d ranges, want 0", len(missing))
	}
}

func TestBackfillSkipsSellerWithoutWindow(t *testing.T) {
	ctx := context.Background()
	tctx := testTenant(t)

	seller := &domain.Seller{
		ID:            "seller-1",
		MarketplaceID: "ATVPDKIKX0DER",
		CredentialKey: "cred-1",
	}
	if err := tctx.Sellers.Update(ctx, seller); err != nil {
		t.Fatalf("seed seller: %v", err)
	}
	if err := tctx.Eligibility.Ensure(ctx, seller.ID, "B000TEST01"); err != nil {
		t.Fatalf("seed eligibility: %v", err)
	}

	api := &fakeReports{}
	b := NewBackfill(newTestPipeline(api, &captureNotifier{}, 3), logger.NewDefault())

	job, err := b.RunSeller(ctx, tctx, seller, nil)
	if err != nil {
		t.Fatalf("RunSeller: %v", err)
	}
	if job != nil {
		t.Error("expected no job for seller without coverage window")
	}
	if api.createCalls != 0 {
		t.Errorf("create calls = %d, want 0 (skip without external contact)", api.createCalls)
	}
}

func TestBackfillSkipsSellerWithoutIdentifiers(t *testing.T) {
	ctx := context.Background()
	tctx := testTenant(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seller := &domain.Seller{
		ID:            "seller-1",
		MarketplaceID: "ATVPDKIKX0DER",
		CredentialKey: "cred-1",
		BackfillStart: &start,
	}
	if err := tctx.Sellers.Update(ctx, seller); err != nil {
		t.Fatalf("seed seller: %v", err)
	}

	api := &fakeReports{}
	b := NewBackfill(newTestPipeline(api, &captureNotifier{}, 3), logger.NewDefault())

	job, err := b.RunSeller(ctx, tctx, seller, nil)
	if err != nil {
		t.Fatalf("RunSeller: %v", err)
	}
	if job != nil {
		t.Error("expected no job for seller without identifiers")
	}
	if api.createCalls != 0 {
		t.Errorf("create calls = %d, want 0", api.createCalls)
	}
}

func TestBackfillCreatesHistoricalJob(t *testing.T) {
	ctx := context.Background()
	tctx := testTenant(t)

	start := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC)
	seller := &domain.Seller{
		ID:            "seller-1",
		MarketplaceID: "ATVPDKIKX0DER",
		CredentialKey: "cred-1",
		BackfillStart: &start,
		BackfillEnd:   &end,
	}
	if err := tctx.Sellers.Update(ctx, seller); err != nil {
		t.Fatalf("seed seller: %v", err)
	}
	if err := tctx.Eligibility.Ensure(ctx, seller.ID, "B000TEST01"); err != nil {
		t.Fatalf("seed eligibility: %v", err)
	}

	api := &fakeReports{
		statuses: []spapi.StatusResult{{Status: spapi.StatusReady, DocumentID: "doc-1"}},
		document: []byte(`{"dataByAsin": []}`),
	}
	b := NewBackfill(newTestPipeline(api, &captureNotifier{}, 3), logger.NewDefault())

	job, err := b.RunSeller(ctx, tctx, seller, nil)
	if err != nil {
		t.Fatalf("RunSeller: %v", err)
	}
	if job == nil {
		t.Fatal("expected a historical job")
	}
	if !job.IsHistorical {
		t.Error("job should be flagged historical")
	}
	// The two-week window holds two complete weeks and no complete month or
	// quarter, so exactly two report requests go out.
	if api.createCalls != 2 {
		t.Errorf("create calls = %d, want 2", api.createCalls)
	}

	entries, err := tctx.Activity.ListByJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	keys := make(map[string]bool, len(entries))
	for _, e := range entries {
		keys[e.RangeKey] = true
	}
	if !keys["2024-W01"] || !keys["2024-W02"] {
		t.Errorf("activity keys = %v, want 2024-W01 and 2024-W02", keys)
	}
}

func TestBackfillIdentifierWindowNarrowsSellerWindow(t *testing.T) {
	ctx := context.Background()
	tctx := testTenant(t)

	// Seller window spans four complete weeks; the identifier's own window
	// covers only the first two.
	sellerStart := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	sellerEnd := time.Date(2024, 1, 27, 0, 0, 0, 0, time.UTC)
	seller := &domain.Seller{
		ID:            "seller-1",
		MarketplaceID: "ATVPDKIKX0DER",
		CredentialKey: "cred-1",
		BackfillStart: &sellerStart,
		BackfillEnd:   &sellerEnd,
	}
	if err := tctx.Sellers.Update(ctx, seller); err != nil {
		t.Fatalf("seed seller: %v", err)
	}
	if err := tctx.Eligibility.Ensure(ctx, seller.ID, "B000TEST01"); err != nil {
		t.Fatalf("seed eligibility: %v", err)
	}
	recs, err := tctx.Eligibility.ListBySeller(ctx, seller.ID)
	if err != nil {
		t.Fatalf("list eligibility: %v", err)
	}
	recStart := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	recEnd := time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC)
	recs[0].BackfillStart = &recStart
	recs[0].BackfillEnd = &recEnd
	if err := tctx.Eligibility.Update(ctx, &recs[0]); err != nil {
		t.Fatalf("update eligibility: %v", err)
	}

	api := &fakeReports{
		statuses: []spapi.StatusResult{{Status: spapi.StatusReady, DocumentID: "doc-1"}},
		document: []byte(`{"dataByAsin": []}`),
	}
	b := NewBackfill(newTestPipeline(api, &captureNotifier{}, 3), logger.NewDefault())

	job, err := b.RunSeller(ctx, tctx, seller, nil)
	if err != nil {
		t.Fatalf("RunSeller: %v", err)
	}
	if job == nil {
		t.Fatal("expected a historical job")
	}
	if api.createCalls != 2 {
		t.Errorf("create calls = %d, want 2 (identifier window trims the seller window)", api.createCalls)
	}

	entries, err := tctx.Activity.ListByJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	for _, e := range entries {
		if e.RangeKey != "2024-W01" && e.RangeKey != "2024-W02" {
			t.Errorf("range %s pulled outside the identifier window", e.RangeKey)
		}
	}
}

func TestBackfillExplicitWindowOverridesConfigured(t *testing.T) {
	ctx := context.Background()
	tctx := testTenant(t)

	seller := &domain.Seller{
		ID:            "seller-1",
		MarketplaceID: "ATVPDKIKX0DER",
		CredentialKey: "cred-1",
	}
	if err := tctx.Sellers.Update(ctx, seller); err != nil {
		t.Fatalf("seed seller: %v", err)
	}
	if err := tctx.Eligibility.Ensure(ctx, seller.ID, "B000TEST01"); err != nil {
		t.Fatalf("seed eligibility: %v", err)
	}
	recs, err := tctx.Eligibility.ListBySeller(ctx, seller.ID)
	if err != nil {
		t.Fatalf("list eligibility: %v", err)
	}
	// The identifier's configured window is wide; the explicit window must
	// win over it.
	recStart := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	recEnd := time.Date(2024, 1, 27, 0, 0, 0, 0, time.UTC)
	recs[0].BackfillStart = &recStart
	recs[0].BackfillEnd = &recEnd
	if err := tctx.Eligibility.Update(ctx, &recs[0]); err != nil {
		t.Fatalf("update eligibility: %v", err)
	}

	api := &fakeReports{
		statuses: []spapi.StatusResult{{Status: spapi.StatusReady, DocumentID: "doc-1"}},
		document: []byte(`{"dataByAsin": []}`),
	}
	b := NewBackfill(newTestPipeline(api, &captureNotifier{}, 3), logger.NewDefault())

	override := &Window{
		From: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC),
	}
	job, err := b.RunSeller(ctx, tctx, seller, override)
	if err != nil {
		t.Fatalf("RunSeller: %v", err)
	}
	if job == nil {
		t.Fatal("expected a historical job for the explicit window")
	}
	if api.createCalls != 2 {
		t.Errorf("create calls = %d, want 2 (explicit window wins)", api.createCalls)
	}
}
