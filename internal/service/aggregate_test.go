package service

import (
	"testing"

	"github.com/mixshift/sqp-importer/internal/domain"
)

func entriesWith(success, fatal, inProgress int) []domain.ActivityLogEntry {
	var entries []domain.ActivityLogEntry
	for i := 0; i < success; i++ {
		entries = append(entries, domain.ActivityLogEntry{Status: domain.LogSuccess})
	}
	for i := 0; i < fatal; i++ {
		entries = append(entries, domain.ActivityLogEntry{Status: domain.LogFatal})
	}
	for i := 0; i < inProgress; i++ {
		entries = append(entries, domain.ActivityLogEntry{Status: domain.LogPending})
	}
	return entries
}

func TestResolveTypeStatus(t *testing.T) {
	tests := []struct {
		name         string
		success      int
		fatal        int
		inProgress   int
		wantStatus   domain.AggregateStatus
		wantEscalate bool
	}{
		{"all done", 3, 0, 0, domain.AggregateSuccess, false},
		{"all fatal", 0, 3, 0, domain.AggregateFailed, false},
		{"no entries", 0, 0, 0, domain.AggregateInProgress, false},
		{"only in progress", 0, 0, 2, domain.AggregateInProgress, false},
		{"done and fatal, none running", 2, 1, 0, domain.AggregateFailed, false},
		{"fatal only", 0, 2, 0, domain.AggregateFailed, false},
		{"running beside done", 1, 0, 1, domain.AggregateInProgress, true},
		{"running beside fatal", 0, 1, 1, domain.AggregateInProgress, true},
		{"running beside both", 1, 1, 1, domain.AggregateInProgress, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, escalate := ResolveTypeStatus(entriesWith(tt.success, tt.fatal, tt.inProgress))
			if status != tt.wantStatus {
				t.Errorf("status = %s, want %s", status, tt.wantStatus)
			}
			if escalate != tt.wantEscalate {
				t.Errorf("escalate = %v, want %v", escalate, tt.wantEscalate)
			}
		})
	}
}

func TestResolveTypeStatusRetryableCountsAsRunning(t *testing.T) {
	entries := []domain.ActivityLogEntry{
		{Status: domain.LogRetryable},
		{Status: domain.LogSuccess},
	}
	status, escalate := ResolveTypeStatus(entries)
	if status != domain.AggregateInProgress {
		t.Errorf("status = %s, want %s", status, domain.AggregateInProgress)
	}
	if !escalate {
		t.Error("expected retryable beside success to escalate the job")
	}
}
