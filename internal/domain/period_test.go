package domain

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRangeKey(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		want string
	}{
		{
			name: "first week of 2024",
			r:    Range{Type: PeriodWeek, Start: date(2023, 12, 31), End: date(2024, 1, 6)},
			want: "2024-W01",
		},
		{
			name: "mid-year week",
			r:    Range{Type: PeriodWeek, Start: date(2024, 6, 2), End: date(2024, 6, 8)},
			want: "2024-W23",
		},
		{
			name: "january month",
			r:    Range{Type: PeriodMonth, Start: date(2024, 1, 1), End: date(2024, 1, 31)},
			want: "2024-M01",
		},
		{
			name: "fourth quarter",
			r:    Range{Type: PeriodQuarter, Start: date(2024, 10, 1), End: date(2024, 12, 31)},
			want: "2024-Q4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLastCompleteRange(t *testing.T) {
	// Wednesday 2024-06-12.
	now := time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC)

	week := LastCompleteRange(PeriodWeek, now)
	if !week.Start.Equal(date(2024, 6, 2)) || !week.End.Equal(date(2024, 6, 8)) {
		t.Errorf("week = %v..%v, want 2024-06-02..2024-06-08", week.Start, week.End)
	}

	month := LastCompleteRange(PeriodMonth, now)
	if !month.Start.Equal(date(2024, 5, 1)) || !month.End.Equal(date(2024, 5, 31)) {
		t.Errorf("month = %v..%v, want May 2024", month.Start, month.End)
	}

	quarter := LastCompleteRange(PeriodQuarter, now)
	if !quarter.Start.Equal(date(2024, 1, 1)) || !quarter.End.Equal(date(2024, 3, 31)) {
		t.Errorf("quarter = %v..%v, want Q1 2024", quarter.Start, quarter.End)
	}
}

func TestRangesBetween_WeeklyGrid(t *testing.T) {
	now := date(2024, 3, 1)
	got := RangesBetween(PeriodWeek, date(2023, 12, 31), date(2024, 1, 27), now)

	want := []string{"2024-W01", "2024-W02", "2024-W03", "2024-W04"}
	if len(got) != len(want) {
		t.Fatalf("got %d ranges, want %d", len(got), len(want))
	}
	for i, r := range got {
		if r.Key() != want[i] {
			t.Errorf("range %d key = %q, want %q", i, r.Key(), want[i])
		}
		if r.Start.Weekday() != time.Sunday || r.End.Weekday() != time.Saturday {
			t.Errorf("range %d is not Sunday..Saturday: %v..%v", i, r.Start, r.End)
		}
	}
}

func TestRangesBetween_ExcludesIncompletePeriods(t *testing.T) {
	// Now sits inside January, so January must not be in the grid.
	now := date(2024, 1, 15)
	got := RangesBetween(PeriodMonth, date(2023, 11, 1), date(2024, 1, 31), now)

	want := []string{"2023-M11", "2023-M12"}
	if len(got) != len(want) {
		t.Fatalf("got %d ranges, want %d", len(got), len(want))
	}
	for i, r := range got {
		if r.Key() != want[i] {
			t.Errorf("range %d key = %q, want %q", i, r.Key(), want[i])
		}
	}
}

func TestRangesBetween_EmptyWindow(t *testing.T) {
	now := date(2024, 6, 1)
	if got := RangesBetween(PeriodQuarter, date(2024, 2, 1), date(2024, 2, 10), now); len(got) != 0 {
		t.Errorf("expected no quarters inside a 10-day window, got %d", len(got))
	}
}

func TestEligibilityDueFor(t *testing.T) {
	now := date(2024, 6, 12)
	cooldown := 48 * time.Hour
	old := date(2024, 6, 1)
	fresh := date(2024, 6, 11)

	tests := []struct {
		name string
		rec  EligibilityRecord
		want bool
	}{
		{"never attempted", EligibilityRecord{}, true},
		{
			"succeeded this period",
			EligibilityRecord{Outcomes: PeriodOutcomeMap{
				PeriodWeek: {Status: PullSuccess, AttemptedAt: &fresh},
			}},
			false,
		},
		{
			"failed past cooldown",
			EligibilityRecord{Outcomes: PeriodOutcomeMap{
				PeriodWeek: {Status: PullRetryable, AttemptedAt: &old},
			}},
			true,
		},
		{
			"failed inside cooldown",
			EligibilityRecord{Outcomes: PeriodOutcomeMap{
				PeriodWeek: {Status: PullRetryable, AttemptedAt: &fresh},
			}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.DueFor(PeriodWeek, cooldown, now); got != tt.want {
				t.Errorf("DueFor() = %v, want %v", got, tt.want)
			}
		})
	}
}
