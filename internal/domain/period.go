package domain

import (
	"fmt"
	"time"
)

// Range is one discrete reporting period: a closed [Start, End] date range
// at UTC midnight granularity. SQP weeks run Sunday through Saturday.
type Range struct {
	Type  PeriodType `json:"type"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
}

// Key returns the canonical range key used to deduplicate imported periods,
// e.g. "2024-W03", "2024-M01", "2024-Q1".
func (r Range) Key() string {
	switch r.Type {
	case PeriodWeek:
		year, week := r.End.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case PeriodMonth:
		return fmt.Sprintf("%d-M%02d", r.Start.Year(), int(r.Start.Month()))
	case PeriodQuarter:
		return fmt.Sprintf("%d-Q%d", r.Start.Year(), (int(r.Start.Month())-1)/3+1)
	}
	return fmt.Sprintf("%s-%s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

// truncateDay drops the time-of-day component, keeping UTC midnight.
func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// weekStart returns the Sunday on or before d.
func weekStart(d time.Time) time.Time {
	d = truncateDay(d)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// periodStart returns the start of the period of the given type containing d.
func periodStart(pt PeriodType, d time.Time) time.Time {
	d = truncateDay(d)
	switch pt {
	case PeriodWeek:
		return weekStart(d)
	case PeriodMonth:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	case PeriodQuarter:
		q := (int(d.Month()) - 1) / 3
		return time.Date(d.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	}
	return d
}

// periodAfter returns the start of the period following the one starting at s.
func periodAfter(pt PeriodType, s time.Time) time.Time {
	switch pt {
	case PeriodWeek:
		return s.AddDate(0, 0, 7)
	case PeriodMonth:
		return s.AddDate(0, 1, 0)
	case PeriodQuarter:
		return s.AddDate(0, 3, 0)
	}
	return s
}

// rangeStartingAt builds the Range of the given type beginning at s.
func rangeStartingAt(pt PeriodType, s time.Time) Range {
	return Range{Type: pt, Start: s, End: periodAfter(pt, s).AddDate(0, 0, -1)}
}

// CurrentPeriodStart returns the start of the period of the given type that
// contains now. Used to detect that a new calendar period has begun.
func CurrentPeriodStart(pt PeriodType, now time.Time) time.Time {
	return periodStart(pt, now)
}

// LastCompleteRange returns the most recent fully elapsed period of the
// given type as of now. The current, still-running period is never returned.
func LastCompleteRange(pt PeriodType, now time.Time) Range {
	cur := periodStart(pt, now)
	var prev time.Time
	switch pt {
	case PeriodWeek:
		prev = cur.AddDate(0, 0, -7)
	case PeriodMonth:
		prev = cur.AddDate(0, -1, 0)
	case PeriodQuarter:
		prev = cur.AddDate(0, -3, 0)
	default:
		prev = cur
	}
	return rangeStartingAt(pt, prev)
}

// RangesBetween expands the full grid of complete periods of the given type
// that lie entirely inside [from, to]. Periods that have not yet fully
// elapsed as of now are excluded, so the grid is safe to request.
func RangesBetween(pt PeriodType, from, to, now time.Time) []Range {
	from = truncateDay(from)
	to = truncateDay(to)
	if to.Before(from) {
		return nil
	}

	start := periodStart(pt, from)
	if start.Before(from) {
		start = periodAfter(pt, start)
	}

	cap := periodStart(pt, now) // first incomplete period
	var out []Range
	for {
		r := rangeStartingAt(pt, start)
		if r.End.After(to) || !r.End.Before(cap) {
			break
		}
		out = append(out, r)
		start = periodAfter(pt, start)
	}
	return out
}
