package service

import (
	"context"
	"time"

	"github.com/mixshift/sqp-importer/internal/domain"
	"github.com/mixshift/sqp-importer/internal/logger"
	"github.com/mixshift/sqp-importer/internal/repository"
)

// ResolveTypeStatus folds the activity log entries of one period type into
// a single status. The log entries are the source of truth; job state is a
// cache derived from them.
//
// escalateFailed is set when the type has both in-progress and finished
// entries. The type itself keeps running, but the containing job is no
// longer clean and must surface as FAILED.
func ResolveTypeStatus(entries []domain.ActivityLogEntry) (status domain.AggregateStatus, escalateFailed bool) {
	if len(entries) == 0 {
		return domain.AggregateInProgress, false
	}

	var inProgress, success, fatal int
	for _, e := range entries {
		switch {
		case e.InProgress():
			inProgress++
		case e.Status == domain.LogSuccess:
			success++
		case e.Status == domain.LogFatal:
			fatal++
		}
	}

	switch {
	case inProgress > 0:
		// Still running. Mixed with finished entries means the job can no
		// longer complete cleanly in this cycle.
		return domain.AggregateInProgress, success+fatal > 0
	case fatal > 0:
		return domain.AggregateFailed, false
	case success > 0:
		return domain.AggregateSuccess, false
	default:
		return domain.AggregateInProgress, false
	}
}

// ResolveJobStatus recomputes a job's overall status from its activity log
// and persists it. The overall status is SUCCESS only when every period
// type resolved SUCCESS; any failed or escalated type makes it FAILED; an
// unresolved type without failures keeps it IN_PROGRESS.
func ResolveJobStatus(ctx context.Context, tctx *repository.TenantContext, job *domain.PullJob, now time.Time) (domain.AggregateStatus, error) {
	allDone := true
	anyFailed := false

	for _, pt := range domain.AllPeriodTypes {
		if _, ok := job.PeriodStates[pt]; !ok {
			// Type was not scheduled for this job; it does not gate the
			// overall status.
			continue
		}
		entries, err := tctx.Activity.ListByJobAndType(ctx, job.ID, pt)
		if err != nil {
			return "", err
		}
		status, escalate := ResolveTypeStatus(entries)
		switch status {
		case domain.AggregateFailed:
			anyFailed = true
		case domain.AggregateInProgress:
			allDone = false
			if escalate {
				anyFailed = true
			}
		}
	}

	overall := domain.AggregateInProgress
	switch {
	case anyFailed:
		overall = domain.AggregateFailed
	case allDone:
		overall = domain.AggregateSuccess
	}

	if overall != job.OverallStatus {
		job.OverallStatus = overall
		if overall != domain.AggregateInProgress && job.CompletedAt == nil && allDone {
			job.CompletedAt = &now
		}
		if err := tctx.Jobs.Update(ctx, job); err != nil {
			return overall, err
		}
		logger.FromContext(ctx).WithFields(logger.Fields{
			logger.FieldJobID:  job.ID,
			logger.FieldStatus: overall,
		}).Info("Job status resolved")
	}
	return overall, nil
}
