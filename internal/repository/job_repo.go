package repository

import (
	"context"
	"time"

	"github.com/mixshift/sqp-importer/internal/domain"
	"gorm.io/gorm"
)

// PullJobRepository handles pull job persistence.
type PullJobRepository struct {
	db *gorm.DB
}

// NewPullJobRepository creates a new PullJobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *PullJobRepository: repository instance bound to db.
func NewPullJobRepository(db *gorm.DB) *PullJobRepository {
	return &PullJobRepository{db: db}
}

// Create inserts a new pull job.
func (r *PullJobRepository) Create(ctx context.Context, job *domain.PullJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Update saves the job including its period state map.
func (r *PullJobRepository) Update(ctx context.Context, job *domain.PullJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// GetByID retrieves a pull job by its ID.
func (r *PullJobRepository) GetByID(ctx context.Context, id string) (*domain.PullJob, error) {
	var job domain.PullJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// HasActiveJob reports whether any seller of this tenant has a job still
// in progress that was touched within the freshness window. The scheduler
// uses this to avoid stacking runs on top of live work.
func (r *PullJobRepository) HasActiveJob(ctx context.Context, freshSince time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.PullJob{}).
		Where("overall_status = ? AND updated_at >= ?", domain.AggregateInProgress, freshSince).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListStale returns jobs with unfinished work whose record has not advanced
// since the cutoff, or whose last update precedes the job's own start (a
// restart mid-flight). Besides in-progress jobs this covers jobs escalated
// to FAILED that still carry pending or retryable log entries, since those
// ranges can still be re-driven.
func (r *PullJobRepository) ListStale(ctx context.Context, cutoff time.Time) ([]domain.PullJob, error) {
	var jobs []domain.PullJob
	openEntries := []domain.LogStatus{domain.LogPending, domain.LogRetryable}
	err := r.db.WithContext(ctx).
		Where(r.db.
			Where("overall_status = ?", domain.AggregateInProgress).
			Or("overall_status = ? AND EXISTS (SELECT 1 FROM pull_activity_log WHERE pull_activity_log.job_id = pull_jobs.id AND pull_activity_log.status IN ?)",
				domain.AggregateFailed, openEntries)).
		Where("updated_at < ? OR (started_at IS NOT NULL AND updated_at < started_at)", cutoff).
		Order("updated_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// CountByStatus counts jobs by overall status.
func (r *PullJobRepository) CountByStatus(ctx context.Context, status domain.AggregateStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.PullJob{}).
		Where("overall_status = ?", status).
		Count(&count).Error
	return count, err
}
