package repository

import (
	"context"

	"github.com/mixshift/sqp-importer/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityLogRepository handles the upsert-keyed activity log. The log is
// the durable source of truth for aggregation and stuck-job recovery, so
// writes here must land before any state transition is reported complete.
type ActivityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository creates a new ActivityLogRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ActivityLogRepository: repository instance bound to db.
func NewActivityLogRepository(db *gorm.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Upsert writes the entry keyed by (job, period type, range); an existing
// entry for the same key is overwritten, last write wins.
func (r *ActivityLogRepository) Upsert(ctx context.Context, entry *domain.ActivityLogEntry) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "job_id"},
			{Name: "period_type"},
			{Name: "range_key"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"action", "status", "message", "report_id", "document_id",
			"retry_count", "range_start", "range_end", "updated_at",
		}),
	}).Create(entry).Error
}

// Get retrieves the entry for one (job, period type, range) key.
func (r *ActivityLogRepository) Get(ctx context.Context, jobID string, pt domain.PeriodType, rangeKey string) (*domain.ActivityLogEntry, error) {
	var entry domain.ActivityLogEntry
	err := r.db.WithContext(ctx).
		First(&entry, "job_id = ? AND period_type = ? AND range_key = ?", jobID, pt, rangeKey).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByJob retrieves all entries for a job.
func (r *ActivityLogRepository) ListByJob(ctx context.Context, jobID string) ([]domain.ActivityLogEntry, error) {
	var entries []domain.ActivityLogEntry
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("period_type, range_key").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListByJobAndType retrieves all entries for one period type of a job.
func (r *ActivityLogRepository) ListByJobAndType(ctx context.Context, jobID string, pt domain.PeriodType) ([]domain.ActivityLogEntry, error) {
	var entries []domain.ActivityLogEntry
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND period_type = ?", jobID, pt).
		Order("range_key").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
