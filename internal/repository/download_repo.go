package repository

import (
	"context"

	"github.com/mixshift/sqp-importer/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DownloadRepository handles report document download records.
type DownloadRepository struct {
	db *gorm.DB
}

// NewDownloadRepository creates a new DownloadRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *DownloadRepository: repository instance bound to db.
func NewDownloadRepository(db *gorm.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Upsert creates or updates the record keyed by report ID.
func (r *DownloadRepository) Upsert(ctx context.Context, rec *domain.DownloadRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "report_id"}},
		UpdateAll: true,
	}).Create(rec).Error
}

// GetByReportID retrieves the record for an external report identifier.
func (r *DownloadRepository) GetByReportID(ctx context.Context, reportID string) (*domain.DownloadRecord, error) {
	var rec domain.DownloadRecord
	if err := r.db.WithContext(ctx).First(&rec, "report_id = ?", reportID).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update saves an existing record.
func (r *DownloadRepository) Update(ctx context.Context, rec *domain.DownloadRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}
