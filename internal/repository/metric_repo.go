package repository

import (
	"context"

	"github.com/mixshift/sqp-importer/internal/domain"
	"gorm.io/gorm"
)

// metricInsertBatchSize bounds one bulk insert statement.
const metricInsertBatchSize = 500

// MetricRepository handles imported SQP metric rows.
type MetricRepository struct {
	db *gorm.DB
}

// NewMetricRepository creates a new MetricRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *MetricRepository: repository instance bound to db.
func NewMetricRepository(db *gorm.DB) *MetricRepository {
	return &MetricRepository{db: db}
}

// ReplaceForReport deletes any rows previously imported for the report and
// bulk-inserts the new ones in a single transaction. Re-importing the same
// report therefore never duplicates rows.
func (r *MetricRepository) ReplaceForReport(ctx context.Context, reportID string, rows []domain.SQPMetric) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", reportID).Delete(&domain.SQPMetric{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, metricInsertBatchSize).Error
	})
}

// CountByReport counts rows imported for one report.
func (r *MetricRepository) CountByReport(ctx context.Context, reportID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SQPMetric{}).
		Where("report_id = ?", reportID).
		Count(&count).Error
	return count, err
}

// ExistingRangeKeys returns the distinct range keys already imported for a
// seller and period type. The backfill resolver subtracts these from the
// desired coverage grid.
func (r *MetricRepository) ExistingRangeKeys(ctx context.Context, sellerID string, pt domain.PeriodType) (map[string]bool, error) {
	var keys []string
	err := r.db.WithContext(ctx).Model(&domain.SQPMetric{}).
		Where("seller_id = ? AND period_type = ?", sellerID, pt).
		Distinct("range_key").
		Pluck("range_key", &keys).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k] = true
	}
	return out, nil
}
