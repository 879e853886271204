package repository

import (
	"context"
	"time"

	"github.com/mixshift/sqp-importer/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EligibilityRepository handles per-(seller, ASIN) eligibility records.
type EligibilityRepository struct {
	db *gorm.DB
}

// NewEligibilityRepository creates a new EligibilityRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *EligibilityRepository: repository instance bound to db.
func NewEligibilityRepository(db *gorm.DB) *EligibilityRepository {
	return &EligibilityRepository{db: db}
}

// Ensure creates the record for (seller, ASIN) if it does not exist yet.
func (r *EligibilityRepository) Ensure(ctx context.Context, sellerID, asin string) error {
	rec := domain.EligibilityRecord{
		SellerID: sellerID,
		ASIN:     asin,
		Outcomes: domain.PeriodOutcomeMap{},
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "seller_id"}, {Name: "asin"}},
		DoNothing: true,
	}).Create(&rec).Error
}

// Update saves an eligibility record.
func (r *EligibilityRepository) Update(ctx context.Context, rec *domain.EligibilityRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

// ListBySeller retrieves all records for one seller.
func (r *EligibilityRepository) ListBySeller(ctx context.Context, sellerID string) ([]domain.EligibilityRecord, error) {
	var recs []domain.EligibilityRecord
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("asin").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// ResetOutcomes clears the recorded outcome for one period type on every
// record whose last attempt predates the cutoff. Called when a new calendar
// period of that type begins so the pull cycle repeats; passing the current
// period start makes the reset idempotent.
func (r *EligibilityRepository) ResetOutcomes(ctx context.Context, pt domain.PeriodType, before time.Time) (int64, error) {
	var recs []domain.EligibilityRecord
	if err := r.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return 0, err
	}

	var reset int64
	for i := range recs {
		rec := &recs[i]
		out := rec.Outcome(pt)
		if out == nil {
			continue
		}
		if out.AttemptedAt != nil && !out.AttemptedAt.Before(before) {
			continue
		}
		delete(rec.Outcomes, pt)
		if err := r.db.WithContext(ctx).Save(rec).Error; err != nil {
			return reset, err
		}
		reset++
	}
	return reset, nil
}
