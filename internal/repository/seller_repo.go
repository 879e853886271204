package repository

import (
	"context"

	"github.com/mixshift/sqp-importer/internal/domain"
	"gorm.io/gorm"
)

// SellerRepository handles seller accounts within one tenant.
type SellerRepository struct {
	db *gorm.DB
}

// NewSellerRepository creates a new SellerRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *SellerRepository: repository instance bound to db.
func NewSellerRepository(db *gorm.DB) *SellerRepository {
	return &SellerRepository{db: db}
}

// GetByID retrieves a seller by ID.
func (r *SellerRepository) GetByID(ctx context.Context, id string) (*domain.Seller, error) {
	var seller domain.Seller
	if err := r.db.WithContext(ctx).First(&seller, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

// ListActive retrieves sellers whose authorization is intact, in stable
// order so scheduling rotates deterministically.
func (r *SellerRepository) ListActive(ctx context.Context) ([]domain.Seller, error) {
	var sellers []domain.Seller
	err := r.db.WithContext(ctx).
		Where("auth_lost = ?", false).
		Order("updated_at ASC, id ASC").
		Find(&sellers).Error
	if err != nil {
		return nil, err
	}
	return sellers, nil
}

// Update saves a seller record.
func (r *SellerRepository) Update(ctx context.Context, seller *domain.Seller) error {
	return r.db.WithContext(ctx).Save(seller).Error
}

// MarkAuthLost flags the seller as unauthorized so scheduling skips it
// until the grant is restored.
func (r *SellerRepository) MarkAuthLost(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&domain.Seller{}).
		Where("id = ?", id).
		Update("auth_lost", true).Error
}
