package domain

import "time"

// Seller is one seller account owned by a tenant. Its identifier set is the
// collection of EligibilityRecords referencing it.
type Seller struct {
	ID            string     `gorm:"type:text;primaryKey" json:"id"`
	Name          string     `gorm:"type:text" json:"name"`
	MarketplaceID string     `gorm:"type:text;not null" json:"marketplace_id"`
	CredentialKey string     `gorm:"type:text;not null" json:"credential_key"`
	AuthLost      bool       `gorm:"default:false" json:"auth_lost"`
	BackfillStart *time.Time `json:"backfill_start,omitempty"`
	BackfillEnd   *time.Time `json:"backfill_end,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Seller.
func (Seller) TableName() string {
	return "sellers"
}
