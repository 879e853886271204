package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// PeriodOutcome is the last pull attempt recorded for one period type of an
// eligibility record.
type PeriodOutcome struct {
	Status      PullStatus `json:"status"`
	AttemptedAt *time.Time `json:"attempted_at,omitempty"`
	RangeKey    string     `json:"range_key,omitempty"`
}

// PeriodOutcomeMap stores per-period-type outcomes as a JSON column.
type PeriodOutcomeMap map[PeriodType]*PeriodOutcome

// Value implements the driver.Valuer interface for database serialization.
func (m PeriodOutcomeMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (m *PeriodOutcomeMap) Scan(value interface{}) error {
	if value == nil {
		*m = PeriodOutcomeMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan PeriodOutcomeMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// EligibilityRecord tracks, per (seller, ASIN), the last pull outcome for
// each period type. The scheduling loop reads these to decide what is due;
// the pipeline's completion hooks write them. Records are reset wholesale
// when a new calendar period begins so the cycle repeats.
type EligibilityRecord struct {
	ID       uint             `gorm:"primaryKey" json:"id"`
	SellerID string           `gorm:"type:text;not null;uniqueIndex:idx_eligibility_key" json:"seller_id"`
	ASIN     string           `gorm:"type:text;not null;uniqueIndex:idx_eligibility_key" json:"asin"`
	Outcomes PeriodOutcomeMap `gorm:"type:text" json:"outcomes"`
	// Optional per-identifier coverage window; when unset the seller's
	// window applies. See service.Backfill for the resolution order.
	BackfillStart *time.Time `json:"backfill_start,omitempty"`
	BackfillEnd   *time.Time `json:"backfill_end,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName returns the database table name for EligibilityRecord.
func (EligibilityRecord) TableName() string {
	return "pull_eligibility"
}

// Outcome returns the recorded outcome for a period type, or nil when the
// type was never attempted.
func (r *EligibilityRecord) Outcome(pt PeriodType) *PeriodOutcome {
	if r.Outcomes == nil {
		return nil
	}
	return r.Outcomes[pt]
}

// DueFor reports whether this record is due for a pull of the given period
// type: never attempted, or the last attempt did not succeed and the retry
// cooldown has elapsed.
func (r *EligibilityRecord) DueFor(pt PeriodType, cooldown time.Duration, now time.Time) bool {
	out := r.Outcome(pt)
	if out == nil || out.AttemptedAt == nil {
		return true
	}
	if out.Status == PullSuccess {
		return false
	}
	return now.Sub(*out.AttemptedAt) >= cooldown
}
