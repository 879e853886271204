package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// PeriodType identifies one of the three independent reporting cadences a
// pull job advances through. Each period type carries its own sub-state.
type PeriodType string

const (
	PeriodWeek    PeriodType = "WEEK"
	PeriodMonth   PeriodType = "MONTH"
	PeriodQuarter PeriodType = "QUARTER"
)

// AllPeriodTypes lists the period types in their canonical processing order.
var AllPeriodTypes = []PeriodType{PeriodWeek, PeriodMonth, PeriodQuarter}

// PullStatus represents the outcome state of one period type within a job.
// Values include PullPending, PullSuccess, PullRetryable, and PullFatal.
type PullStatus string

const (
	PullPending   PullStatus = "PENDING"
	PullSuccess   PullStatus = "SUCCESS"
	PullRetryable PullStatus = "RETRYABLE_ERROR"
	PullFatal     PullStatus = "FATAL"
)

// Terminal reports whether the status freezes the period type's phase.
func (s PullStatus) Terminal() bool {
	return s == PullSuccess || s == PullFatal
}

// PhaseStatus represents the pipeline phase a period type is currently in.
// Only meaningful while the pull status is PENDING or RETRYABLE_ERROR.
type PhaseStatus string

const (
	PhaseRequesting  PhaseStatus = "REQUESTING"
	PhasePolling     PhaseStatus = "POLLING"
	PhaseDownloading PhaseStatus = "DOWNLOADING"
	PhaseImporting   PhaseStatus = "IMPORTING"
)

// AggregateStatus is the resolved status of a period type or a whole job,
// derived from the activity log (see service.ResolveTypeStatus).
type AggregateStatus string

const (
	AggregateInProgress AggregateStatus = "IN_PROGRESS"
	AggregateSuccess    AggregateStatus = "SUCCESS"
	AggregateFailed     AggregateStatus = "FAILED"
)

// PeriodState holds the independent sub-state of one period type within a
// pull job. One struct covers weekly, monthly, and quarterly pulls alike.
type PeriodState struct {
	PullStatus  PullStatus  `json:"pull_status"`
	PhaseStatus PhaseStatus `json:"phase_status,omitempty"`
	ReportID    string      `json:"report_id,omitempty"`
	DocumentID  string      `json:"document_id,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	LastError   string      `json:"last_error,omitempty"`
}

// PeriodStateMap stores per-period-type state as a JSON column.
type PeriodStateMap map[PeriodType]*PeriodState

// Value implements the driver.Valuer interface for database serialization.
func (m PeriodStateMap) Value() (driver.Value, error) {
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
func (m *PeriodStateMap) Scan(value interface{}) error {
	if value == nil {
		*m = PeriodStateMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan PeriodStateMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// StringArray is a custom type for storing string slices as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// PullJob is one unit of orchestration work: a single seller pulled across
// all period types during one scheduling cycle (or one backfill run).
type PullJob struct {
	ID            string          `gorm:"type:text;primaryKey" json:"id"`
	SellerID      string          `gorm:"type:text;not null;index:idx_pull_jobs_seller" json:"seller_id"`
	CredentialKey string          `gorm:"type:text" json:"credential_key"`
	MarketplaceID string          `gorm:"type:text" json:"marketplace_id"`
	ASINs         StringArray     `gorm:"type:text" json:"asins"`
	IsHistorical  bool            `gorm:"default:false" json:"is_historical"`
	OverallStatus AggregateStatus `gorm:"type:text;index:idx_pull_jobs_status;default:IN_PROGRESS" json:"overall_status"`
	PeriodStates  PeriodStateMap  `gorm:"type:text" json:"period_states"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName returns the database table name for PullJob.
func (PullJob) TableName() string {
	return "pull_jobs"
}

// NewPeriodStates returns the initial per-type state map for a fresh job.
func NewPeriodStates() PeriodStateMap {
	m := make(PeriodStateMap, len(AllPeriodTypes))
	for _, pt := range AllPeriodTypes {
		m[pt] = &PeriodState{PullStatus: PullPending}
	}
	return m
}

// State returns the state for a period type, creating a pending one if absent.
func (j *PullJob) State(pt PeriodType) *PeriodState {
	if j.PeriodStates == nil {
		j.PeriodStates = PeriodStateMap{}
	}
	st, ok := j.PeriodStates[pt]
	if !ok {
		st = &PeriodState{PullStatus: PullPending}
		j.PeriodStates[pt] = st
	}
	return st
}
