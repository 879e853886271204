package domain

import "time"

// LogStatus is the status code carried by an activity log entry.
type LogStatus string

const (
	LogPending   LogStatus = "PENDING"
	LogSuccess   LogStatus = "SUCCESS"
	LogRetryable LogStatus = "RETRYABLE"
	LogFatal     LogStatus = "FATAL"
)

// ActivityLogEntry records the last action taken for one (job, period type,
// range) tuple. Entries are upserted by key, not appended: re-running the
// same tuple overwrites the previous entry. Aggregation and stuck-job
// detection read only this table, so every state transition must write its
// entry before the transition is considered complete.
type ActivityLogEntry struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	JobID      string     `gorm:"type:text;not null;uniqueIndex:idx_activity_key" json:"job_id"`
	PeriodType PeriodType `gorm:"type:text;not null;uniqueIndex:idx_activity_key" json:"period_type"`
	RangeKey   string     `gorm:"type:text;not null;uniqueIndex:idx_activity_key" json:"range_key"`
	Action     string     `gorm:"type:text" json:"action"`
	Status     LogStatus  `gorm:"type:text;index:idx_activity_status" json:"status"`
	Message    string     `gorm:"type:text" json:"message,omitempty"`
	ReportID   string     `gorm:"type:text" json:"report_id,omitempty"`
	DocumentID string     `gorm:"type:text" json:"document_id,omitempty"`
	RetryCount int        `gorm:"default:0" json:"retry_count"`
	RangeStart time.Time  `json:"range_start"`
	RangeEnd   time.Time  `json:"range_end"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ActivityLogEntry.
func (ActivityLogEntry) TableName() string {
	return "pull_activity_log"
}

// InProgress reports whether the entry still counts toward unfinished work.
func (e *ActivityLogEntry) InProgress() bool {
	return e.Status == LogPending || e.Status == LogRetryable
}
