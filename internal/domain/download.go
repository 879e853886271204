package domain

import "time"

// DownloadStatus tracks the fetch lifecycle of one report document.
type DownloadStatus string

const (
	DownloadPending     DownloadStatus = "PENDING"
	DownloadDownloading DownloadStatus = "DOWNLOADING"
	DownloadCompleted   DownloadStatus = "COMPLETED"
	DownloadFailed      DownloadStatus = "FAILED"
)

// ImportStatus tracks the import sub-state of a downloaded document,
// guarding idempotent re-import.
type ImportStatus string

const (
	ImportPending    ImportStatus = "PENDING"
	ImportProcessing ImportStatus = "PROCESSING"
	ImportSuccess    ImportStatus = "SUCCESS"
	ImportFailed     ImportStatus = "FAILED"
)

// DownloadRecord tracks one external report document from the moment its
// document ID is known through download and import.
type DownloadRecord struct {
	ID               string         `gorm:"type:text;primaryKey" json:"id"`
	JobID            string         `gorm:"type:text;index:idx_downloads_job" json:"job_id"`
	SellerID         string         `gorm:"type:text;index:idx_downloads_seller" json:"seller_id"`
	PeriodType       PeriodType     `gorm:"type:text" json:"period_type"`
	RangeKey         string         `gorm:"type:text" json:"range_key"`
	ReportID         string         `gorm:"type:text;uniqueIndex:idx_downloads_report" json:"report_id"`
	DocumentID       string         `gorm:"type:text" json:"document_id"`
	Status           DownloadStatus `gorm:"type:text;default:PENDING" json:"status"`
	ImportStatus     ImportStatus   `gorm:"type:text;default:PENDING" json:"import_status"`
	DownloadAttempts int            `gorm:"default:0" json:"download_attempts"`
	ImportAttempts   int            `gorm:"default:0" json:"import_attempts"`
	ArtifactPath     string         `gorm:"type:text" json:"artifact_path,omitempty"`
	SizeBytes        int64          `json:"size_bytes"`
	RowsImported     int            `json:"rows_imported"`
	LastError        string         `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// TableName returns the database table name for DownloadRecord.
func (DownloadRecord) TableName() string {
	return "report_downloads"
}
