package spapi

import (
	"encoding/json"
	"errors"
	"time"
)

// ReportStatus is the processing status reported by the external system.
type ReportStatus string

const (
	StatusQueued     ReportStatus = "QUEUED"
	StatusInProgress ReportStatus = "IN_PROGRESS"
	StatusReady      ReportStatus = "READY"
	StatusFatal      ReportStatus = "FATAL"
	StatusCancelled  ReportStatus = "CANCELLED"
)

// ErrAuthLost means the seller's authorization is gone and cannot be
// refreshed. The engine must skip the seller entirely until re-authorized;
// this is not a retryable error.
var ErrAuthLost = errors.New("seller authorization lost")

// ReportRequest describes one report to create.
type ReportRequest struct {
	ReportType     string            `json:"reportType"`
	MarketplaceIDs []string          `json:"marketplaceIds"`
	DataStartTime  time.Time         `json:"dataStartTime"`
	DataEndTime    time.Time         `json:"dataEndTime"`
	ReportOptions  map[string]string `json:"reportOptions,omitempty"`
}

// ReportTypeSQP is the search-query-performance report kind.
const ReportTypeSQP = "GET_BRAND_ANALYTICS_SEARCH_QUERY_PERFORMANCE_REPORT"

// StatusResult is the outcome of a report status poll.
type StatusResult struct {
	Status     ReportStatus `json:"processingStatus"`
	DocumentID string       `json:"reportDocumentId,omitempty"`
}

// DocumentMeta locates the raw report document.
type DocumentMeta struct {
	URL         string `json:"url"`
	Compression string `json:"compressionAlgorithm,omitempty"`
}

// SQPRecord is one row of a parsed SQP report: the metrics for a single
// (ASIN, search query) combination within the report's date range.
type SQPRecord struct {
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	ASIN        string `json:"asin"`
	SearchQuery struct {
		Query string `json:"searchQuery"`
		Score int64  `json:"searchQueryScore"`
		Vol   int64  `json:"searchQueryVolume"`
	} `json:"searchQueryData"`
	Impressions struct {
		TotalCount int64 `json:"totalQueryImpressionCount"`
		ASINCount  int64 `json:"asinImpressionCount"`
	} `json:"impressionData"`
	Clicks struct {
		TotalCount       int64   `json:"totalClickCount"`
		ASINCount        int64   `json:"asinClickCount"`
		MedianClickPrice float64 `json:"totalMedianClickPrice"`
	} `json:"clickData"`
	CartAdds struct {
		TotalCount int64 `json:"totalCartAddCount"`
		ASINCount  int64 `json:"asinCartAddCount"`
	} `json:"cartAddData"`
	Purchases struct {
		TotalCount int64 `json:"totalPurchaseCount"`
		ASINCount  int64 `json:"asinPurchaseCount"`
	} `json:"purchaseData"`
}

// sqpReportBody matches the top-level document layout.
type sqpReportBody struct {
	DataByASIN []SQPRecord `json:"dataByAsin"`
}

// ParseSQPReport decodes a raw report document into its records. An empty
// body or an empty record list is valid and yields zero records.
func ParseSQPReport(data []byte) ([]SQPRecord, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var body sqpReportBody
	if err := json.Unmarshal(data, &body); err != nil {
		// Some report variants are a bare array of records.
		var records []SQPRecord
		if arrErr := json.Unmarshal(data, &records); arrErr == nil {
			return records, nil
		}
		return nil, err
	}
	return body.DataByASIN, nil
}
