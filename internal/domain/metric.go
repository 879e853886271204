package domain

import "time"

// SQPMetric is one imported search-query-performance row: the measurable
// signal for a single (ASIN, search query) combination within one reporting
// range. Rows where every count is zero are discarded before import.
type SQPMetric struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SellerID    string     `gorm:"type:text;not null;index:idx_sqp_metrics_seller" json:"seller_id"`
	ASIN        string     `gorm:"type:text;not null;index:idx_sqp_metrics_asin" json:"asin"`
	SearchQuery string     `gorm:"type:text;not null" json:"search_query"`
	PeriodType  PeriodType `gorm:"type:text;not null;index:idx_sqp_metrics_range" json:"period_type"`
	RangeKey    string     `gorm:"type:text;not null;index:idx_sqp_metrics_range" json:"range_key"`
	RangeStart  time.Time  `json:"range_start"`
	RangeEnd    time.Time  `json:"range_end"`
	ReportID    string     `gorm:"type:text;index:idx_sqp_metrics_report" json:"report_id"`

	QueryVolume      int64   `json:"query_volume"`
	Impressions      int64   `json:"impressions"`
	Clicks           int64   `json:"clicks"`
	CartAdds         int64   `json:"cart_adds"`
	Purchases        int64   `json:"purchases"`
	ClickRate        float64 `json:"click_rate"`
	CartAddRate      float64 `json:"cart_add_rate"`
	PurchaseRate     float64 `json:"purchase_rate"`
	MedianClickPrice float64 `json:"median_click_price"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for SQPMetric.
func (SQPMetric) TableName() string {
	return "sqp_metrics"
}

// HasSignal reports whether the row carries any measurable activity.
func (m *SQPMetric) HasSignal() bool {
	return m.Impressions != 0 || m.Clicks != 0 || m.CartAdds != 0 || m.Purchases != 0
}
