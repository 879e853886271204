package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldTenantID is the active tenant context
	FieldTenantID = "tenant_id"

	// FieldJobID is the pull job ID
	FieldJobID = "job_id"

	// FieldSellerID is the seller account identifier
	FieldSellerID = "seller_id"

	// FieldPeriodType is the reporting cadence (WEEK/MONTH/QUARTER)
	FieldPeriodType = "period_type"

	// FieldRangeKey is the canonical reporting range key
	FieldRangeKey = "range_key"

	// FieldReportID is the external report identifier
	FieldReportID = "report_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// Standard metric fields, used for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldRetryCount is the attempt number for a retried operation
	FieldRetryCount = "retry_count"
)
