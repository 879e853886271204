package notify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mixshift/sqp-importer/internal/domain"
	"github.com/mixshift/sqp-importer/internal/logger"
)

// FailureNotification describes one exhausted or fatal pull unit.
type FailureNotification struct {
	TenantID   string            `json:"tenant_id"`
	JobID      string            `json:"job_id"`
	SellerID   string            `json:"seller_id"`
	PeriodType domain.PeriodType `json:"period_type"`
	RangeKey   string            `json:"range_key,omitempty"`
	Error      string            `json:"error"`
	RetryCount int               `json:"retry_count"`
	Fatal      bool              `json:"fatal"`
}

// Notifier delivers failure notifications. Implementations are
// fire-and-forget and must never block the pipeline.
type Notifier interface {
	SendFailure(ctx context.Context, n FailureNotification)
}

// NopNotifier discards all notifications. Used in tests and when no
// delivery target is configured.
type NopNotifier struct{}

// SendFailure discards the notification.
func (NopNotifier) SendFailure(ctx context.Context, n FailureNotification) {}

// WebhookNotifier posts notifications to a configured webhook URL in the
// background. Delivery errors are logged and dropped.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *logger.Logger
}

// NewWebhookNotifier creates a webhook notifier posting to url.
func NewWebhookNotifier(url string, timeout time.Duration, log *logger.Logger) *WebhookNotifier {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &WebhookNotifier{client: client, url: url, logger: log}
}

// SendFailure posts the notification without blocking the caller.
func (w *WebhookNotifier) SendFailure(ctx context.Context, n FailureNotification) {
	go func() {
		resp, err := w.client.R().
			SetBody(n).
			Post(w.url)
		if err != nil {
			w.logger.WithError(err).WithFields(logger.Fields{
				logger.FieldJobID:    n.JobID,
				logger.FieldSellerID: n.SellerID,
			}).Warn("Failure notification delivery failed")
			return
		}
		if resp.StatusCode() >= 300 {
			w.logger.WithFields(logger.Fields{
				logger.FieldJobID: n.JobID,
				"status":          resp.StatusCode(),
			}).Warn("Failure notification rejected by webhook")
		}
	}()
}
