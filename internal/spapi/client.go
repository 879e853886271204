package spapi

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const reportsAPIPath = "/reports/2021-06-30"

// Client calls the external reporting API over HTTP. All calls carry a
// bearer token for the seller; a 401/403 response triggers exactly one
// forced credential refresh and a single retry of the same call.
type Client struct {
	http   *resty.Client
	tokens TokenProvider
}

// ClientConfig holds configuration for the reporting API client.
type ClientConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// NewClient creates a reporting API client.
func NewClient(cfg *ClientConfig, tokens TokenProvider) *Client {
	http := resty.New()
	http.SetBaseURL(strings.TrimSuffix(cfg.Endpoint, "/"))
	http.SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		http.SetTimeout(cfg.Timeout)
	}
	return &Client{http: http, tokens: tokens}
}

// doAuthorized runs call with a valid token, refreshing once on 401/403.
func (c *Client) doAuthorized(ctx context.Context, credentialKey string, call func(token string) (*resty.Response, error)) (*resty.Response, error) {
	token, err := c.tokens.GetValidAccessToken(ctx, credentialKey, false)
	if err != nil {
		return nil, err
	}
	resp, err := call(token.AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 401 && resp.StatusCode() != 403 {
		return resp, nil
	}

	token, err = c.tokens.GetValidAccessToken(ctx, credentialKey, true)
	if err != nil {
		return nil, err
	}
	if token.Lost {
		return nil, ErrAuthLost
	}
	return call(token.AccessToken)
}

type createReportResponse struct {
	ReportID string `json:"reportId"`
}

// CreateReport submits a report request for the seller and returns the
// external report identifier.
func (c *Client) CreateReport(ctx context.Context, credentialKey string, req *ReportRequest) (string, error) {
	var out createReportResponse
	resp, err := c.doAuthorized(ctx, credentialKey, func(token string) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetBody(req).
			SetResult(&out).
			Post(reportsAPIPath + "/reports")
	})
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 202 && resp.StatusCode() != 200 {
		return "", fmt.Errorf("create report: status %d: %s", resp.StatusCode(), resp.String())
	}
	if out.ReportID == "" {
		return "", fmt.Errorf("create report: empty report id in response")
	}
	return out.ReportID, nil
}

type reportStatusResponse struct {
	ReportID         string `json:"reportId"`
	ProcessingStatus string `json:"processingStatus"`
	ReportDocumentID string `json:"reportDocumentId"`
}

// normalizeStatus maps the wire statuses onto the engine's taxonomy.
func normalizeStatus(s string) ReportStatus {
	switch s {
	case "IN_QUEUE", "QUEUED":
		return StatusQueued
	case "IN_PROGRESS":
		return StatusInProgress
	case "DONE", "READY":
		return StatusReady
	case "CANCELLED":
		return StatusCancelled
	default:
		return StatusFatal
	}
}

// GetReportStatus polls the processing status of a report.
func (c *Client) GetReportStatus(ctx context.Context, credentialKey, reportID string) (*StatusResult, error) {
	var out reportStatusResponse
	resp, err := c.doAuthorized(ctx, credentialKey, func(token string) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetResult(&out).
			Get(reportsAPIPath + "/reports/" + reportID)
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("get report status: status %d: %s", resp.StatusCode(), resp.String())
	}
	return &StatusResult{
		Status:     normalizeStatus(out.ProcessingStatus),
		DocumentID: out.ReportDocumentID,
	}, nil
}

// GetDocument fetches the location metadata for a report document.
func (c *Client) GetDocument(ctx context.Context, credentialKey, documentID string) (*DocumentMeta, error) {
	var out DocumentMeta
	resp, err := c.doAuthorized(ctx, credentialKey, func(token string) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetResult(&out).
			Get(reportsAPIPath + "/documents/" + documentID)
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("get document: status %d: %s", resp.StatusCode(), resp.String())
	}
	if out.URL == "" {
		return nil, fmt.Errorf("get document: empty url for document %s", documentID)
	}
	return &out, nil
}

// FetchDocument retrieves the raw document bytes from its URL and
// decompresses them when the metadata indicates compression.
func (c *Client) FetchDocument(ctx context.Context, meta *DocumentMeta) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(meta.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("fetch document: status %d", resp.StatusCode())
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read document body: %w", err)
	}

	if strings.EqualFold(meta.Compression, "GZIP") {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open gzip document: %w", err)
		}
		defer gz.Close()
		data, err = io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("decompress document: %w", err)
		}
	}
	return data, nil
}
