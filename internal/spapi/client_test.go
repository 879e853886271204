package spapi

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeTokens is a TokenProvider that counts refreshes.
type fakeTokens struct {
	tokens    []string
	calls     int
	refreshes int
	lost      bool
}

func (f *fakeTokens) GetValidAccessToken(ctx context.Context, key string, forceRefresh bool) (Token, error) {
	f.calls++
	if forceRefresh {
		f.refreshes++
	}
	if f.lost {
		return Token{Lost: true}, ErrAuthLost
	}
	idx := f.refreshes
	if idx >= len(f.tokens) {
		idx = len(f.tokens) - 1
	}
	return Token{AccessToken: f.tokens[idx]}, nil
}

func newTestClient(t *testing.T, handler http.Handler, tokens TokenProvider) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&ClientConfig{Endpoint: srv.URL, Timeout: 5 * time.Second}, tokens), srv
}

func TestClient_CreateReport(t *testing.T) {
	tokens := &fakeTokens{tokens: []string{"tok-1"}}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"reportId":"rpt-123"}`))
	}), tokens)

	id, err := client.CreateReport(context.Background(), "cred-a", &ReportRequest{
		ReportType:     ReportTypeSQP,
		MarketplaceIDs: []string{"ATVPDKIKX0DER"},
	})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if id != "rpt-123" {
		t.Errorf("report id = %q, want rpt-123", id)
	}
}

func TestClient_UnauthorizedTriggersSingleRefresh(t *testing.T) {
	tokens := &fakeTokens{tokens: []string{"expired", "fresh"}}

	var authsSeen []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authsSeen = append(authsSeen, r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"reportId":"r1","processingStatus":"DONE","reportDocumentId":"doc-1"}`))
	}), tokens)

	res, err := client.GetReportStatus(context.Background(), "cred-a", "r1")
	if err != nil {
		t.Fatalf("GetReportStatus: %v", err)
	}
	if res.Status != StatusReady || res.DocumentID != "doc-1" {
		t.Errorf("result = %+v, want READY/doc-1", res)
	}
	if tokens.refreshes != 1 {
		t.Errorf("refreshes = %d, want exactly 1", tokens.refreshes)
	}
	if len(authsSeen) != 2 {
		t.Errorf("requests = %d, want 2 (original + single retry)", len(authsSeen))
	}
}

func TestClient_AuthLostIsNotRetried(t *testing.T) {
	tokens := &fakeTokens{tokens: []string{"tok"}, lost: true}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the API when authorization is lost")
	}), tokens)

	_, err := client.GetReportStatus(context.Background(), "cred-a", "r1")
	if !errors.Is(err, ErrAuthLost) {
		t.Errorf("err = %v, want ErrAuthLost", err)
	}
}

func TestClient_StatusNormalization(t *testing.T) {
	tests := []struct {
		wire string
		want ReportStatus
	}{
		{"IN_QUEUE", StatusQueued},
		{"IN_PROGRESS", StatusInProgress},
		{"DONE", StatusReady},
		{"CANCELLED", StatusCancelled},
		{"FATAL", StatusFatal},
	}
	for _, tt := range tests {
		if got := normalizeStatus(tt.wire); got != tt.want {
			t.Errorf("normalizeStatus(%q) = %q, want %q", tt.wire, got, tt.want)
		}
	}
}

func TestClient_FetchDocumentGzip(t *testing.T) {
	payload := []byte(`{"dataByAsin":[]}`)
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write(payload)
	gz.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{Endpoint: "http://unused.example"}, &fakeTokens{tokens: []string{"t"}})
	data, err := client.FetchDocument(context.Background(), &DocumentMeta{URL: srv.URL, Compression: "GZIP"})
	if err != nil {
		t.Fatalf("FetchDocument: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("data = %s, want %s", data, payload)
	}
}

func TestParseSQPReport(t *testing.T) {
	body := []byte(`{"dataByAsin":[{"asin":"B000TEST01","searchQueryData":{"searchQuery":"widget","searchQueryVolume":120},"impressionData":{"asinImpressionCount":40},"clickData":{"asinClickCount":3},"cartAddData":{"asinCartAddCount":1},"purchaseData":{"asinPurchaseCount":1}}]}`)

	records, err := ParseSQPReport(body)
	if err != nil {
		t.Fatalf("ParseSQPReport: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.ASIN != "B000TEST01" || rec.SearchQuery.Query != "widget" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Impressions.ASINCount != 40 || rec.Clicks.ASINCount != 3 {
		t.Errorf("unexpected counts: %+v", rec)
	}
}

func TestParseSQPReport_Empty(t *testing.T) {
	for _, body := range [][]byte{nil, []byte(`{}`), []byte(`{"dataByAsin":[]}`), []byte(`[]`)} {
		records, err := ParseSQPReport(body)
		if err != nil {
			t.Errorf("ParseSQPReport(%s): %v", body, err)
		}
		if len(records) != 0 {
			t.Errorf("ParseSQPReport(%s) = %d records, want 0", body, len(records))
		}
	}
}
