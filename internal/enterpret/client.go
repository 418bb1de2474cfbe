// Package enterpret is the HTTP client for the Enterpret feedback-analytics
// API: single-record and batch feedback import with local payload validation.
package enterpret

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sayamjn/enterpret-gladly/internal/httpx"
	"github.com/sayamjn/enterpret-gladly/internal/models"
)

// Config holds the Enterpret connection settings.
type Config struct {
	BaseURL string
	APIKey  string
}

// ValidationError reports a record rejected before any network activity.
// It is a data error, distinct from transport failures.
type ValidationError struct {
	RecordID string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid feedback record %q: %s", e.RecordID, e.Reason)
}

// ImportResponse is the API acknowledgment for an import call.
type ImportResponse struct {
	Accepted int    `json:"accepted"`
	Status   string `json:"status,omitempty"`
}

// Client talks to the Enterpret REST API with API-key auth. All calls go
// through the shared 429 replay wrapper.
type Client struct {
	cfg  Config
	doer *httpx.RateLimitDoer
	log  *slog.Logger
}

// NewClient creates an Enterpret client.
func NewClient(cfg Config, log *slog.Logger) *Client {
	return &Client{
		cfg:  cfg,
		doer: httpx.NewRateLimitDoer(&http.Client{}, log),
		log:  log,
	}
}

// SetSleep overrides the rate-limit sleep function, for tests.
func (c *Client) SetSleep(sleep func(time.Duration)) {
	c.doer.SetSleep(sleep)
}

// ValidateConnection checks the status endpoint with the configured key.
func (c *Client) ValidateConnection(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/status", nil)
	if err != nil {
		return err
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("enterpret connection: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("enterpret connection: unexpected status %s", resp.Status)
	}
	return nil
}

// ImportFeedback delivers a single record. The record is validated locally
// first; an invalid record never reaches the network.
func (c *Client) ImportFeedback(ctx context.Context, rec models.FeedbackRecord) (*ImportResponse, error) {
	if err := validateRecord(rec); err != nil {
		return nil, err
	}
	return c.post(ctx, "/v1/feedback", rec)
}

// ImportFeedbackBatch delivers several records in one call. Every record is
// validated before anything is sent; an empty batch is a programming error.
func (c *Client) ImportFeedbackBatch(ctx context.Context, recs []models.FeedbackRecord) (*ImportResponse, error) {
	if len(recs) == 0 {
		return nil, fmt.Errorf("import batch: no records given")
	}
	for _, rec := range recs {
		if err := validateRecord(rec); err != nil {
			return nil, err
		}
	}
	return c.post(ctx, "/v1/feedback/batch", map[string]any{"records": recs})
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*ImportResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("post %s: %s - %s", path, resp.Status, strings.TrimSpace(string(respBody)))
	}

	out := &ImportResponse{Accepted: 1, Status: "ok"}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			c.log.Debug("unparseable import response, assuming accepted", "error", err)
		}
	}
	return out, nil
}

// validateRecord enforces the minimum payload contract: id, source,
// timestamp, and at least one of content/metadata.
func validateRecord(rec models.FeedbackRecord) error {
	switch {
	case rec.ID == "":
		return &ValidationError{RecordID: rec.ID, Reason: "missing id"}
	case rec.Source == "":
		return &ValidationError{RecordID: rec.ID, Reason: "missing source"}
	case rec.Timestamp.IsZero():
		return &ValidationError{RecordID: rec.ID, Reason: "missing timestamp"}
	case rec.Content == "" && len(rec.Metadata) == 0:
		return &ValidationError{RecordID: rec.ID, Reason: "needs content or metadata"}
	}
	return nil
}
