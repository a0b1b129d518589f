// Package ingest ships retrieved log batches to the log-analytics ingestion
// API under a signed transport.
package ingest

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

	"github.com/fr0stylo/auditfeed/internal/feed"
)

// TokenSource supplies and invalidates bearer tokens per resource audience.
type TokenSource interface {
	Token(ctx context.Context, resource string) (string, error)
	Invalidate(ctx context.Context, resource string)
}

// Error is a non-2xx response from the ingestion API.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ingest: %s - %d", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("ingest: status %d", e.StatusCode)
}

type ingestErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Config carries the ingestion endpoint settings.
type Config struct {
	Endpoint string
	// Resource is the token audience invalidated on a 401 response.
	Resource   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Shipper sends one batch of log records per content id. Batches are never
// split or merged, and a failed batch is reported and dropped; retry is the
// caller's concern.
type Shipper struct {
	signer     Signer
	tokens     TokenSource
	httpClient *http.Client
	endpoint   string
	resource   string
}

// NewShipper constructs a log shipper with the supplied signer.
func NewShipper(signer Signer, tokens TokenSource, cfg Config) *Shipper {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Shipper{
		signer:     signer,
		tokens:     tokens,
		httpClient: httpClient,
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		resource:   cfg.Resource,
	}
}

// TableName derives the ingestion table for a content-type wire string. The
// mapping is fixed: separators become underscores plus the custom-log suffix,
// identical on every call.
func TableName(contentType string) string {
	return strings.ReplaceAll(contentType, ".", "_") + "_CL"
}

// Send ships the records retrieved for one content id, tagged with the
// content-type-derived table name.
func (s *Shipper) Send(ctx context.Context, records feed.Records, contentType string) error {
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode log batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Log-Type", TableName(contentType))
	req.Header.Set("x-ms-date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("time-generated-field", "CreationTime")
	if err := s.signer.Sign(req, body); err != nil {
		return err
	}

	slog.Info("sending log batch", "content_type", contentType, "records", len(records))
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if resp.StatusCode == http.StatusUnauthorized && s.tokens != nil {
			s.tokens.Invalidate(ctx, s.resource)
		}
		return ingestError(resp)
	}
	return nil
}

func ingestError(resp *http.Response) error {
	payload, _ := io.ReadAll(resp.Body)
	var parsed ingestErrorBody
	if err := json.Unmarshal(payload, &parsed); err == nil && parsed.Message != "" {
		return &Error{StatusCode: resp.StatusCode, Message: parsed.Message}
	}
	return &Error{StatusCode: resp.StatusCode}
}
