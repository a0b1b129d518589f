// Package provider wraps the activity-feed management API: subscription
// lifecycle calls and content retrieval.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fr0stylo/auditfeed/internal/auth"
	"github.com/fr0stylo/auditfeed/internal/feed"
)

// TokenSource supplies and invalidates bearer tokens per resource audience.
type TokenSource interface {
	Token(ctx context.Context, resource string) (string, error)
	Invalidate(ctx context.Context, resource string)
}

// Config carries the provider endpoint settings.
type Config struct {
	BaseURL        string
	Resource       string
	PublisherID    string
	WebhookAddress string
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// Client talks to the activity-feed API on behalf of one tenant. The tenant
// id is resolved lazily from the first token's claims and is immutable for
// the process lifetime afterwards.
type Client struct {
	tokens     TokenSource
	httpClient *http.Client
	baseURL    string
	resource   string
	publisher  string
	webhook    string

	mu       sync.Mutex
	tenantID string
}

// NewClient constructs an activity-feed client.
func NewClient(tokens TokenSource, cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		tokens:     tokens,
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		resource:   cfg.Resource,
		publisher:  cfg.PublisherID,
		webhook:    cfg.WebhookAddress,
	}
}

// ListSubscriptions fetches the tenant's live subscription list.
func (c *Client) ListSubscriptions(ctx context.Context) ([]feed.Subscription, error) {
	requestURL, err := c.feedURL(ctx, "subscriptions/list", nil)
	if err != nil {
		return nil, err
	}
	body, err := c.call(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	var subscriptions []feed.Subscription
	if err := json.Unmarshal(body, &subscriptions); err != nil {
		return nil, fmt.Errorf("decode subscriptions: %w", err)
	}
	slog.Info("retrieved subscriptions", "count", len(subscriptions))
	return subscriptions, nil
}

// StartSubscription starts a subscription for the content type, registering
// this bridge's webhook address. A returned subscription whose status is not
// "enabled" is a warning, not a failure; the caller still gets the record.
func (c *Client) StartSubscription(ctx context.Context, contentType feed.ContentType) (feed.Subscription, error) {
	requestURL, err := c.feedURL(ctx, "subscriptions/start", url.Values{"contentType": {contentType.String()}})
	if err != nil {
		return feed.Subscription{}, err
	}
	payload, err := json.Marshal(feed.Subscription{Webhook: &feed.Webhook{Address: c.webhook}})
	if err != nil {
		return feed.Subscription{}, fmt.Errorf("encode start request: %w", err)
	}
	body, err := c.call(ctx, http.MethodPost, requestURL, payload)
	if err != nil {
		return feed.Subscription{}, err
	}
	var subscription feed.Subscription
	if err := json.Unmarshal(body, &subscription); err != nil {
		return feed.Subscription{}, fmt.Errorf("decode subscription: %w", err)
	}
	if !strings.EqualFold(subscription.Status, "enabled") {
		slog.Warn("new subscription is not enabled",
			"content_type", subscription.ContentType,
			"status", subscription.Status)
	} else {
		slog.Info("subscription started",
			"content_type", subscription.ContentType,
			"status", subscription.Status)
	}
	return subscription, nil
}

// StopSubscription stops the subscription for the content type.
func (c *Client) StopSubscription(ctx context.Context, contentType feed.ContentType) error {
	requestURL, err := c.feedURL(ctx, "subscriptions/stop", url.Values{"contentType": {contentType.String()}})
	if err != nil {
		return err
	}
	if _, err := c.call(ctx, http.MethodPost, requestURL, nil); err != nil {
		return err
	}
	slog.Info("subscription stopped", "content_type", contentType.String())
	return nil
}

// RetrieveContent fetches the log records published under a content id. The
// records stay opaque; they are forwarded to the ingestion backend verbatim.
func (c *Client) RetrieveContent(ctx context.Context, contentID string) (feed.Records, error) {
	tenant, err := c.tenant(ctx)
	if err != nil {
		return nil, err
	}
	requestURL := fmt.Sprintf("%s/api/v1.0/%s/activity/feed/audit/%s", c.baseURL, tenant, url.PathEscape(contentID))
	body, err := c.call(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	var records feed.Records
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode content %s: %w", contentID, err)
	}
	return records, nil
}

func (c *Client) feedURL(ctx context.Context, operation string, query url.Values) (string, error) {
	tenant, err := c.tenant(ctx)
	if err != nil {
		return "", err
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("PublisherIdentifier", c.publisher)
	return fmt.Sprintf("%s/api/v1.0/%s/activity/feed/%s?%s", c.baseURL, tenant, operation, query.Encode()), nil
}

// tenant resolves the tenant id from the token claims once and reuses it for
// every later call.
func (c *Client) tenant(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tenantID != "" {
		return c.tenantID, nil
	}
	token, err := c.tokens.Token(ctx, c.resource)
	if err != nil {
		return "", err
	}
	tenantID, err := auth.TenantID(token)
	if err != nil {
		return "", err
	}
	c.tenantID = tenantID
	slog.Info("resolved tenant id", "tenant_id", tenantID)
	return tenantID, nil
}

// call performs one authenticated request and returns the response body. A
// 401 invalidates the cached token before the error surfaces, so the next
// call re-authenticates; the failing call itself is not retried.
func (c *Client) call(ctx context.Context, method, requestURL string, payload []byte) ([]byte, error) {
	token, err := c.tokens.Token(ctx, c.resource)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if resp.StatusCode == http.StatusUnauthorized {
			c.tokens.Invalidate(ctx, c.resource)
		}
		return nil, apiError(resp.StatusCode, body)
	}
	return body, nil
}

func apiError(status int, body []byte) error {
	var parsed feed.APIError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Code != "" {
		return &APIError{StatusCode: status, Code: parsed.Error.Code, Message: parsed.Error.Message}
	}
	return &APIError{StatusCode: status}
}
