package feed

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrUnknownContentType indicates a wire string outside the known mapping.
var ErrUnknownContentType = errors.New("unknown content type")

// Webhook is the provider's record of a subscription's delivery endpoint.
type Webhook struct {
	Status     string     `json:"status,omitempty"`
	Address    string     `json:"address"`
	AuthID     string     `json:"authId,omitempty"`
	Expiration *time.Time `json:"expiration,omitempty"`
}

// Subscription is the provider-side record that the tenant receives a content
// type's notifications. It is always fetched fresh, never owned locally.
type Subscription struct {
	ContentType string   `json:"contentType,omitempty"`
	Status      string   `json:"status,omitempty"`
	Webhook     *Webhook `json:"webhook,omitempty"`
}

// ContentNotification is one item of an inbound notification batch, naming a
// content id whose log payload is available for retrieval.
type ContentNotification struct {
	TenantID          string    `json:"tenantId"`
	ClientID          string    `json:"clientId"`
	ContentType       string    `json:"contentType"`
	ContentID         string    `json:"contentId"`
	ContentURI        string    `json:"contentUri"`
	ContentCreated    time.Time `json:"contentCreated"`
	ContentExpiration time.Time `json:"contentExpiration"`
}

// Records is one retrieved content batch. Payloads are opaque and forwarded
// verbatim; the bridge never interprets individual log entries.
type Records []json.RawMessage

// APIError is the structured error body some provider responses carry.
type APIError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
