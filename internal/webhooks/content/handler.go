// Package content implements the provider webhook protocol: the
// challenge/response validation handshake and the content-notification
// fan-out.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/fr0stylo/auditfeed/internal/feed"
	"github.com/fr0stylo/auditfeed/internal/journal"
	"github.com/fr0stylo/auditfeed/internal/observability"
)

const (
	// ValidationCodeHeader marks a webhook validation request.
	ValidationCodeHeader = "Webhook-ValidationCode"
	maxPayloadBytes      = 1 << 20
)

// ContentRetriever fetches the log records behind a content id.
type ContentRetriever interface {
	RetrieveContent(ctx context.Context, contentID string) (feed.Records, error)
}

// LogSink forwards one retrieved batch to the ingestion backend.
type LogSink interface {
	Send(ctx context.Context, records feed.Records, contentType string) error
}

// DeliveryLog records per-batch delivery outcomes.
type DeliveryLog interface {
	Record(ctx context.Context, entry journal.Entry) error
}

type validationBody struct {
	ValidationCode string `json:"validationCode"`
}

// Handler processes inbound webhook requests.
type Handler struct {
	retriever ContentRetriever
	sink      LogSink
	journal   DeliveryLog
}

// NewHandler constructs a webhook handler. The journal may be nil.
func NewHandler(retriever ContentRetriever, sink LogSink, deliveries DeliveryLog) *Handler {
	return &Handler{retriever: retriever, sink: sink, journal: deliveries}
}

// Handle dispatches one inbound request. A request carrying the validation
// header is a challenge; everything else is a content notification.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) error {
	if codes := r.Header.Values(ValidationCodeHeader); len(codes) > 0 {
		return h.handleValidation(w, r, codes[0])
	}
	return h.handleNotification(w, r)
}

// handleValidation succeeds only when the header code and the body code are
// both present and equal. Case matters.
func (h *Handler) handleValidation(w http.ResponseWriter, r *http.Request, code string) error {
	slog.Info("webhook validation request")

	if code == "" {
		slog.Error("validation code header is empty")
		http.Error(w, "empty validation code", http.StatusBadRequest)
		return nil
	}

	var body validationBody
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxPayloadBytes))
	if err := decoder.Decode(&body); err != nil {
		http.Error(w, "invalid validation payload", http.StatusBadRequest)
		return nil
	}
	if body.ValidationCode == "" || body.ValidationCode != code {
		slog.Error("validation codes do not match")
		http.Error(w, "validation codes do not match", http.StatusBadRequest)
		return nil
	}

	slog.Info("webhook validation passed")
	w.WriteHeader(http.StatusOK)
	return nil
}

// handleNotification retrieves and ships every notified content item in
// parallel and waits for all of them. Partial success is not reported
// per item: any failure fails the whole request, but siblings still run to
// completion.
func (h *Handler) handleNotification(w http.ResponseWriter, r *http.Request) error {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil || len(bytes.TrimSpace(payload)) == 0 {
		http.Error(w, "missing notification payload", http.StatusBadRequest)
		return nil
	}

	var notifications []feed.ContentNotification
	if err := json.Unmarshal(payload, &notifications); err != nil {
		http.Error(w, "invalid notification payload", http.StatusBadRequest)
		return nil
	}
	if len(notifications) == 0 {
		http.Error(w, "empty notification payload", http.StatusBadRequest)
		return nil
	}

	slog.Info("content notification received", "count", len(notifications))

	ctx := r.Context()
	results := make([]error, len(notifications))
	var wg sync.WaitGroup
	for i, notification := range notifications {
		wg.Add(1)
		go func(i int, notification feed.ContentNotification) {
			defer wg.Done()
			results[i] = h.deliver(ctx, notification)
		}(i, notification)
	}
	wg.Wait()

	if err := errors.Join(results...); err != nil {
		slog.Error("content notification failed", "error", err)
		http.Error(w, "failed to forward content", http.StatusInternalServerError)
		return nil
	}

	slog.Info("content notification processed", "count", len(notifications))
	w.WriteHeader(http.StatusOK)
	return nil
}

func (h *Handler) deliver(ctx context.Context, notification feed.ContentNotification) error {
	ctx, span := observability.StartDeliverySpan(ctx, notification.ContentID, notification.ContentType)
	defer span.End()

	err := h.deliverOnce(ctx, notification)
	span.RecordError(err)
	return err
}

func (h *Handler) deliverOnce(ctx context.Context, notification feed.ContentNotification) error {
	records, err := h.retriever.RetrieveContent(ctx, notification.ContentID)
	if err != nil {
		h.record(ctx, notification, 0, err)
		return err
	}
	if err := h.sink.Send(ctx, records, notification.ContentType); err != nil {
		h.record(ctx, notification, len(records), err)
		return err
	}
	h.record(ctx, notification, len(records), nil)
	return nil
}

// record journals the delivery outcome. Journal failures are logged only;
// the delivery result already stands on its own.
func (h *Handler) record(ctx context.Context, notification feed.ContentNotification, count int, deliveryErr error) {
	if h.journal == nil {
		return
	}
	entry := journal.Entry{
		ContentID:   notification.ContentID,
		ContentType: notification.ContentType,
		RecordCount: count,
		Status:      journal.StatusDelivered,
	}
	if deliveryErr != nil {
		entry.Status = journal.StatusFailed
		entry.Error = deliveryErr.Error()
	}
	if err := h.journal.Record(ctx, entry); err != nil {
		slog.Error("failed to journal delivery", "content_id", notification.ContentID, "error", err)
	}
}
