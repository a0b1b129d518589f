package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fr0stylo/auditfeed/internal/feed"
	"github.com/fr0stylo/auditfeed/internal/provider"
)

// SubscriptionLister is the read side of the activity-feed client.
type SubscriptionLister interface {
	ListSubscriptions(ctx context.Context) ([]feed.Subscription, error)
}

// SubscriptionReconciler drives the desired-state diff on demand.
type SubscriptionReconciler interface {
	Reconcile(ctx context.Context, desired []feed.ContentType) ([]feed.Subscription, error)
}

// subscriptionView is the simplified list item exposed over HTTP.
type subscriptionView struct {
	ContentType   string `json:"contentType"`
	Status        string `json:"status"`
	WebhookStatus string `json:"webhookStatus,omitempty"`
}

// SubscriptionRoutes exposes the subscription list and on-demand reconcile
// endpoints.
type SubscriptionRoutes struct {
	lister     SubscriptionLister
	reconciler SubscriptionReconciler
	desired    []feed.ContentType
}

// NewSubscriptionRoutes constructs subscription routes.
func NewSubscriptionRoutes(lister SubscriptionLister, reconciler SubscriptionReconciler, desired []feed.ContentType) *SubscriptionRoutes {
	return &SubscriptionRoutes{lister: lister, reconciler: reconciler, desired: desired}
}

// RegisterRoutes registers subscription endpoints.
func (s *SubscriptionRoutes) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/subscriptions", s.handleList)
	e.GET("/api/subscribe", s.handleSubscribe)
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
}

func (s *SubscriptionRoutes) handleList(c echo.Context) error {
	ctx := c.Request().Context()
	subscriptions, err := s.lister.ListSubscriptions(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list subscriptions", "error", err)
		return c.JSON(statusFor(err), map[string]string{"error": "failed to list subscriptions"})
	}
	if len(subscriptions) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no subscriptions"})
	}

	views := make([]subscriptionView, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		view := subscriptionView{
			ContentType: subscription.ContentType,
			Status:      subscription.Status,
		}
		if subscription.Webhook != nil {
			view.WebhookStatus = subscription.Webhook.Status
		}
		views = append(views, view)
	}
	return c.JSON(http.StatusOK, views)
}

// handleSubscribe runs reconciliation synchronously and reports the newly
// started subscriptions. A partial failure still reports what was started.
func (s *SubscriptionRoutes) handleSubscribe(c echo.Context) error {
	ctx := c.Request().Context()
	started, err := s.reconciler.Reconcile(ctx, s.desired)
	if err != nil {
		slog.ErrorContext(ctx, "on-demand reconciliation failed", "error", err, "started", len(started))
		return c.JSON(statusFor(err), map[string]any{
			"error":   err.Error(),
			"started": started,
		})
	}
	if started == nil {
		started = []feed.Subscription{}
	}
	return c.JSON(http.StatusOK, started)
}

func statusFor(err error) int {
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusInternalServerError {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
