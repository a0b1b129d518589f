package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/fr0stylo/auditfeed/internal/webhooks/content"
)

// WebhookRoutes registers the provider webhook endpoint.
type WebhookRoutes struct {
	content *content.Handler
}

// NewWebhookRoutes constructs webhook routes.
func NewWebhookRoutes(retriever content.ContentRetriever, sink content.LogSink, deliveries content.DeliveryLog) *WebhookRoutes {
	return &WebhookRoutes{
		content: content.NewHandler(retriever, sink, deliveries),
	}
}

// RegisterRoutes registers webhook endpoints.
func (w *WebhookRoutes) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/content", w.handleContentWebhook)
}

func (w *WebhookRoutes) handleContentWebhook(c echo.Context) error {
	return w.content.Handle(c.Response(), c.Request())
}
