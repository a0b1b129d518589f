package routes

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fr0stylo/auditfeed/internal/journal"
)

// DeliveryReader lists recent journaled deliveries.
type DeliveryReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// DeliveryRoutes exposes the delivery journal.
type DeliveryRoutes struct {
	deliveries DeliveryReader
}

// NewDeliveryRoutes constructs delivery-journal routes.
func NewDeliveryRoutes(deliveries DeliveryReader) *DeliveryRoutes {
	return &DeliveryRoutes{deliveries: deliveries}
}

// RegisterRoutes registers delivery endpoints.
func (d *DeliveryRoutes) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/deliveries", d.handleList)
}

func (d *DeliveryRoutes) handleList(c echo.Context) error {
	ctx := c.Request().Context()
	limit, _ := strconv.Atoi(strings.TrimSpace(c.QueryParam("limit")))
	entries, err := d.deliveries.Recent(ctx, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list deliveries", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list deliveries"})
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}
