package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/fr0stylo/auditfeed/internal/journal"
)

type fakeDeliveries struct {
	entries []journal.Entry
	err     error
	limit   int
}

func (f *fakeDeliveries) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	f.limit = limit
	return f.entries, f.err
}

func TestDeliveriesListPassesLimit(t *testing.T) {
	t.Parallel()

	deliveries := &fakeDeliveries{entries: []journal.Entry{
		{ID: "d-1", ContentID: "c-1", ContentType: "Audit.Exchange", Status: journal.StatusDelivered},
	}}
	e := echo.New()
	NewDeliveryRoutes(deliveries).RegisterRoutes(e)

	recorder := httptest.NewRecorder()
	e.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/deliveries?limit=5", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	if deliveries.limit != 5 {
		t.Fatalf("limit = %d, want 5", deliveries.limit)
	}

	var entries []journal.Entry
	if err := json.Unmarshal(recorder.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "d-1" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestDeliveriesListEmptyIsArray(t *testing.T) {
	t.Parallel()

	e := echo.New()
	NewDeliveryRoutes(&fakeDeliveries{}).RegisterRoutes(e)

	recorder := httptest.NewRecorder()
	e.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/deliveries", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	if body := recorder.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty JSON array, got %q", body)
	}
}

func TestDeliveriesListFailure(t *testing.T) {
	t.Parallel()

	e := echo.New()
	NewDeliveryRoutes(&fakeDeliveries{err: errors.New("db closed")}).RegisterRoutes(e)

	recorder := httptest.NewRecorder()
	e.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/deliveries", nil))
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", recorder.Code)
	}
}
