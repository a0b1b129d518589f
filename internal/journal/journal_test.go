package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "journal"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecentRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entries := []Entry{
		{ContentID: "c-1", ContentType: "Audit.Exchange", RecordCount: 12, Status: StatusDelivered},
		{ContentID: "c-2", ContentType: "Audit.General", RecordCount: 0, Status: StatusFailed, Error: "content expired"},
	}
	for _, entry := range entries {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	listed, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(listed))
	}
	byContentID := make(map[string]Entry, len(listed))
	for _, entry := range listed {
		if entry.ID == "" {
			t.Errorf("entry id not assigned: %+v", entry)
		}
		if entry.CreatedAt.IsZero() || time.Since(entry.CreatedAt) > time.Minute {
			t.Errorf("implausible created_at: %+v", entry)
		}
		byContentID[entry.ContentID] = entry
	}
	if got := byContentID["c-1"]; got.Status != StatusDelivered || got.RecordCount != 12 {
		t.Errorf("unexpected delivered entry: %+v", got)
	}
	if got := byContentID["c-2"]; got.Status != StatusFailed || got.Error != "content expired" {
		t.Errorf("unexpected failed entry: %+v", got)
	}
}

func TestRecentHonorsLimitAndOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Record(ctx, Entry{ContentID: "c", ContentType: "Audit.General", Status: StatusDelivered}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	listed, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected limit to apply, got %d entries", len(listed))
	}
	for i := 1; i < len(listed); i++ {
		if listed[i].CreatedAt.After(listed[i-1].CreatedAt) {
			t.Fatalf("entries not newest-first: %+v", listed)
		}
	}
}

func TestRecentDefaultsLimit(t *testing.T) {
	store := openTestStore(t)
	if err := store.Record(context.Background(), Entry{ContentID: "c-1", Status: StatusDelivered}); err != nil {
		t.Fatalf("record: %v", err)
	}
	listed, err := store.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(listed))
	}
}
