// Package journal keeps an operational history of forwarded log batches.
// Subscription and token state stay in-memory; only delivery outcomes are
// persisted.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	// SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/fr0stylo/auditfeed/internal/observability"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const driver = "sqlite"

// Delivery status values.
const (
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Entry is one journaled delivery outcome.
type Entry struct {
	ID          string    `json:"id"`
	ContentID   string    `json:"contentId"`
	ContentType string    `json:"contentType"`
	RecordCount int       `json:"recordCount"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store is the SQLite-backed delivery journal.
type Store struct {
	db *sql.DB
}

// Open opens the journal database at the provided path, applying pending
// migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "data/auditfeed"
	}
	db, err := sql.Open(driver, sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(driver); err != nil {
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

func sqliteDSN(path string) string {
	values := url.Values{}
	values.Add("_pragma", "journal_mode(WAL)")
	values.Add("_pragma", "synchronous(NORMAL)")
	values.Add("_pragma", "busy_timeout(5000)")
	values.Add("_pragma", "temp_store(MEMORY)")
	return fmt.Sprintf("file:%s.sqlite?%s", path, values.Encode())
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one delivery outcome. The entry id and timestamp are
// assigned here.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	ctx, span := observability.StartJournalSpan(ctx, "record")
	defer span.End()

	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (id, content_id, content_type, record_count, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ContentID, entry.ContentType, entry.RecordCount, entry.Status, entry.Error, entry.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// Recent returns the latest delivery entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, span := observability.StartJournalSpan(ctx, "recent")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_id, content_type, record_count, status, error, created_at
		 FROM deliveries ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.ID, &entry.ContentID, &entry.ContentType,
			&entry.RecordCount, &entry.Status, &entry.Error, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
