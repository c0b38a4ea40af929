package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"keymate/internal/core"
)

// SQLiteStore implements Store for SQLite databases.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite history store, creating the table and
// indexes if they don't exist.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS detection_history (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			fingerprint TEXT NOT NULL,
			provider TEXT NOT NULL,
			valid INTEGER NOT NULL DEFAULT 0,
			failure_class TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_history_timestamp ON detection_history(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_history_fingerprint ON detection_history(fingerprint)",
		"CREATE INDEX IF NOT EXISTS idx_history_provider ON detection_history(provider)",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Record writes one detection entry.
func (s *SQLiteStore) Record(ctx context.Context, entry *Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO detection_history
			(id, timestamp, fingerprint, provider, valid, failure_class, message, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Timestamp, entry.Fingerprint, string(entry.Provider),
		boolToInt(entry.Valid), entry.FailureClass, entry.Message, entry.DurationMs)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, fingerprint, provider, valid, failure_class, message, duration_ms
		FROM detection_history
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var provider string
		var valid int
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Fingerprint, &provider, &valid,
			&e.FailureClass, &e.Message, &e.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Provider = core.ProviderID(provider)
		e.Valid = valid != 0
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return entries, nil
}

// Close is a no-op; the shared storage owns the connection.
func (s *SQLiteStore) Close() error {
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
