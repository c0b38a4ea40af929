package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"keymate/internal/core"
)

// PostgreSQLStore implements Store for PostgreSQL databases.
type PostgreSQLStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLStore creates a PostgreSQL history store, creating the table
// and indexes if they don't exist.
func NewPostgreSQLStore(pool *pgxpool.Pool) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS detection_history (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			fingerprint TEXT NOT NULL,
			provider TEXT NOT NULL,
			valid BOOLEAN NOT NULL DEFAULT FALSE,
			failure_class TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			duration_ms BIGINT NOT NULL DEFAULT 0
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
		if _, err := pool.Exec(ctx, idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	return &PostgreSQLStore{pool: pool}, nil
}

// Record writes one detection entry.
func (s *PostgreSQLStore) Record(ctx context.Context, entry *Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO detection_history
			(id, timestamp, fingerprint, provider, valid, failure_class, message, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.Timestamp, entry.Fingerprint, string(entry.Provider),
		entry.Valid, entry.FailureClass, entry.Message, entry.DurationMs)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *PostgreSQLStore) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, timestamp, fingerprint, provider, valid, failure_class, message, duration_ms
		FROM detection_history
		ORDER BY timestamp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var provider string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Fingerprint, &provider, &e.Valid,
			&e.FailureClass, &e.Message, &e.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Provider = core.ProviderID(provider)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return entries, nil
}

// Close is a no-op; the shared storage owns the pool.
func (s *PostgreSQLStore) Close() error {
	return nil
}
