package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure-Go driver, no cgo
)

const defaultSQLitePath = "data/keymate.db"

type sqliteStorage struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the sqlite database file. WAL mode
// keeps concurrent history reads from blocking on a write; a 5s busy timeout
// covers writer contention across processes.
func NewSQLite(cfg SQLiteConfig) (Storage, error) {
	path := cfg.Path
	if path == "" {
		path = defaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	// sqlite allows one writer; a single shared connection avoids
	// SQLITE_BUSY churn under the history store's write pattern.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database %s: %w", path, err)
	}
	return &sqliteStorage{db: db}, nil
}

func (s *sqliteStorage) Backend() Backend            { return BackendSQLite }
func (s *sqliteStorage) SQLiteDB() *sql.DB           { return s.db }
func (s *sqliteStorage) PostgreSQLPool() interface{} { return nil }
func (s *sqliteStorage) MongoDatabase() interface{}  { return nil }

func (s *sqliteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
