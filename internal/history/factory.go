package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"keymate/config"
	"keymate/internal/storage"
)

// Result holds the initialized history store and its storage connection.
// The caller is responsible for calling Close() to release resources.
type Result struct {
	Store   Store
	Storage storage.Storage
}

// Close releases the store and its storage connection.
// Safe to call multiple times.
func (r *Result) Close() error {
	var errs []error
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}
	if r.Storage != nil {
		if err := r.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// New creates a history store from configuration. If history is disabled it
// returns a NoopStore with nil storage.
func New(ctx context.Context, cfg *config.Config) (*Result, error) {
	if !cfg.History.Enabled {
		return &Result{Store: NoopStore{}}, nil
	}

	store, err := storage.New(ctx, buildStorageConfig(cfg.History))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	historyStore, err := createStore(store)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Result{Store: historyStore, Storage: store}, nil
}

// NewWithSharedStorage creates a history store over an existing storage
// connection. The caller keeps ownership of the storage.
func NewWithSharedStorage(store storage.Storage) (*Result, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	historyStore, err := createStore(store)
	if err != nil {
		return nil, err
	}
	return &Result{Store: historyStore}, nil
}

func buildStorageConfig(cfg config.HistoryConfig) storage.Config {
	switch storage.Backend(cfg.Backend) {
	case storage.BackendPostgreSQL:
		return storage.Config{
			Backend:    storage.BackendPostgreSQL,
			PostgreSQL: storage.PostgreSQLConfig{URL: cfg.PostgresURL},
		}
	case storage.BackendMongoDB:
		return storage.Config{
			Backend: storage.BackendMongoDB,
			MongoDB: storage.MongoDBConfig{URL: cfg.MongoURL, Database: cfg.MongoDatabase},
		}
	default:
		return storage.Config{
			Backend: storage.BackendSQLite,
			SQLite:  storage.SQLiteConfig{Path: cfg.SQLitePath},
		}
	}
}

func createStore(store storage.Storage) (Store, error) {
	switch store.Backend() {
	case storage.BackendSQLite:
		return NewSQLiteStore(store.SQLiteDB())
	case storage.BackendPostgreSQL:
		pool, ok := store.PostgreSQLPool().(*pgxpool.Pool)
		if !ok || pool == nil {
			return nil, fmt.Errorf("postgresql storage returned no pool")
		}
		return NewPostgreSQLStore(pool)
	case storage.BackendMongoDB:
		db, ok := store.MongoDatabase().(*mongo.Database)
		if !ok || db == nil {
			return nil, fmt.Errorf("mongodb storage returned no database")
		}
		return NewMongoDBStore(db)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", store.Backend())
	}
}
