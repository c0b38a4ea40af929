package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultPostgresMaxConns = 10

type postgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgreSQL opens a pgx connection pool against the given URL.
func NewPostgreSQL(ctx context.Context, cfg PostgreSQLConfig) (Storage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgresql URL is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgresql URL: %w", err)
	}
	poolCfg.MaxConns = defaultPostgresMaxConns
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgresql pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgresql: %w", err)
	}
	return &postgresStorage{pool: pool}, nil
}

func (s *postgresStorage) Backend() Backend            { return BackendPostgreSQL }
func (s *postgresStorage) SQLiteDB() *sql.DB           { return nil }
func (s *postgresStorage) PostgreSQLPool() interface{} { return s.pool }
func (s *postgresStorage) MongoDatabase() interface{}  { return nil }

func (s *postgresStorage) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
