package storage

import (
	"context"
	"database/sql"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultMongoDatabase = "keymate"

type mongoStorage struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoDB connects to the given mongodb URL and selects the configured
// database.
func NewMongoDB(ctx context.Context, cfg MongoDBConfig) (Storage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mongodb URL is required")
	}
	name := cfg.Database
	if name == "" {
		name = defaultMongoDatabase
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &mongoStorage{client: client, database: client.Database(name)}, nil
}

func (s *mongoStorage) Backend() Backend            { return BackendMongoDB }
func (s *mongoStorage) SQLiteDB() *sql.DB           { return nil }
func (s *mongoStorage) PostgreSQLPool() interface{} { return nil }
func (s *mongoStorage) MongoDatabase() interface{}  { return s.database }

func (s *mongoStorage) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}
