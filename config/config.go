// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"keymate/internal/core"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig
	Probe     ProbeConfig
	Cache     CacheConfig
	History   HistoryConfig
	Metrics   MetricsConfig
	Log       LogConfig
	Providers ProvidersConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string

	// MasterKey protects every route except health and metrics. Empty
	// disables authentication (local development only).
	MasterKey string
}

// ProbeConfig bounds outbound provider probes.
type ProbeConfig struct {
	// Timeout bounds each single probe attempt.
	Timeout time.Duration

	// Concurrency is the fan-out width during detection. 1 probes
	// candidates strictly sequentially.
	Concurrency int
}

// CacheConfig selects and configures the snapshot cache.
type CacheConfig struct {
	// Type is "local", "redis", or "none".
	Type string

	// Dir is the directory for the local file cache.
	Dir string

	// TTL bounds snapshot freshness for both backends.
	TTL time.Duration

	// RedisURL is the Redis connection URL when Type is "redis".
	RedisURL string

	// RedisKeyPrefix namespaces snapshot keys in Redis.
	RedisKeyPrefix string
}

// HistoryConfig selects and configures the detection-history store.
type HistoryConfig struct {
	Enabled bool

	// Backend is "sqlite", "postgresql", or "mongodb".
	Backend string

	SQLitePath    string
	PostgresURL   string
	MongoURL      string
	MongoDatabase string
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

// LogConfig controls log output.
type LogConfig struct {
	// Format is "json" or "pretty".
	Format string
	Level  string
}

// ProvidersConfig carries per-provider endpoint overrides, keyed by provider
// id. Empty means the adapter's default base URL.
type ProvidersConfig struct {
	BaseURLs map[string]string
}

// Cache type constants
const (
	CacheTypeLocal = "local"
	CacheTypeRedis = "redis"
	CacheTypeNone  = "none"
)

// Load reads configuration from .env file and environment
func Load() (*Config, error) {
	// Load .env file using Viper (optional, won't fail if not found)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if .env file doesn't exist

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("PROBE_TIMEOUT", "10s")
	viper.SetDefault("PROBE_CONCURRENCY", 3)
	viper.SetDefault("CACHE_TYPE", CacheTypeLocal)
	viper.SetDefault("CACHE_DIR", ".cache")
	viper.SetDefault("CACHE_TTL", "1h")
	viper.SetDefault("REDIS_KEY_PREFIX", "keymate:snapshot:")
	viper.SetDefault("HISTORY_ENABLED", true)
	viper.SetDefault("HISTORY_BACKEND", "sqlite")
	viper.SetDefault("HISTORY_SQLITE_PATH", "data/keymate.db")
	viper.SetDefault("HISTORY_MONGO_DATABASE", "keymate")
	viper.SetDefault("METRICS_ENABLED", true)
	viper.SetDefault("METRICS_ENDPOINT", "/metrics")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LOG_LEVEL", "info")

	// Enable automatic environment variable reading
	viper.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("PORT"),
			MasterKey: viper.GetString("MASTER_KEY"),
		},
		Probe: ProbeConfig{
			Timeout:     viper.GetDuration("PROBE_TIMEOUT"),
			Concurrency: viper.GetInt("PROBE_CONCURRENCY"),
		},
		Cache: CacheConfig{
			Type:           viper.GetString("CACHE_TYPE"),
			Dir:            viper.GetString("CACHE_DIR"),
			TTL:            viper.GetDuration("CACHE_TTL"),
			RedisURL:       viper.GetString("REDIS_URL"),
			RedisKeyPrefix: viper.GetString("REDIS_KEY_PREFIX"),
		},
		History: HistoryConfig{
			Enabled:       viper.GetBool("HISTORY_ENABLED"),
			Backend:       viper.GetString("HISTORY_BACKEND"),
			SQLitePath:    viper.GetString("HISTORY_SQLITE_PATH"),
			PostgresURL:   viper.GetString("HISTORY_POSTGRES_URL"),
			MongoURL:      viper.GetString("HISTORY_MONGO_URL"),
			MongoDatabase: viper.GetString("HISTORY_MONGO_DATABASE"),
		},
		Metrics: MetricsConfig{
			Enabled:  viper.GetBool("METRICS_ENABLED"),
			Endpoint: viper.GetString("METRICS_ENDPOINT"),
		},
		Log: LogConfig{
			Format: viper.GetString("LOG_FORMAT"),
			Level:  viper.GetString("LOG_LEVEL"),
		},
		Providers: ProvidersConfig{
			BaseURLs: providerBaseURLs(),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// providerBaseURLs collects <PROVIDER>_BASE_URL overrides for every known
// provider id.
func providerBaseURLs() map[string]string {
	ids := []core.ProviderID{
		core.ProviderOpenAI,
		core.ProviderGemini,
		core.ProviderDeepseek,
		core.ProviderClaude,
		core.ProviderGrok,
		core.ProviderGroq,
	}
	urls := make(map[string]string)
	for _, id := range ids {
		key := strings.ToUpper(string(id)) + "_BASE_URL"
		if v := viper.GetString(key); v != "" {
			urls[string(id)] = v
		}
	}
	return urls
}

func (c *Config) validate() error {
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("PROBE_TIMEOUT must be positive, got %s", c.Probe.Timeout)
	}
	if c.Probe.Concurrency < 1 {
		return fmt.Errorf("PROBE_CONCURRENCY must be at least 1, got %d", c.Probe.Concurrency)
	}
	switch c.Cache.Type {
	case CacheTypeLocal, CacheTypeNone:
	case CacheTypeRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CACHE_TYPE is redis")
		}
	default:
		return fmt.Errorf("unknown CACHE_TYPE: %s (valid: local, redis, none)", c.Cache.Type)
	}
	return nil
}
