// Package main is the entry point for the credential detection server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"keymate/config"
	"keymate/internal/cache"
	"keymate/internal/detect"
	"keymate/internal/history"
	"keymate/internal/observability"
	"keymate/internal/providers"

	// Import provider packages to trigger their init() registration
	_ "keymate/internal/providers/claude"
	_ "keymate/internal/providers/deepseek"
	_ "keymate/internal/providers/gemini"
	_ "keymate/internal/providers/grok"
	_ "keymate/internal/providers/groq"
	_ "keymate/internal/providers/openai"
	"keymate/internal/server"
	"keymate/internal/version"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Get())
		os.Exit(0)
	}

	// Load configuration first so logging can honor LOG_FORMAT
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg.Log)

	slog.Info("starting keymate",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	// Metrics must exist before the registry so adapters get the hooks
	var metrics *observability.Metrics
	var registryOpts providers.Options
	registryOpts.Timeout = cfg.Probe.Timeout
	registryOpts.BaseURLs = cfg.Providers.BaseURLs
	if cfg.Metrics.Enabled {
		metrics = observability.NewDefaultMetrics()
		registryOpts.Hooks = metrics.Hooks()
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	registry, err := providers.NewRegistry(registryOpts)
	if err != nil {
		slog.Error("failed to initialize providers", "error", err)
		os.Exit(1)
	}

	if cfg.Server.MasterKey == "" {
		slog.Warn("SECURITY WARNING: MASTER_KEY not set - server running in UNSAFE MODE",
			"security_risk", "unauthenticated access allowed",
			"recommendation", "set MASTER_KEY environment variable to secure this server")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	historyResult, err := history.New(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize history", "error", err)
		os.Exit(1)
	}
	defer historyResult.Close()

	if cfg.History.Enabled {
		slog.Info("detection history enabled", "backend", cfg.History.Backend)
	} else {
		slog.Info("detection history disabled")
	}

	snapshots, err := buildCache(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer snapshots.Close()

	detectorOpts := detect.Options{
		Concurrency: cfg.Probe.Concurrency,
		History:     historyResult.Store,
		Cache:       snapshots,
	}
	if metrics != nil {
		detectorOpts.Observe = metrics.ObserveDetection
	}
	detector := detect.New(registry, detectorOpts)

	srv := server.New(detector, &server.Config{
		MasterKey:       cfg.Server.MasterKey,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
	})

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	slog.Info("starting server", "address", addr)

	if err := srv.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}
}

func setupLogging(cfg config.LogConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "pretty" {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func buildCache(cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Type {
	case config.CacheTypeRedis:
		return cache.NewRedisCache(cache.RedisConfig{
			URL:       cfg.RedisURL,
			KeyPrefix: cfg.RedisKeyPrefix,
			TTL:       cfg.TTL,
		})
	case config.CacheTypeNone:
		return cache.Noop{}, nil
	default:
		return cache.NewLocalCache(cfg.Dir, cfg.TTL), nil
	}
}
