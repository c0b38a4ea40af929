package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultLocalTTL bounds how long a local snapshot is served before it counts
// as a miss.
const DefaultLocalTTL = 1 * time.Hour

// LocalCache implements Cache using a single JSON file on disk. Suitable for
// single-instance deployments and the CLI.
type LocalCache struct {
	mu       sync.RWMutex
	filePath string
	ttl      time.Duration
}

// NewLocalCache creates a file-backed cache at dir/snapshots.json.
func NewLocalCache(dir string, ttl time.Duration) *LocalCache {
	if ttl == 0 {
		ttl = DefaultLocalTTL
	}
	return &LocalCache{
		filePath: filepath.Join(dir, "snapshots.json"),
		ttl:      ttl,
	}
}

func (c *LocalCache) load() (map[string]*Snapshot, error) {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Snapshot{}, nil
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	entries := map[string]*Snapshot{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	return entries, nil
}

// Get returns the snapshot for key, or nil when absent or expired.
func (c *LocalCache) Get(ctx context.Context, key string) (*Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries, err := c.load()
	if err != nil {
		return nil, err
	}
	snap, ok := entries[key]
	if !ok {
		return nil, nil
	}
	if time.Since(snap.CachedAt) > c.ttl {
		return nil, nil
	}
	return snap, nil
}

// Set stores the snapshot, dropping any entries past their TTL while the file
// is rewritten.
func (c *LocalCache) Set(ctx context.Context, key string, snap *Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load()
	if err != nil {
		return err
	}
	for k, s := range entries {
		if time.Since(s.CachedAt) > c.ttl {
			delete(entries, k)
		}
	}
	entries[key] = snap

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	// Write atomically using temp file + rename
	tmpFile := c.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmpFile, c.filePath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename cache file: %w", err)
	}
	return nil
}

// Close is a no-op for the local cache.
func (c *LocalCache) Close() error {
	return nil
}
