// Package cache stores detail-report snapshots keyed by credential
// fingerprint and provider, so repeated lookups for the same key do not
// re-probe the provider. The credential itself is never stored, only its
// fingerprint.
package cache

import (
	"context"
	"fmt"
	"time"

	"keymate/internal/core"
)

// Snapshot is one cached detail report with its capture time.
type Snapshot struct {
	Report   core.DetailReport `json:"report"`
	CachedAt time.Time         `json:"cached_at"`
}

// Cache is the snapshot store. Get returns (nil, nil) on a miss; expired
// entries count as misses.
type Cache interface {
	Get(ctx context.Context, key string) (*Snapshot, error)
	Set(ctx context.Context, key string, snap *Snapshot) error
	Close() error
}

// Key builds the cache key for a credential fingerprint and provider.
func Key(fingerprint string, provider core.ProviderID) string {
	return fmt.Sprintf("%s:%s", fingerprint, provider)
}

// Noop is a Cache that stores nothing. Used when caching is disabled.
type Noop struct{}

func (Noop) Get(context.Context, string) (*Snapshot, error) { return nil, nil }
func (Noop) Set(context.Context, string, *Snapshot) error   { return nil }
func (Noop) Close() error                                   { return nil }
