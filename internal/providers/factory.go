// Package providers provides the adapter factory, the provider registry, and
// the shared id-substring classification primitives used by all adapters.
package providers

import (
	"fmt"
	"sort"
	"time"

	"keymate/internal/core"
	"keymate/internal/probeclient"
)

// BuildConfig holds the per-provider options resolved at startup.
type BuildConfig struct {
	// BaseURL overrides the adapter's default endpoint when non-empty.
	BaseURL string

	// Timeout bounds each probe attempt. Zero means the default probe bound.
	Timeout time.Duration

	// Hooks receives per-attempt observations (metrics).
	Hooks probeclient.Hooks
}

// Builder creates an adapter instance from configuration.
type Builder func(cfg BuildConfig) core.Adapter

// builders holds all registered adapter builders, keyed by provider id.
var builders = make(map[core.ProviderID]Builder)

// Register records an adapter builder. Adapter packages call this from their
// init() functions; importing a provider package is what makes it available.
func Register(id core.ProviderID, builder Builder) {
	builders[id] = builder
}

// Create instantiates the adapter for the given provider id.
func Create(id core.ProviderID, cfg BuildConfig) (core.Adapter, error) {
	builder, ok := builders[id]
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", id)
	}
	return builder(cfg), nil
}

// ListRegistered returns all registered provider ids, sorted for determinism.
func ListRegistered() []core.ProviderID {
	ids := make([]core.ProviderID, 0, len(builders))
	for id := range builders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
