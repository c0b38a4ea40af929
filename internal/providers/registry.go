package providers

import (
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"keymate/internal/core"
	"keymate/internal/probeclient"
)

//go:embed providers.yaml
var metadataYAML []byte

// Metadata is the display/lookup information for one provider. The key prefix
// is a detection heuristic, not a guarantee — two providers may share one.
type Metadata struct {
	ID        core.ProviderID `yaml:"id" json:"id"`
	Name      string          `yaml:"name" json:"name"`
	KeyPrefix string          `yaml:"key_prefix" json:"key_prefix"`
	BaseURL   string          `yaml:"base_url" json:"base_url"`
}

// Options configures registry construction.
type Options struct {
	// BaseURLs maps provider id to an endpoint override (tests, proxies).
	BaseURLs map[string]string

	// Timeout bounds each probe attempt for every adapter.
	Timeout time.Duration

	// Hooks receives probe observations for every adapter.
	Hooks probeclient.Hooks
}

// Registry maps provider ids to their adapter instance and metadata, and owns
// the fallback probe order. Adapters are constructed once here and shared;
// they are stateless, so no locking is needed after construction.
type Registry struct {
	adapters map[core.ProviderID]core.Adapter
	meta     map[core.ProviderID]Metadata
	order    []core.ProviderID
}

// NewRegistry instantiates every registered adapter, in metadata order first,
// then any registered adapter without a metadata entry (sorted by id).
func NewRegistry(opts Options) (*Registry, error) {
	var entries []Metadata
	if err := yaml.Unmarshal(metadataYAML, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse provider metadata: %w", err)
	}

	r := &Registry{
		adapters: make(map[core.ProviderID]core.Adapter),
		meta:     make(map[core.ProviderID]Metadata, len(entries)),
	}

	seen := make(map[core.ProviderID]bool)
	for _, m := range entries {
		r.meta[m.ID] = m
		seen[m.ID] = true
		if err := r.build(m.ID, opts); err != nil {
			return nil, err
		}
	}
	for _, id := range ListRegistered() {
		if seen[id] {
			continue
		}
		// Adapter registered by a package outside the built-in set.
		if err := r.build(id, opts); err != nil {
			return nil, err
		}
	}

	if len(r.adapters) == 0 {
		return nil, fmt.Errorf("no provider adapters registered")
	}

	slog.Info("provider registry initialized", "providers", len(r.adapters))
	return r, nil
}

func (r *Registry) build(id core.ProviderID, opts Options) error {
	cfg := BuildConfig{
		Timeout: opts.Timeout,
		Hooks:   opts.Hooks,
	}
	if opts.BaseURLs != nil {
		cfg.BaseURL = opts.BaseURLs[string(id)]
	}
	adapter, err := Create(id, cfg)
	if err != nil {
		return fmt.Errorf("failed to build adapter %q: %w", id, err)
	}
	r.adapters[id] = adapter
	r.order = append(r.order, id)
	return nil
}

// NewStaticRegistry builds a registry from pre-constructed adapters, in the
// given order. Metadata is synthesized from the adapter ids. Used by tests
// and by embedders that construct adapters themselves.
func NewStaticRegistry(adapters ...core.Adapter) *Registry {
	r := &Registry{
		adapters: make(map[core.ProviderID]core.Adapter, len(adapters)),
		meta:     make(map[core.ProviderID]Metadata, len(adapters)),
	}
	for _, a := range adapters {
		id := a.ID()
		r.adapters[id] = a
		r.meta[id] = Metadata{ID: id, Name: string(id)}
		r.order = append(r.order, id)
	}
	return r
}

// Adapter returns the adapter for the given provider id.
func (r *Registry) Adapter(id core.ProviderID) (core.Adapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

// Metadata returns the metadata for the given provider id.
func (r *Registry) Metadata(id core.ProviderID) (Metadata, bool) {
	m, ok := r.meta[id]
	return m, ok
}

// FallbackOrder returns the full probe order used for unrecognized prefixes.
func (r *Registry) FallbackOrder() []core.ProviderID {
	order := make([]core.ProviderID, len(r.order))
	copy(order, r.order)
	return order
}

// All returns metadata for every provider in fallback order. Providers
// registered without a metadata entry get a minimal record.
func (r *Registry) All() []Metadata {
	out := make([]Metadata, 0, len(r.order))
	for _, id := range r.order {
		if m, ok := r.meta[id]; ok {
			out = append(out, m)
			continue
		}
		out = append(out, Metadata{ID: id, Name: string(id)})
	}
	return out
}
