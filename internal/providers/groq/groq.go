// Package groq implements the provider adapter for the Groq API.
package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"keymate/internal/core"
	"keymate/internal/probeclient"
	"keymate/internal/providers"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	displayName    = "Groq"
	idPath         = "data.#.id"
)

func init() {
	providers.Register(core.ProviderGroq, func(cfg providers.BuildConfig) core.Adapter {
		return New(cfg)
	})
}

var premiumRules = []providers.Rule{
	{Flag: "has_llama_3_8b", Substring: "llama-3-8b"},
	{Flag: "has_llama_3_70b", Substring: "llama-3-70b"},
	{Flag: "has_mixtral_8x7b", Substring: "mixtral-8x7b"},
	{Flag: "has_gemma_7b", Substring: "gemma-7b"},
	{Flag: "has_gemma_2b", Substring: "gemma-2b"},
}

var modelBuckets = []providers.Bucket{
	{Name: "llama", Substring: "llama"},
	{Name: "mixtral", Substring: "mixtral"},
	{Name: "gemma", Substring: "gemma"},
}

// Adapter implements core.Adapter for Groq.
type Adapter struct {
	client *probeclient.Client
}

// New creates a Groq adapter.
func New(cfg providers.BuildConfig) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{client: probeclient.New(probeclient.Config{
		Provider: core.ProviderGroq,
		BaseURL:  baseURL,
		Timeout:  cfg.Timeout,
		Hooks:    cfg.Hooks,
	})}
}

// NewWithHTTPClient creates a Groq adapter with a custom HTTP client.
func NewWithHTTPClient(baseURL string, client *http.Client) *Adapter {
	return &Adapter{client: probeclient.NewWithHTTPClient(probeclient.Config{
		Provider: core.ProviderGroq,
		BaseURL:  baseURL,
	}, client)}
}

// ID returns the provider identifier.
func (a *Adapter) ID() core.ProviderID {
	return core.ProviderGroq
}

func (a *Adapter) authHeaders(credential string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + credential}
}

// Validate issues one bounded call to the model listing.
func (a *Adapter) Validate(ctx context.Context, credential string) core.Validation {
	resp, err := a.client.Do(ctx, probeclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/models",
		Headers:  a.authHeaders(credential),
	})
	if err != nil {
		return providers.FailureValidation(displayName, core.AsProbeError(core.ProviderGroq, err))
	}
	if resp.StatusCode != http.StatusOK {
		return providers.FailureValidation(displayName, core.ClassifyStatus(core.ProviderGroq, resp.StatusCode, resp.Body))
	}

	ids := providers.IDsFromJSON(resp.Body, idPath)
	tier := core.TierFree
	if providers.AnyContains(ids, "llama") || providers.AnyContains(ids, "mixtral") || providers.AnyContains(ids, "gemma") {
		tier = core.TierPaid
	}
	return core.Validation{
		Valid:      true,
		Message:    fmt.Sprintf("Valid %s API key (%s account)", displayName, tier),
		StatusCode: resp.StatusCode,
		Raw:        resp.Body,
	}
}

// ListModels fetches the full listing categorized into llama/mixtral/gemma
// buckets.
func (a *Adapter) ListModels(ctx context.Context, credential string) (*core.ModelDetails, error) {
	resp, err := a.client.Do(ctx, probeclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/models",
		Headers:  a.authHeaders(credential),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.ClassifyStatus(core.ProviderGroq, resp.StatusCode, resp.Body)
	}

	ids := providers.IDsFromJSON(resp.Body, idPath)
	return &core.ModelDetails{
		Provider:    core.ProviderGroq,
		TotalModels: len(ids),
		Buckets:     providers.BucketByIDSubstrings(ids, modelBuckets),
		AllModels:   ids,
		PerModel:    providers.NullMetrics(ids),
	}, nil
}

// AccountStatus recomputes the paid/free heuristic with per-flag booleans.
func (a *Adapter) AccountStatus(ctx context.Context, credential string) (*core.AccountStatus, error) {
	resp, err := a.client.Do(ctx, probeclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/models",
		Headers:  a.authHeaders(credential),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.ClassifyStatus(core.ProviderGroq, resp.StatusCode, resp.Body)
	}

	flags := providers.ClassifyByIDSubstrings(providers.IDsFromJSON(resp.Body, idPath), premiumRules)
	status := &core.AccountStatus{
		Provider: core.ProviderGroq,
		Paid:     providers.AnyFlag(flags),
		Flags:    flags,
		Tier:     core.TierFree,
	}
	if status.Paid {
		status.Tier = core.TierPaid
	}
	return status, nil
}

// GetModelInfo tries the direct per-model endpoint first and falls back to
// scanning the listing.
func (a *Adapter) GetModelInfo(ctx context.Context, credential, modelID string) (json.RawMessage, error) {
	resp, err := a.client.Do(ctx, probeclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/models/" + url.PathEscape(modelID),
		Headers:  a.authHeaders(credential),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK {
		return resp.Body, nil
	}

	resp, err = a.client.Do(ctx, probeclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/models",
		Headers:  a.authHeaders(credential),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.ClassifyStatus(core.ProviderGroq, resp.StatusCode, resp.Body)
	}
	if entry, ok := providers.FindModelJSON(resp.Body, "data", "id", modelID); ok {
		return entry, nil
	}
	return nil, core.NewModelNotFoundError(core.ProviderGroq, modelID)
}
