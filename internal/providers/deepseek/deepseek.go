// Package deepseek implements the provider adapter for the Deepseek API.
package deepseek

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
	defaultBaseURL = "https://api.deepseek.com/v1"
	displayName    = "Deepseek"
	idPath         = "data.#.id"
)

func init() {
	providers.Register(core.ProviderDeepseek, func(cfg providers.BuildConfig) core.Adapter {
		return New(cfg)
	})
}

var premiumRules = []providers.Rule{
	{Flag: "has_deepseek_chat", Substring: "deepseek-chat"},
	{Flag: "has_deepseek_coder", Substring: "deepseek-coder"},
	{Flag: "has_deepseek_reasoner", Substring: "deepseek-reasoner"},
}

var modelBuckets = []providers.Bucket{
	{Name: "chat", Substring: "chat"},
	{Name: "coder", Substring: "coder"},
}

// Adapter implements core.Adapter for Deepseek.
type Adapter struct {
	client *probeclient.Client
}

// New creates a Deepseek adapter.
func New(cfg providers.BuildConfig) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{client: probeclient.New(probeclient.Config{
		Provider: core.ProviderDeepseek,
		BaseURL:  baseURL,
		Timeout:  cfg.Timeout,
		Hooks:    cfg.Hooks,
	})}
}

// NewWithHTTPClient creates a Deepseek adapter with a custom HTTP client.
func NewWithHTTPClient(baseURL string, client *http.Client) *Adapter {
	return &Adapter{client: probeclient.NewWithHTTPClient(probeclient.Config{
		Provider: core.ProviderDeepseek,
		BaseURL:  baseURL,
	}, client)}
}

// ID returns the provider identifier.
func (a *Adapter) ID() core.ProviderID {
	return core.ProviderDeepseek
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
		return providers.FailureValidation(displayName, core.AsProbeError(core.ProviderDeepseek, err))
	}
	if resp.StatusCode != http.StatusOK {
		return providers.FailureValidation(displayName, core.ClassifyStatus(core.ProviderDeepseek, resp.StatusCode, resp.Body))
	}

	ids := providers.IDsFromJSON(resp.Body, idPath)
	tier := core.TierFree
	if providers.AnyContains(ids, "deepseek-chat") || providers.AnyContains(ids, "deepseek-coder") {
		tier = core.TierPaid
	}
	return core.Validation{
		Valid:      true,
		Message:    fmt.Sprintf("Valid %s API key (%s account)", displayName, tier),
		StatusCode: resp.StatusCode,
		Raw:        resp.Body,
	}
}

// ListModels fetches the full listing categorized into chat/coder buckets.
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
		return nil, core.ClassifyStatus(core.ProviderDeepseek, resp.StatusCode, resp.Body)
	}

	ids := providers.IDsFromJSON(resp.Body, idPath)
	return &core.ModelDetails{
		Provider:    core.ProviderDeepseek,
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
		return nil, core.ClassifyStatus(core.ProviderDeepseek, resp.StatusCode, resp.Body)
	}

	flags := providers.ClassifyByIDSubstrings(providers.IDsFromJSON(resp.Body, idPath), premiumRules)
	status := &core.AccountStatus{
		Provider: core.ProviderDeepseek,
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
		return nil, core.ClassifyStatus(core.ProviderDeepseek, resp.StatusCode, resp.Body)
	}
	if entry, ok := providers.FindModelJSON(resp.Body, "data", "id", modelID); ok {
		return entry, nil
	}
	return nil, core.NewModelNotFoundError(core.ProviderDeepseek, modelID)
}
