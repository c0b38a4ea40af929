// Package gemini implements the provider adapter for the Google Gemini API.
//
// Gemini differs from the OpenAI-compatible providers in two ways: the
// credential travels as a `?key=` query parameter rather than a header, and
// the listing payload nests models under "models" with full resource names
// (e.g. "models/gemini-1.5-pro") in a "name" field instead of "id".
package gemini

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
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1"
	displayName    = "Gemini"
	idPath         = "models.#.name"
)

func init() {
	providers.Register(core.ProviderGemini, func(cfg providers.BuildConfig) core.Adapter {
		return New(cfg)
	})
}

var premiumRules = []providers.Rule{
	{Flag: "has_gemini_pro", Substring: "gemini-pro"},
	{Flag: "has_gemini_ultra", Substring: "gemini-ultra"},
	{Flag: "has_gemini_flash", Substring: "gemini-flash"},
}

var modelBuckets = []providers.Bucket{
	{Name: "gemini", Substring: "gemini"},
	{Name: "text", Substring: "text"},
}

// Adapter implements core.Adapter for Google Gemini.
type Adapter struct {
	client *probeclient.Client
}

// New creates a Gemini adapter.
func New(cfg providers.BuildConfig) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{client: probeclient.New(probeclient.Config{
		Provider: core.ProviderGemini,
		BaseURL:  baseURL,
		Timeout:  cfg.Timeout,
		Hooks:    cfg.Hooks,
	})}
}

// NewWithHTTPClient creates a Gemini adapter with a custom HTTP client.
func NewWithHTTPClient(baseURL string, client *http.Client) *Adapter {
	return &Adapter{client: probeclient.NewWithHTTPClient(probeclient.Config{
		Provider: core.ProviderGemini,
		BaseURL:  baseURL,
	}, client)}
}

// ID returns the provider identifier.
func (a *Adapter) ID() core.ProviderID {
	return core.ProviderGemini
}

func (a *Adapter) authQuery(credential string) url.Values {
	return url.Values{"key": {credential}}
}

// Validate issues one bounded call to the model listing. Gemini reports a
// malformed key as HTTP 400, which is treated as an invalid credential rather
// than an unexpected status.
func (a *Adapter) Validate(ctx context.Context, credential string) core.Validation {
	resp, err := a.client.Do(ctx, probeclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/models",
		Query:    a.authQuery(credential),
	})
	if err != nil {
		return providers.FailureValidation(displayName, core.AsProbeError(core.ProviderGemini, err))
	}
	if resp.StatusCode == http.StatusBadRequest {
		return core.Validation{
			Valid:      false,
			Message:    fmt.Sprintf("Invalid %s API key - Bad request", displayName),
			Failure:    core.FailureAuthentication,
			StatusCode: resp.StatusCode,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return providers.FailureValidation(displayName, core.ClassifyStatus(core.ProviderGemini, resp.StatusCode, resp.Body))
	}

	ids := providers.IDsFromJSON(resp.Body, idPath)
	tier := core.TierFree
	if providers.AnyContains(ids, "gemini-pro") || providers.AnyContains(ids, "gemini-ultra") {
		tier = core.TierPaid
	}
	return core.Validation{
		Valid:      true,
		Message:    fmt.Sprintf("Valid %s API key (%s account)", displayName, tier),
		StatusCode: resp.StatusCode,
		Raw:        resp.Body,
	}
}

// ListModels fetches the full listing categorized into gemini/text buckets.
func (a *Adapter) ListModels(ctx context.Context, credential string) (*core.ModelDetails, error) {
	resp, err := a.client.Do(ctx, probeclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/models",
		Query:    a.authQuery(credential),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.ClassifyStatus(core.ProviderGemini, resp.StatusCode, resp.Body)
	}

	ids := providers.IDsFromJSON(resp.Body, idPath)
	return &core.ModelDetails{
		Provider:    core.ProviderGemini,
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
		Query:    a.authQuery(credential),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.ClassifyStatus(core.ProviderGemini, resp.StatusCode, resp.Body)
	}

	flags := providers.ClassifyByIDSubstrings(providers.IDsFromJSON(resp.Body, idPath), premiumRules)
	status := &core.AccountStatus{
		Provider: core.ProviderGemini,
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
// scanning the listing. Model ids here are full resource names, so the
// "models/" prefix is part of the id and the direct path keeps it verbatim.
func (a *Adapter) GetModelInfo(ctx context.Context, credential, modelID string) (json.RawMessage, error) {
	resp, err := a.client.Do(ctx, probeclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/" + modelID,
		Query:    a.authQuery(credential),
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
		Query:    a.authQuery(credential),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.ClassifyStatus(core.ProviderGemini, resp.StatusCode, resp.Body)
	}
	if entry, ok := providers.FindModelJSON(resp.Body, "models", "name", modelID); ok {
		return entry, nil
	}
	return nil, core.NewModelNotFoundError(core.ProviderGemini, modelID)
}
