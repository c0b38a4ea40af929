// Package core provides the shared types and error taxonomy for credential
// detection and model inspection.
package core

import (
	"encoding/json"
	"time"
)

// ProviderID identifies one LLM provider API surface.
type ProviderID string

// Well-known providers. The set is extensible at startup through the
// provider factory; these constants exist for the built-in adapters.
const (
	ProviderOpenAI   ProviderID = "openai"
	ProviderGemini   ProviderID = "gemini"
	ProviderDeepseek ProviderID = "deepseek"
	ProviderClaude   ProviderID = "claude"
	ProviderGrok     ProviderID = "grok"
	ProviderGroq     ProviderID = "groq"
)

// Validation is the outcome of a single credential probe against one provider.
// Adapters fold every failure mode into this value; Validate never returns a
// Go error, so a misbehaving provider cannot abort detection of the others.
type Validation struct {
	Valid      bool            `json:"valid"`
	Message    string          `json:"message"`
	Failure    FailureClass    `json:"failure,omitempty"`
	StatusCode int             `json:"status_code,omitempty"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// ModelMetrics holds per-model rate metrics. None of the supported providers
// expose rpm/rpd/tpm on their model listings, so the fields stay null; they
// are kept so table consumers get stable columns.
type ModelMetrics struct {
	ID  string `json:"id"`
	RPM *int   `json:"rpm"`
	RPD *int   `json:"rpd"`
	TPM *int   `json:"tpm"`
}

// ModelDetails is a categorized model listing for one provider.
type ModelDetails struct {
	Provider    ProviderID          `json:"provider"`
	TotalModels int                 `json:"total_models"`
	Buckets     map[string][]string `json:"buckets"`
	AllModels   []string            `json:"all_models"`
	PerModel    []ModelMetrics      `json:"per_model"`
}

// AccountStatus is the paid/free classification for a credential.
//
// The tier is derived from the presence of provider-specific premium model ids
// in the listing response, not from a billing endpoint (no provider exposes one
// uniformly). It is a heuristic, not ground truth.
type AccountStatus struct {
	Provider ProviderID      `json:"provider"`
	Paid     bool            `json:"is_paid"`
	Flags    map[string]bool `json:"flags"`
	Tier     string          `json:"account_type"`
}

// Account tier labels.
const (
	TierPaid = "Paid"
	TierFree = "Free"
)

// ProbeFailure summarizes one failed candidate probe.
type ProbeFailure struct {
	Provider ProviderID   `json:"provider"`
	Class    FailureClass `json:"class"`
	Message  string       `json:"message"`
}

// Detection is the aggregate result of provider auto-detection. Provider is
// empty when no candidate validated. ClosestFailure carries the best-ranked
// per-candidate failure (rate-limited ranks above access-denied, which ranks
// above a plain bad key) so callers can tell "try again later" apart from
// "this key is wrong" even on the aggregate path.
type Detection struct {
	Provider       ProviderID      `json:"provider,omitempty"`
	Valid          bool            `json:"valid"`
	Message        string          `json:"message"`
	Info           json.RawMessage `json:"info,omitempty"`
	ClosestFailure *ProbeFailure   `json:"closest_failure,omitempty"`
}

// DetailReport packages account status and model details for a validated
// credential. Error is set instead of the payload fields when the fetch failed.
type DetailReport struct {
	AccountStatus *AccountStatus `json:"account_status,omitempty"`
	ModelDetails  *ModelDetails  `json:"model_details,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// ModelType is the coarse classification used by the table normalization.
type ModelType string

const (
	ModelTypeChat      ModelType = "Chat"
	ModelTypeEmbedding ModelType = "Embedding"
	ModelTypeUnknown   ModelType = "Unknown"
)

// ModelRecord is one row of the provider-agnostic model table. ContextLength
// and Created are always nil at this layer; no adapter currently supplies
// them, and consumers must tolerate the null columns.
type ModelRecord struct {
	Provider      ProviderID `json:"provider"`
	ModelID       string     `json:"model_id"`
	Type          ModelType  `json:"type"`
	ContextLength *int       `json:"context_length"`
	Created       *time.Time `json:"created"`
	Status        string     `json:"status"`
}

// ModelStatusAvailable is the only availability status the listing endpoints
// can attest to: a model that appears in the list is available.
const ModelStatusAvailable = "Available"
