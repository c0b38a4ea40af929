package core

import (
	"context"
	"encoding/json"
)

// Adapter is the common capability contract every provider implements. Each
// provider's wire format is irreducibly different (auth placement, id field
// names, nesting), so adapters cannot share a parser — but they share these
// operation signatures, which lets the detection orchestrator treat all of
// them uniformly.
//
// Adapters are stateless beyond fixed endpoint configuration: one instance per
// provider is constructed at startup and shared freely across goroutines.
type Adapter interface {
	// ID returns the provider identifier.
	ID() ProviderID

	// Validate issues exactly one bounded network call to the provider's
	// model-listing endpoint and folds every outcome into the returned value.
	Validate(ctx context.Context, credential string) Validation

	// ListModels fetches the full model listing categorized into
	// provider-specific buckets.
	ListModels(ctx context.Context, credential string) (*ModelDetails, error)

	// AccountStatus recomputes the paid/free heuristic with per-flag booleans.
	AccountStatus(ctx context.Context, credential string) (*AccountStatus, error)

	// GetModelInfo fetches one model's raw detail record, falling back to a
	// list-and-scan when the provider has no direct per-model endpoint.
	GetModelInfo(ctx context.Context, credential, modelID string) (json.RawMessage, error)
}
