// Package detect orchestrates provider auto-detection for an opaque
// credential. Candidates are chosen from the key's prefix, probed with
// bounded concurrency, and the winner is the highest-priority candidate whose
// probe validates; outstanding probes are cancelled once the winner is known.
package detect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"keymate/internal/cache"
	"keymate/internal/core"
	"keymate/internal/history"
	"keymate/internal/providers"
)

// NoKeyMessage is returned when the credential is blank. No probe is sent.
const NoKeyMessage = "No API key provided"

// NoMatchMessage is the aggregate verdict when every candidate rejects the
// credential.
const NoMatchMessage = "Invalid or unauthorized API key"

// prefixRules narrow the candidate set before any network traffic. Checked in
// order, so the more specific "sk-ant-" must precede "sk-". The "ai" prefix
// is matched case-insensitively because Google keys start with "AIza".
var prefixRules = []struct {
	prefix     string
	foldCase   bool
	candidates []core.ProviderID
}{
	{prefix: "sk-ant-", candidates: []core.ProviderID{core.ProviderClaude}},
	{prefix: "xai-", candidates: []core.ProviderID{core.ProviderGrok}},
	{prefix: "gsk_", candidates: []core.ProviderID{core.ProviderGroq}},
	{prefix: "ai", foldCase: true, candidates: []core.ProviderID{core.ProviderGemini}},
	{prefix: "sk-", candidates: []core.ProviderID{core.ProviderOpenAI, core.ProviderDeepseek}},
}

// Options configures a Detector.
type Options struct {
	// Concurrency is the probe fan-out width. 1 probes candidates strictly
	// in priority order; higher values overlap probes but preserve the
	// priority-ordered winner selection.
	Concurrency int

	// History receives one entry per detection run. Nil disables recording.
	History history.Store

	// Cache stores detail-report snapshots. Nil disables caching.
	Cache cache.Cache

	// Observe is called once per finished detection run. Nil disables it.
	Observe func(valid bool)
}

// Detector runs credential detection and detail lookups over a provider
// registry.
type Detector struct {
	registry    *providers.Registry
	concurrency int
	history     history.Store
	cache       cache.Cache
	observe     func(valid bool)
}

// New creates a Detector.
func New(registry *providers.Registry, opts Options) *Detector {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	hist := opts.History
	if hist == nil {
		hist = history.NoopStore{}
	}
	snapshots := opts.Cache
	if snapshots == nil {
		snapshots = cache.Noop{}
	}
	return &Detector{
		registry:    registry,
		concurrency: concurrency,
		history:     hist,
		cache:       snapshots,
		observe:     opts.Observe,
	}
}

// Candidates returns the priority-ordered providers worth probing for the
// given credential.
func (d *Detector) Candidates(credential string) []core.ProviderID {
	for _, rule := range prefixRules {
		key := credential
		if rule.foldCase {
			key = strings.ToLower(key)
		}
		if strings.HasPrefix(key, rule.prefix) {
			return d.known(rule.candidates)
		}
	}
	return d.registry.FallbackOrder()
}

// known drops candidates with no registered adapter, preserving order.
func (d *Detector) known(ids []core.ProviderID) []core.ProviderID {
	out := make([]core.ProviderID, 0, len(ids))
	for _, id := range ids {
		if _, ok := d.registry.Adapter(id); ok {
			out = append(out, id)
		}
	}
	return out
}

// DetectProvider probes the candidate providers and returns the aggregate
// verdict. A blank credential short-circuits without network traffic.
func (d *Detector) DetectProvider(ctx context.Context, credential string) core.Detection {
	if core.IsBlankCredential(credential) {
		return core.Detection{Valid: false, Message: NoKeyMessage}
	}

	start := time.Now()
	candidates := d.Candidates(credential)
	results := d.probeAll(ctx, credential, candidates)

	detection := d.settle(candidates, results)
	d.record(ctx, credential, detection, time.Since(start))
	if d.observe != nil {
		d.observe(detection.Valid)
	}
	return detection
}

// probeAll validates the credential against the candidates with bounded
// lookahead: probes launch in priority order, at most d.concurrency past the
// slot currently being judged. Concurrency 1 is strictly sequential — the
// next candidate starts only after the current one has lost. The first
// validated candidate in priority order wins and everything still in flight
// is cancelled.
func (d *Detector) probeAll(ctx context.Context, credential string, candidates []core.ProviderID) []core.Validation {
	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]core.Validation, len(candidates))
	done := make([]chan struct{}, len(candidates))
	for i := range done {
		done[i] = make(chan struct{})
	}

	var wg sync.WaitGroup
	launch := func(i int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(done[i])

			id := candidates[i]
			adapter, ok := d.registry.Adapter(id)
			if !ok {
				results[i] = core.Validation{
					Valid:   false,
					Message: fmt.Sprintf("Unknown provider: %s", id),
					Failure: core.FailureUnknownProvider,
				}
				return
			}
			results[i] = safeValidate(probeCtx, adapter, credential)
		}()
	}

	next := 0
	for i := range candidates {
		for next < len(candidates) && next-i < d.concurrency {
			launch(next)
			next++
		}
		<-done[i]
		if results[i].Valid {
			cancel()
			break
		}
	}
	wg.Wait()
	return results
}

// safeValidate shields the run from a panicking adapter; a panic counts as a
// failed probe for that candidate only.
func safeValidate(ctx context.Context, adapter core.Adapter, credential string) (v core.Validation) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("provider probe panicked", "provider", adapter.ID(), "panic", r)
			v = core.Validation{
				Valid:   false,
				Message: fmt.Sprintf("%s probe failed unexpectedly", adapter.ID()),
				Failure: core.FailureTransport,
			}
		}
	}()
	return adapter.Validate(ctx, credential)
}

// settle picks the winner (first candidate in priority order that validated)
// or builds the aggregate no-match verdict.
func (d *Detector) settle(candidates []core.ProviderID, results []core.Validation) core.Detection {
	for i, id := range candidates {
		if results[i].Valid {
			return core.Detection{
				Provider: id,
				Valid:    true,
				Message:  results[i].Message,
				Info:     results[i].Raw,
			}
		}
	}
	return core.Detection{
		Valid:          false,
		Message:        NoMatchMessage,
		ClosestFailure: closestFailure(candidates, results),
	}
}

// failureRank orders failure classes by how much they suggest the credential
// might actually belong to that provider. A rate-limited probe is the
// strongest signal short of success.
var failureRank = map[core.FailureClass]int{
	core.FailureRateLimited:    4,
	core.FailureAccessDenied:   3,
	core.FailureAuthentication: 2,
	core.FailureTimeout:        1,
	core.FailureTransport:      1,
}

// closestFailure returns the best-ranked candidate failure. Priority order
// breaks rank ties.
func closestFailure(candidates []core.ProviderID, results []core.Validation) *core.ProbeFailure {
	var best *core.ProbeFailure
	bestRank := -1
	for i, id := range candidates {
		rank := failureRank[results[i].Failure]
		if rank > bestRank {
			bestRank = rank
			best = &core.ProbeFailure{
				Provider: id,
				Class:    results[i].Failure,
				Message:  results[i].Message,
			}
		}
	}
	return best
}

// record persists the run outcome. Failures to record are logged, never
// surfaced: history is advisory.
func (d *Detector) record(ctx context.Context, credential string, detection core.Detection, elapsed time.Duration) {
	entry := &history.Entry{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Fingerprint: core.Fingerprint(credential),
		Provider:    detection.Provider,
		Valid:       detection.Valid,
		Message:     detection.Message,
		DurationMs:  elapsed.Milliseconds(),
	}
	if detection.ClosestFailure != nil {
		entry.FailureClass = string(detection.ClosestFailure.Class)
	}
	if err := d.history.Record(ctx, entry); err != nil {
		slog.Warn("failed to record detection history", "error", err)
	}
}

// GetDetailedInfo fetches account status and the model listing for a known
// provider, serving from the snapshot cache when possible. The returned error
// is non-nil only for an unknown provider id; probe failures land in the
// report's Error field.
func (d *Detector) GetDetailedInfo(ctx context.Context, provider core.ProviderID, credential string) (*core.DetailReport, error) {
	adapter, ok := d.registry.Adapter(provider)
	if !ok {
		return nil, core.NewProbeError(provider, core.FailureUnknownProvider, 0,
			fmt.Sprintf("unknown provider: %s", provider), nil)
	}
	if core.IsBlankCredential(credential) {
		return &core.DetailReport{Error: NoKeyMessage}, nil
	}

	key := cache.Key(core.Fingerprint(credential), provider)
	if snap, err := d.cache.Get(ctx, key); err != nil {
		slog.Warn("snapshot cache read failed", "provider", provider, "error", err)
	} else if snap != nil {
		return &snap.Report, nil
	}

	report := &core.DetailReport{}
	status, err := adapter.AccountStatus(ctx, credential)
	if err != nil {
		report.Error = err.Error()
		return report, nil
	}
	report.AccountStatus = status

	details, err := adapter.ListModels(ctx, credential)
	if err != nil {
		report.Error = err.Error()
		return report, nil
	}
	report.ModelDetails = details

	snap := &cache.Snapshot{Report: *report, CachedAt: time.Now().UTC()}
	if err := d.cache.Set(ctx, key, snap); err != nil {
		slog.Warn("snapshot cache write failed", "provider", provider, "error", err)
	}
	return report, nil
}

// Registry exposes the underlying provider registry.
func (d *Detector) Registry() *providers.Registry {
	return d.registry
}

// History exposes the history store for read paths.
func (d *Detector) History() history.Store {
	return d.history
}
