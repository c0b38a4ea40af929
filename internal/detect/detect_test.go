package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"keymate/internal/cache"
	"keymate/internal/core"
	"keymate/internal/history"
	"keymate/internal/providers"
)

// stubAdapter is a scriptable adapter for orchestration tests.
type stubAdapter struct {
	id       core.ProviderID
	result   core.Validation
	delay    time.Duration
	panics   bool
	calls    atomic.Int64
	status   *core.AccountStatus
	details  *core.ModelDetails
	fetchErr error
}

func (s *stubAdapter) ID() core.ProviderID { return s.id }

func (s *stubAdapter) Validate(ctx context.Context, credential string) core.Validation {
	s.calls.Add(1)
	if s.panics {
		panic("stub failure")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return core.Validation{Valid: false, Message: "cancelled", Failure: core.FailureTransport}
		}
	}
	return s.result
}

func (s *stubAdapter) ListModels(ctx context.Context, credential string) (*core.ModelDetails, error) {
	s.calls.Add(1)
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if s.details != nil {
		return s.details, nil
	}
	return &core.ModelDetails{Provider: s.id}, nil
}

func (s *stubAdapter) AccountStatus(ctx context.Context, credential string) (*core.AccountStatus, error) {
	s.calls.Add(1)
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if s.status != nil {
		return s.status, nil
	}
	return &core.AccountStatus{Provider: s.id, Tier: core.TierFree}, nil
}

func (s *stubAdapter) GetModelInfo(ctx context.Context, credential, modelID string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func valid(message string) core.Validation {
	return core.Validation{Valid: true, Message: message}
}

func invalid(class core.FailureClass) core.Validation {
	return core.Validation{Valid: false, Message: string(class), Failure: class}
}

// fullRegistry builds stubs for all six built-in providers.
func fullRegistry(stubs map[core.ProviderID]*stubAdapter) *providers.Registry {
	order := []core.ProviderID{
		core.ProviderOpenAI, core.ProviderGemini, core.ProviderDeepseek,
		core.ProviderClaude, core.ProviderGrok, core.ProviderGroq,
	}
	adapters := make([]core.Adapter, 0, len(order))
	for _, id := range order {
		stub, ok := stubs[id]
		if !ok {
			stub = &stubAdapter{id: id, result: invalid(core.FailureAuthentication)}
			stubs[id] = stub
		}
		adapters = append(adapters, stub)
	}
	return providers.NewStaticRegistry(adapters...)
}

func TestCandidates(t *testing.T) {
	stubs := map[core.ProviderID]*stubAdapter{}
	d := New(fullRegistry(stubs), Options{})

	tests := []struct {
		credential string
		want       []core.ProviderID
	}{
		{"sk-ant-abc123", []core.ProviderID{core.ProviderClaude}},
		{"xai-abc123", []core.ProviderID{core.ProviderGrok}},
		{"gsk_abc123", []core.ProviderID{core.ProviderGroq}},
		{"AIzaSyAbc", []core.ProviderID{core.ProviderGemini}},
		{"aiza-lowercased", []core.ProviderID{core.ProviderGemini}},
		{"sk-abc123", []core.ProviderID{core.ProviderOpenAI, core.ProviderDeepseek}},
		{"unprefixed-key", []core.ProviderID{
			core.ProviderOpenAI, core.ProviderGemini, core.ProviderDeepseek,
			core.ProviderClaude, core.ProviderGrok, core.ProviderGroq,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.credential, func(t *testing.T) {
			if got := d.Candidates(tt.credential); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Candidates(%q) = %v, want %v", tt.credential, got, tt.want)
			}
		})
	}
}

func TestDetectProvider_BlankCredential(t *testing.T) {
	stubs := map[core.ProviderID]*stubAdapter{}
	d := New(fullRegistry(stubs), Options{})

	for _, credential := range []string{"", "   ", "\t\n"} {
		detection := d.DetectProvider(context.Background(), credential)
		if detection.Valid {
			t.Error("Valid = true, want false")
		}
		if detection.Message != NoKeyMessage {
			t.Errorf("Message = %q, want %q", detection.Message, NoKeyMessage)
		}
	}
	for id, stub := range stubs {
		if stub.calls.Load() != 0 {
			t.Errorf("%s probed %d times for blank credential, want 0", id, stub.calls.Load())
		}
	}
}

func TestDetectProvider_SecondCandidateWins(t *testing.T) {
	stubs := map[core.ProviderID]*stubAdapter{
		core.ProviderOpenAI:   {id: core.ProviderOpenAI, result: invalid(core.FailureAuthentication)},
		core.ProviderDeepseek: {id: core.ProviderDeepseek, result: valid("Valid Deepseek API key (Paid account)")},
	}
	d := New(fullRegistry(stubs), Options{Concurrency: 1})

	detection := d.DetectProvider(context.Background(), "sk-test")
	if !detection.Valid {
		t.Fatalf("Valid = false, message = %q", detection.Message)
	}
	if detection.Provider != core.ProviderDeepseek {
		t.Errorf("Provider = %q, want deepseek", detection.Provider)
	}
	if detection.Message != "Valid Deepseek API key (Paid account)" {
		t.Errorf("Message = %q", detection.Message)
	}
	// Only the sk- candidates were probed
	if stubs[core.ProviderClaude].calls.Load() != 0 {
		t.Error("claude probed for an sk- key")
	}
}

func TestDetectProvider_PriorityWinsUnderFanOut(t *testing.T) {
	// Deepseek answers immediately, OpenAI slowly; both validate. The
	// winner must still be OpenAI, the higher-priority candidate.
	stubs := map[core.ProviderID]*stubAdapter{
		core.ProviderOpenAI:   {id: core.ProviderOpenAI, result: valid("Valid OpenAI API key (Paid account)"), delay: 50 * time.Millisecond},
		core.ProviderDeepseek: {id: core.ProviderDeepseek, result: valid("Valid Deepseek API key (Paid account)")},
	}
	d := New(fullRegistry(stubs), Options{Concurrency: 2})

	detection := d.DetectProvider(context.Background(), "sk-test")
	if detection.Provider != core.ProviderOpenAI {
		t.Errorf("Provider = %q, want openai", detection.Provider)
	}
}

func TestDetectProvider_NoMatchRanksClosestFailure(t *testing.T) {
	stubs := map[core.ProviderID]*stubAdapter{
		core.ProviderOpenAI:   {id: core.ProviderOpenAI, result: invalid(core.FailureAuthentication)},
		core.ProviderDeepseek: {id: core.ProviderDeepseek, result: invalid(core.FailureRateLimited)},
	}
	d := New(fullRegistry(stubs), Options{Concurrency: 1})

	detection := d.DetectProvider(context.Background(), "sk-test")
	if detection.Valid {
		t.Fatal("Valid = true, want false")
	}
	if detection.Message != NoMatchMessage {
		t.Errorf("Message = %q, want %q", detection.Message, NoMatchMessage)
	}
	if detection.ClosestFailure == nil {
		t.Fatal("ClosestFailure = nil")
	}
	if detection.ClosestFailure.Provider != core.ProviderDeepseek {
		t.Errorf("ClosestFailure.Provider = %q, want deepseek (rate limit outranks auth)", detection.ClosestFailure.Provider)
	}
	if detection.ClosestFailure.Class != core.FailureRateLimited {
		t.Errorf("ClosestFailure.Class = %q", detection.ClosestFailure.Class)
	}
}

func TestDetectProvider_PanickingAdapterDoesNotAbortRun(t *testing.T) {
	stubs := map[core.ProviderID]*stubAdapter{
		core.ProviderOpenAI:   {id: core.ProviderOpenAI, panics: true},
		core.ProviderDeepseek: {id: core.ProviderDeepseek, result: valid("Valid Deepseek API key (Free account)")},
	}
	d := New(fullRegistry(stubs), Options{Concurrency: 1})

	detection := d.DetectProvider(context.Background(), "sk-test")
	if !detection.Valid {
		t.Fatalf("Valid = false, message = %q", detection.Message)
	}
	if detection.Provider != core.ProviderDeepseek {
		t.Errorf("Provider = %q, want deepseek", detection.Provider)
	}
}

func TestDetectProvider_RecordsHistory(t *testing.T) {
	recorder := &recordingStore{}
	stubs := map[core.ProviderID]*stubAdapter{
		core.ProviderGroq: {id: core.ProviderGroq, result: valid("Valid Groq API key (Paid account)")},
	}
	d := New(fullRegistry(stubs), Options{History: recorder})

	d.DetectProvider(context.Background(), "gsk_test")

	entries := recorder.entries()
	if len(entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Provider != core.ProviderGroq || !e.Valid {
		t.Errorf("entry = %+v", e)
	}
	if e.Fingerprint == "" || e.Fingerprint == "gsk_test" {
		t.Errorf("Fingerprint = %q, must be set and never the raw credential", e.Fingerprint)
	}
	if e.ID == "" {
		t.Error("ID not set")
	}
}

// recordingStore captures history entries in memory.
type recordingStore struct {
	mu   sync.Mutex
	list []*history.Entry
}

func (r *recordingStore) Record(ctx context.Context, entry *history.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, entry)
	return nil
}

func (r *recordingStore) Recent(ctx context.Context, limit int) ([]*history.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*history.Entry{}, r.list...), nil
}

func (r *recordingStore) Close() error { return nil }

func (r *recordingStore) entries() []*history.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*history.Entry{}, r.list...)
}

// memoryCache is an in-memory cache.Cache for snapshot tests.
type memoryCache struct {
	mu    sync.Mutex
	items map[string]*cache.Snapshot
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string]*cache.Snapshot{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) (*cache.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[key], nil
}

func (m *memoryCache) Set(ctx context.Context, key string, snap *cache.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = snap
	return nil
}

func (m *memoryCache) Close() error { return nil }

func TestGetDetailedInfo(t *testing.T) {
	stub := &stubAdapter{
		id:     core.ProviderOpenAI,
		status: &core.AccountStatus{Provider: core.ProviderOpenAI, Paid: true, Tier: core.TierPaid},
		details: &core.ModelDetails{
			Provider:    core.ProviderOpenAI,
			TotalModels: 2,
			AllModels:   []string{"gpt-4o", "gpt-3.5-turbo"},
		},
	}
	snapshots := newMemoryCache()
	d := New(providers.NewStaticRegistry(stub), Options{Cache: snapshots})

	report, err := d.GetDetailedInfo(context.Background(), core.ProviderOpenAI, "sk-test")
	if err != nil {
		t.Fatalf("GetDetailedInfo() error = %v", err)
	}
	if report.AccountStatus == nil || report.AccountStatus.Tier != core.TierPaid {
		t.Errorf("AccountStatus = %+v", report.AccountStatus)
	}
	if report.ModelDetails == nil || report.ModelDetails.TotalModels != 2 {
		t.Errorf("ModelDetails = %+v", report.ModelDetails)
	}

	// Second call must be served from the snapshot cache without probing.
	before := stub.calls.Load()
	if _, err := d.GetDetailedInfo(context.Background(), core.ProviderOpenAI, "sk-test"); err != nil {
		t.Fatalf("GetDetailedInfo() error = %v", err)
	}
	if stub.calls.Load() != before {
		t.Errorf("adapter probed again despite cached snapshot (%d -> %d calls)", before, stub.calls.Load())
	}
}

func TestGetDetailedInfo_UnknownProvider(t *testing.T) {
	d := New(providers.NewStaticRegistry(), Options{})
	_, err := d.GetDetailedInfo(context.Background(), "nonesuch", "sk-test")
	if err == nil {
		t.Fatal("expected error")
	}
	pe := core.AsProbeError("nonesuch", err)
	if pe.Class != core.FailureUnknownProvider {
		t.Errorf("Class = %q, want %q", pe.Class, core.FailureUnknownProvider)
	}
}

func TestGetDetailedInfo_FetchFailureLandsInReport(t *testing.T) {
	stub := &stubAdapter{
		id:       core.ProviderGrok,
		fetchErr: core.NewProbeError(core.ProviderGrok, core.FailureRateLimited, 429, "rate limit exceeded", nil),
	}
	d := New(providers.NewStaticRegistry(stub), Options{})

	report, err := d.GetDetailedInfo(context.Background(), core.ProviderGrok, "xai-test")
	if err != nil {
		t.Fatalf("GetDetailedInfo() error = %v", err)
	}
	if report.Error == "" {
		t.Fatal("report.Error empty, want classified failure text")
	}
	if report.AccountStatus != nil {
		t.Error("AccountStatus set despite failure")
	}
}

func TestDetectProvider_ConcurrencyOneIsSequential(t *testing.T) {
	// With concurrency 1 and a winning first candidate, no other probe runs.
	stubs := map[core.ProviderID]*stubAdapter{
		core.ProviderOpenAI: {id: core.ProviderOpenAI, result: valid("Valid OpenAI API key (Free account)")},
	}
	d := New(fullRegistry(stubs), Options{Concurrency: 1})

	detection := d.DetectProvider(context.Background(), "unprefixed-key")
	if detection.Provider != core.ProviderOpenAI {
		t.Fatalf("Provider = %q", detection.Provider)
	}
	probed := 0
	for id, stub := range stubs {
		if id == core.ProviderOpenAI {
			continue
		}
		probed += int(stub.calls.Load())
	}
	if probed != 0 {
		t.Errorf("%d non-winning probes ran after the first candidate validated", probed)
	}
}

func TestFailureRanking(t *testing.T) {
	candidates := []core.ProviderID{"a", "b", "c"}
	results := []core.Validation{
		invalid(core.FailureTimeout),
		invalid(core.FailureAccessDenied),
		invalid(core.FailureAuthentication),
	}
	got := closestFailure(candidates, results)
	if got.Provider != "b" || got.Class != core.FailureAccessDenied {
		t.Errorf("closestFailure = %+v, want provider b / access_denied", got)
	}
}

func ExampleDetector_Candidates() {
	registry := providers.NewStaticRegistry(
		&stubAdapter{id: core.ProviderClaude},
	)
	d := New(registry, Options{})
	fmt.Println(d.Candidates("sk-ant-example"))
	// Output: [claude]
}
