package cache

import (
	"context"
	"testing"
	"time"

	"keymate/internal/core"
)

func TestKey(t *testing.T) {
	if got := Key("abc123", core.ProviderOpenAI); got != "abc123:openai" {
		t.Errorf("Key() = %q", got)
	}
}

func TestLocalCache_RoundTrip(t *testing.T) {
	c := NewLocalCache(t.TempDir(), time.Hour)
	ctx := context.Background()

	key := Key(core.Fingerprint("sk-test"), core.ProviderOpenAI)

	// Miss on empty cache
	snap, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if snap != nil {
		t.Fatal("Get() on empty cache returned a snapshot")
	}

	want := &Snapshot{
		Report: core.DetailReport{
			AccountStatus: &core.AccountStatus{Provider: core.ProviderOpenAI, Paid: true, Tier: core.TierPaid},
			ModelDetails:  &core.ModelDetails{Provider: core.ProviderOpenAI, TotalModels: 3},
		},
		CachedAt: time.Now().UTC(),
	}
	if err := c.Set(ctx, key, want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() after Set() returned nil")
	}
	if got.Report.AccountStatus.Tier != core.TierPaid {
		t.Errorf("Tier = %q", got.Report.AccountStatus.Tier)
	}
	if got.Report.ModelDetails.TotalModels != 3 {
		t.Errorf("TotalModels = %d", got.Report.ModelDetails.TotalModels)
	}

	// A different key misses
	other, err := c.Get(ctx, Key(core.Fingerprint("sk-other"), core.ProviderOpenAI))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if other != nil {
		t.Error("Get() with different key returned a snapshot")
	}
}

func TestLocalCache_ExpiredEntryIsAMiss(t *testing.T) {
	c := NewLocalCache(t.TempDir(), 10*time.Millisecond)
	ctx := context.Background()

	snap := &Snapshot{CachedAt: time.Now().Add(-time.Minute)}
	if err := c.Set(ctx, "stale", snap); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := c.Get(ctx, "stale")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Error("expired snapshot served")
	}
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()

	if err := c.Set(ctx, "k", &Snapshot{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	snap, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if snap != nil {
		t.Error("Noop stored a snapshot")
	}
}
