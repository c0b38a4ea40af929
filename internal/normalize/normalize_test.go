package normalize

import (
	"testing"

	"keymate/internal/core"
)

func TestModelsForTable(t *testing.T) {
	details := &core.ModelDetails{
		Provider:  core.ProviderOpenAI,
		AllModels: []string{"gpt-4o", "text-EMBEDDING-3-small"},
	}

	records := ModelsForTable(core.ProviderOpenAI, details)
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Type != core.ModelTypeChat {
		t.Errorf("records[0].Type = %q, want %q", records[0].Type, core.ModelTypeChat)
	}
	if records[1].Type != core.ModelTypeEmbedding {
		t.Errorf("records[1].Type = %q, want %q (case-insensitive match)", records[1].Type, core.ModelTypeEmbedding)
	}
	for _, rec := range records {
		if rec.Status != core.ModelStatusAvailable {
			t.Errorf("Status = %q, want %q", rec.Status, core.ModelStatusAvailable)
		}
		if rec.ContextLength != nil || rec.Created != nil {
			t.Error("ContextLength and Created must stay nil")
		}
	}
}

func TestModelsForTable_UnknownProvider(t *testing.T) {
	details := &core.ModelDetails{AllModels: []string{"mystery-model"}}
	records := ModelsForTable("someprovider", details)
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Type != core.ModelTypeUnknown {
		t.Errorf("Type = %q, want %q", records[0].Type, core.ModelTypeUnknown)
	}
}

// Only openai and gemini listings get the chat/embedding split; the other
// providers fall through to Unknown even for ids that look classifiable.
func TestModelsForTable_UnclassifiedProviders(t *testing.T) {
	tests := []struct {
		provider core.ProviderID
		modelID  string
	}{
		{core.ProviderClaude, "claude-3-opus-20240229"},
		{core.ProviderGroq, "llama-3-70b-8192"},
		{core.ProviderDeepseek, "deepseek-embedding"},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			records := ModelsForTable(tt.provider, &core.ModelDetails{AllModels: []string{tt.modelID}})
			if len(records) != 1 {
				t.Fatalf("len(records) = %d, want 1", len(records))
			}
			if records[0].Type != core.ModelTypeUnknown {
				t.Errorf("Type = %q, want %q", records[0].Type, core.ModelTypeUnknown)
			}
		})
	}
}

func TestModelsForTable_Empty(t *testing.T) {
	records := ModelsForTable(core.ProviderGroq, &core.ModelDetails{})
	if records == nil {
		t.Fatal("records = nil, want empty non-nil slice")
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}

	if got := ModelsForTable(core.ProviderGroq, nil); got == nil || len(got) != 0 {
		t.Errorf("nil details: records = %v, want empty non-nil slice", got)
	}
}
