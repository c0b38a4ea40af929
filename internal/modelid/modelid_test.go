package modelid

import (
	"testing"

	"keymate/internal/core"
)

func TestGuessProvider(t *testing.T) {
	tests := []struct {
		modelID string
		want    core.ProviderID
	}{
		{"gpt-4o", core.ProviderOpenAI},
		{"text-embedding-3-small", core.ProviderOpenAI},
		{"dall-e-3", core.ProviderOpenAI},
		{"whisper-1", core.ProviderOpenAI},
		{"gemini-1.5-pro", core.ProviderGemini},
		{"models/gemini-1.5-flash", core.ProviderGemini},
		{"deepseek-chat", core.ProviderDeepseek},
		{"claude-3-opus-20240229", core.ProviderClaude},
		{"grok-beta", core.ProviderGrok},
		{"llama-3-70b-8192", core.ProviderGroq},
		{"mixtral-8x7b-32768", core.ProviderGroq},
		{"gemma-7b-it", core.ProviderGroq},
		{"CLAUDE-3-HAIKU", core.ProviderClaude},
		{"anthropic.claude-v2", core.ProviderClaude},
		{"totally-unknown-model", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.modelID, func(t *testing.T) {
			if got := GuessProvider(tt.modelID); got != tt.want {
				t.Errorf("GuessProvider(%q) = %q, want %q", tt.modelID, got, tt.want)
			}
		})
	}
}

// Namespaced resource names must resolve on the namespace, not on whatever
// family name follows it.
func TestGuessProvider_NamespacedIDs(t *testing.T) {
	tests := []struct {
		modelID string
		want    core.ProviderID
	}{
		{"models/text-bison-001", core.ProviderGemini},
		{"models/chat-bison-001", core.ProviderGemini},
		{"models/aqa", core.ProviderGemini},
		{"text-bison-001", core.ProviderOpenAI},
	}

	for _, tt := range tests {
		t.Run(tt.modelID, func(t *testing.T) {
			if got := GuessProvider(tt.modelID); got != tt.want {
				t.Errorf("GuessProvider(%q) = %q, want %q", tt.modelID, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		modelID string
		want    Parts
	}{
		{"models/gemini-1.5-pro", Parts{Namespace: "models", Family: "gemini", Version: "1.5-pro"}},
		{"gpt-4o", Parts{Family: "gpt", Version: "4o"}},
		{"claude-3-opus-20240229", Parts{Family: "claude", Version: "3-opus-20240229"}},
		{"whisper", Parts{Family: "whisper"}},
		{"models/aqa", Parts{Namespace: "models", Family: "aqa"}},
		{"", Parts{}},
	}

	for _, tt := range tests {
		t.Run(tt.modelID, func(t *testing.T) {
			if got := Parse(tt.modelID); got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.modelID, got, tt.want)
			}
		})
	}
}
