// Package modelid classifies model identifiers offline: guessing the owning
// provider from naming conventions and splitting an id into coarse parts. No
// network calls happen here, so guesses are heuristics and say nothing about
// whether a credential can actually reach the model.
package modelid

import (
	"strings"

	"keymate/internal/core"
)

// guessRules map id prefixes to providers, checked in order. The first rule
// whose prefix matches (case-insensitive) wins. Prefix matching keeps the
// rules mutually exclusive on real ids: "models/text-bison-001" is a Gemini
// resource name, not an OpenAI "text-" model.
var guessRules = []struct {
	prefix   string
	provider core.ProviderID
}{
	{"gpt-", core.ProviderOpenAI},
	{"text-", core.ProviderOpenAI},
	{"dall-e", core.ProviderOpenAI},
	{"whisper", core.ProviderOpenAI},
	{"gemini", core.ProviderGemini},
	{"models/", core.ProviderGemini},
	{"deepseek", core.ProviderDeepseek},
	{"claude", core.ProviderClaude},
	{"anthropic", core.ProviderClaude},
	{"grok", core.ProviderGrok},
	{"xai", core.ProviderGrok},
	{"llama", core.ProviderGroq},
	{"mixtral", core.ProviderGroq},
	{"gemma", core.ProviderGroq},
	{"gsk_", core.ProviderGroq},
}

// GuessProvider returns the provider a model id most likely belongs to, or ""
// when no convention matches.
func GuessProvider(modelID string) core.ProviderID {
	lower := strings.ToLower(modelID)
	for _, rule := range guessRules {
		if strings.HasPrefix(lower, rule.prefix) {
			return rule.provider
		}
	}
	return ""
}

// Parts is the coarse decomposition of a model id.
type Parts struct {
	Namespace string `json:"namespace"`
	Family    string `json:"family"`
	Version   string `json:"version"`
}

// Parse splits a model id into namespace, family, and version. A leading
// "models/" resource prefix becomes the namespace; the family is everything up
// to the first hyphen and the version is the remainder. "models/gemini-1.5-pro"
// parses to {models, gemini, 1.5-pro}; "gpt-4o" to {"", gpt, 4o}. The split is
// deliberately naive: ids with no hyphen get the whole tail as family.
func Parse(modelID string) Parts {
	var parts Parts
	rest := modelID
	if strings.HasPrefix(rest, "models/") {
		parts.Namespace = "models"
		rest = strings.TrimPrefix(rest, "models/")
	}
	if i := strings.Index(rest, "-"); i >= 0 {
		parts.Family = rest[:i]
		parts.Version = rest[i+1:]
	} else {
		parts.Family = rest
	}
	return parts
}
