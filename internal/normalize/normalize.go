// Package normalize flattens per-provider model listings into uniform records
// suitable for tabular rendering and cross-provider comparison.
package normalize

import (
	"strings"

	"keymate/internal/core"
)

// classifiedProviders gate the chat/embedding split. Only openai and gemini
// listings mix embedding models with chat models; every other provider's
// records stay Unknown rather than guessing.
var classifiedProviders = map[core.ProviderID]bool{
	core.ProviderOpenAI: true,
	core.ProviderGemini: true,
}

// ModelsForTable converts a provider's model details into flat records. The
// result is never nil: an empty listing yields an empty slice. Context length
// and creation time stay nil because no supported listing carries them.
func ModelsForTable(provider core.ProviderID, details *core.ModelDetails) []core.ModelRecord {
	records := make([]core.ModelRecord, 0)
	if details == nil {
		return records
	}
	known := classifiedProviders[provider]
	for _, id := range details.AllModels {
		typ := core.ModelTypeUnknown
		if known {
			if strings.Contains(strings.ToLower(id), "embedding") {
				typ = core.ModelTypeEmbedding
			} else {
				typ = core.ModelTypeChat
			}
		}
		records = append(records, core.ModelRecord{
			Provider: provider,
			ModelID:  id,
			Type:     typ,
			Status:   core.ModelStatusAvailable,
		})
	}
	return records
}
