package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"keymate/internal/core"
)

// Rule maps a boolean flag name to the model-id substring whose presence in a
// listing sets it. The substrings themselves are provider domain knowledge
// and live with each adapter; only the matching mechanism is shared.
type Rule struct {
	Flag      string
	Substring string
}

// Bucket names a category and the id substring that selects into it. Buckets
// are independent filters: one id may land in several buckets, and ids that
// match none are collected under "other".
type Bucket struct {
	Name      string
	Substring string
}

// BucketOther collects ids that match no bucket substring.
const BucketOther = "other"

// ClassifyByIDSubstrings evaluates each rule against the id list with
// case-insensitive substring matching.
func ClassifyByIDSubstrings(ids []string, rules []Rule) map[string]bool {
	flags := make(map[string]bool, len(rules))
	for _, rule := range rules {
		flags[rule.Flag] = AnyContains(ids, rule.Substring)
	}
	return flags
}

// AnyContains reports whether any id contains the substring, ignoring case.
func AnyContains(ids []string, substr string) bool {
	substr = strings.ToLower(substr)
	for _, id := range ids {
		if strings.Contains(strings.ToLower(id), substr) {
			return true
		}
	}
	return false
}

// AnyFlag reports whether any classification flag is set.
func AnyFlag(flags map[string]bool) bool {
	for _, set := range flags {
		if set {
			return true
		}
	}
	return false
}

// BucketByIDSubstrings distributes ids over the buckets plus "other".
func BucketByIDSubstrings(ids []string, buckets []Bucket) map[string][]string {
	out := make(map[string][]string, len(buckets)+1)
	for _, b := range buckets {
		out[b.Name] = []string{}
	}
	out[BucketOther] = []string{}

	for _, id := range ids {
		lower := strings.ToLower(id)
		matched := false
		for _, b := range buckets {
			if strings.Contains(lower, strings.ToLower(b.Substring)) {
				out[b.Name] = append(out[b.Name], id)
				matched = true
			}
		}
		if !matched {
			out[BucketOther] = append(out[BucketOther], id)
		}
	}
	return out
}

// NullMetrics builds the per-model metrics list with null rate fields. No
// supported provider exposes rpm/rpd/tpm on its model listing.
func NullMetrics(ids []string) []core.ModelMetrics {
	metrics := make([]core.ModelMetrics, 0, len(ids))
	for _, id := range ids {
		metrics = append(metrics, core.ModelMetrics{ID: id})
	}
	return metrics
}

// IDsFromJSON extracts the model id list from a raw listing payload using a
// gjson path (e.g. "data.#.id" for OpenAI-shaped listings, "models.#.name"
// for Gemini's native shape).
func IDsFromJSON(body []byte, path string) []string {
	results := gjson.GetBytes(body, path).Array()
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if s := r.String(); s != "" {
			ids = append(ids, s)
		}
	}
	return ids
}

// FindModelJSON scans a listing payload for the entry whose id field equals
// modelID and returns that entry's raw JSON. Used by the GetModelInfo
// fallback when a provider has no usable per-model endpoint.
func FindModelJSON(body []byte, listPath, idField, modelID string) (json.RawMessage, bool) {
	for _, entry := range gjson.GetBytes(body, listPath).Array() {
		if entry.Get(idField).String() == modelID {
			return json.RawMessage(entry.Raw), true
		}
	}
	return nil, false
}

// FailureValidation renders a classified probe failure as the structured
// validation value for one provider. Rate limiting reads as "try again
// later", never as a bad key.
func FailureValidation(display string, pe *core.ProbeError) core.Validation {
	var message string
	switch pe.Class {
	case core.FailureAuthentication:
		message = fmt.Sprintf("Invalid %s API key - Authentication failed", display)
	case core.FailureAccessDenied:
		message = fmt.Sprintf("%s API key access denied - Check permissions", display)
	case core.FailureRateLimited:
		message = fmt.Sprintf("%s API rate limit exceeded - try again later", display)
	case core.FailureTimeout:
		message = fmt.Sprintf("%s API request timed out", display)
	case core.FailureTransport:
		message = fmt.Sprintf("%s API connection error", display)
	default:
		message = fmt.Sprintf("%s API error: %d", display, pe.StatusCode)
	}
	return core.Validation{
		Valid:      false,
		Message:    message,
		Failure:    pe.Class,
		StatusCode: pe.StatusCode,
	}
}
