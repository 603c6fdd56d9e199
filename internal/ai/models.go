package ai

import "strings"

// ModelSpec pins the concrete model and token budget used for a call.
type ModelSpec struct {
	Name      string
	MaxTokens int
}

// modelTable is the enumerated fallback table mapping a requested model name
// (by substring pattern) to the ModelSpec actually used. Resolved once at
// construction, never consulted per request.
var modelTable = []struct {
	Pattern string
	Spec    ModelSpec
}{
	{"haiku", ModelSpec{Name: "claude-haiku-4-5-20251001", MaxTokens: 1024}},
	{"sonnet", ModelSpec{Name: "claude-sonnet-4-20250514", MaxTokens: 2048}},
	{"opus", ModelSpec{Name: "claude-opus-4-20250514", MaxTokens: 2048}},
}

var defaultModel = modelTable[0].Spec

// ResolveModel returns the ModelSpec for a requested model name. An exact table
// entry name wins, then the first pattern contained in the request, then the
// default.
func ResolveModel(requested string) ModelSpec {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if requested == "" {
		return defaultModel
	}
	for _, entry := range modelTable {
		if requested == entry.Spec.Name {
			return entry.Spec
		}
	}
	for _, entry := range modelTable {
		if strings.Contains(requested, entry.Pattern) {
			return entry.Spec
		}
	}
	return defaultModel
}
