package config

import "github.com/charmbracelet/catwalk/pkg/catwalk"

// knownModels carries metadata for the models we see most, so token plots
// can be priced without a network fetch. Unknown models still work; they
// just report zero cost.
var knownModels = map[string]catwalk.Model{
	"gpt-4o-mini": {
		ID:               "gpt-4o-mini",
		Name:             "GPT-4o mini",
		CostPer1MIn:      0.15,
		CostPer1MOut:     0.60,
		ContextWindow:    128_000,
		DefaultMaxTokens: 4096,
	},
	"gpt-4o": {
		ID:               "gpt-4o",
		Name:             "GPT-4o",
		CostPer1MIn:      2.50,
		CostPer1MOut:     10.00,
		ContextWindow:    128_000,
		DefaultMaxTokens: 4096,
	},
	"gpt-4.1": {
		ID:               "gpt-4.1",
		Name:             "GPT-4.1",
		CostPer1MIn:      2.00,
		CostPer1MOut:     8.00,
		ContextWindow:    1_047_576,
		DefaultMaxTokens: 8192,
	},
	"claude-sonnet-4-20250514": {
		ID:               "claude-sonnet-4-20250514",
		Name:             "Claude Sonnet 4",
		CostPer1MIn:      3.00,
		CostPer1MOut:     15.00,
		ContextWindow:    200_000,
		DefaultMaxTokens: 8192,
	},
	"claude-3-5-haiku-20241022": {
		ID:               "claude-3-5-haiku-20241022",
		Name:             "Claude 3.5 Haiku",
		CostPer1MIn:      0.80,
		CostPer1MOut:     4.00,
		ContextWindow:    200_000,
		DefaultMaxTokens: 8192,
	},
}

func defaultModelFor(providerName string) string {
	if providerName == "anthropic" {
		return "claude-sonnet-4-20250514"
	}
	return "gpt-4o-mini"
}

// ResolveModel returns the configured model's metadata, falling back to a
// bare entry for models outside the known set.
func (c *Config) ResolveModel() catwalk.Model {
	if model, ok := knownModels[c.Model]; ok {
		return model
	}
	return catwalk.Model{
		ID:               c.Model,
		Name:             c.Model,
		DefaultMaxTokens: 4096,
	}
}
