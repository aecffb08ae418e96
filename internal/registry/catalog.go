// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package registry

// Pricing is per token in USD.
//   - Claude Sonnet: $15/M output
//   - GPT-4o class: $30/M blended
//   - Gemini Pro: $2.5/M
//   - OpenRouter auto: $3/M average
var defaultCatalog = []ModelMetadata{
	{
		ID:                DefaultLocalModel,
		Tier:              TierLocalFast,
		UseCases:          []string{"general", "summarize", "sensitive", "quick", "write"},
		PerformanceRating: 6.0,
		Privacy:           PrivacyLocal,
		Provider:          ProviderDocker,
		ProviderModel:     "ai/smollm3",
	},
	{
		ID:                "llama3.2-3b",
		Tier:              TierLocalFast,
		UseCases:          []string{"general", "summarize", "write", "sensitive"},
		PerformanceRating: 6.5,
		Privacy:           PrivacyLocal,
		Provider:          ProviderOllama,
		ProviderModel:     "llama3.2:3b",
	},
	{
		ID:                "qwen2.5-coder-7b",
		Tier:              TierLocalHeavy,
		UseCases:          []string{"code", "debug"},
		PerformanceRating: 7.5,
		Privacy:           PrivacyLocal,
		Provider:          ProviderOllama,
		ProviderModel:     "qwen2.5-coder:7b",
	},
	{
		ID:                "deepseek-r1-14b",
		Tier:              TierLocalHeavy,
		UseCases:          []string{"analyze", "research", "plan", "debug"},
		PerformanceRating: 8.0,
		Privacy:           PrivacyLocal,
		Provider:          ProviderOllama,
		ProviderModel:     "deepseek-r1:14b",
	},
	{
		ID:                "claude",
		Tier:              TierCloud,
		CostPerToken:      0.000015,
		UseCases:          []string{"analyze", "research", "write", "code", "debug", "plan"},
		PerformanceRating: 9.5,
		Privacy:           PrivacyRemote,
		Provider:          ProviderAnthropic,
		ProviderModel:     "claude-sonnet-4-20250514",
	},
	{
		ID:                "gpt-4",
		Tier:              TierCloud,
		CostPerToken:      0.00003,
		UseCases:          []string{"analyze", "code", "write", "research"},
		PerformanceRating: 9.0,
		Privacy:           PrivacyRemote,
		Provider:          ProviderOpenAI,
		ProviderModel:     "gpt-4o",
	},
	{
		ID:                "gemini-pro",
		Tier:              TierCloud,
		CostPerToken:      0.0000025,
		UseCases:          []string{"research", "summarize", "analyze"},
		PerformanceRating: 8.5,
		Privacy:           PrivacyRemote,
		Provider:          ProviderGoogle,
		ProviderModel:     "gemini-2.0-pro",
	},
	{
		ID:                "openrouter-auto",
		Tier:              TierCloud,
		CostPerToken:      0.000003,
		UseCases:          []string{"general"},
		PerformanceRating: 8.0,
		Privacy:           PrivacyRemote,
		Provider:          ProviderOpenRouter,
		ProviderModel:     "openrouter/auto",
	},
}

// Default returns the built-in catalog.
func Default() *Registry {
	return New(defaultCatalog...)
}
