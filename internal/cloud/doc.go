// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the remote model providers.
//
// Each provider implements Provider: one prompt in, one answer out.
//
//   - AnthropicProvider: Claude via github.com/anthropics/anthropic-sdk-go
//   - OpenAIProvider: GPT via github.com/openai/openai-go
//   - GeminiProvider: Gemini via google.golang.org/genai
//   - OpenRouterClient: any OpenRouter model over its OpenAI-compatible API
//
// Providers apply their own request timeout (DefaultTimeout unless set) on
// top of the caller's context. API keys are never logged.
//
// # Usage
//
//	p, err := cloud.NewAnthropicProvider(cloud.Options{APIKey: key})
//	if err != nil {
//	    return err
//	}
//	text, err := p.Generate(ctx, "claude-sonnet-4-20250514", prompt)
package cloud
