// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch implements the executor's model caller.
//
// A Dispatcher maps each registry model to its provider (docker, ollama,
// anthropic, openai, google, openrouter) and sends the provider-side model
// name. Remote providers share a token-bucket limiter per provider
// (golang.org/x/time/rate) and are refused while offline mode is on.
package dispatch
