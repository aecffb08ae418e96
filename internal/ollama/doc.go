// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama server.
//
// Only non-streaming calls are exposed: Generate for one-shot prompts and
// Chat for message lists. Errors are *ClientError values; use IsNotRunning,
// IsTimeout and IsModelNotFound to branch on them.
package ollama
