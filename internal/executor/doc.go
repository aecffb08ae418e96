// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package executor runs a routing decision against its model chain.
//
// Models are tried one at a time in chain order: the selected model first,
// then each fallback. The first non-blank answer wins. When the whole chain
// fails, one call is made to the local last resort (Docker Model Runner or
// Ollama). Every call is recorded in the result's attempt log.
//
// Execute never returns an error. Total failure is reported as a Result
// with Success false and a placeholder response naming the tried models.
//
// Usage:
//
//	eng := executor.New(dispatcher, executor.WithLocalFallback(local))
//	res := eng.Execute(ctx, prompt, &decision, executor.Options{})
//	if !res.Success {
//	    fmt.Println(res.Response)
//	}
package executor
