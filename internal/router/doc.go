// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router decides which model tier and model handle a task.
//
// Tiers: local-fast -> local-heavy -> cloud
//
// # Key Types
//
//   - Router: assembles RoutingDecisions from a character sheet and registry
//   - TaskClassification: keyword-based task type with confidence
//   - ComplexityProfile: coarse complexity used to bias tier choice
//   - ModelSelection: chosen model, reason, cost estimate and fallback chain
//   - RoutingDecision: the immutable record handed to the executor
//
// # Privacy
//
// The privacy stage is ALWAYS evaluated first. Sensitive task types, privacy
// keywords in the task text, privacy mode and always_local all force a local
// model with a local-only fallback chain. No later stage can undo it.
//
// # Fallback Chains
//
// Every chain is duplicate-free and ends in a zero-cost local-fast model, so
// execution always has a free terminal option.
//
// # Usage
//
//	r := router.New(cfg, nil)
//	d := r.Route(router.Request{Task: task, CurrentSpend: spend})
//	if !d.Validation.Valid {
//	    // refuse to execute
//	}
//
// # Cost Estimation
//
// Tokens are estimated from task length (chars/4 x 2.5, minimum 100) and
// priced per model. Both constants are configurable in cost_settings.
package router
