// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"strings"

	"github.com/jeranaias/rigrun-route/internal/registry"
)

// ============================================================================
// DECISION VALIDATOR
// ============================================================================

// lowConfidenceThreshold flags classifications below it.
const lowConfidenceThreshold = 0.3

// ValidationResult holds non-fatal warnings and fatal errors for a decision.
// Callers must not execute a decision with errors.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

// ValidateDecision checks a decision against the registry. Pure.
//
// Errors are reserved for tier metadata misconfiguration: a registry with
// no zero-cost local-fast model, a chain not ending in one, or privacy
// protection on a cloud tier.
func ValidateDecision(d RoutingDecision, reg *registry.Registry, sensitiveTypes []string) ValidationResult {
	res := ValidationResult{Warnings: []string{}, Errors: []string{}}
	warn := func(format string, args ...interface{}) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
	}
	fail := func(format string, args ...interface{}) {
		res.Errors = append(res.Errors, fmt.Sprintf(format, args...))
	}

	sel := d.Selection
	info, found := reg.ModelInfo(sel.Model)
	if !found {
		warn("model %q not found in registry", sel.Model)
	}
	if d.Classification.Confidence < lowConfidenceThreshold {
		warn("low classification confidence (%.2f) for type %q", d.Classification.Confidence, d.Classification.Type)
	}
	if len(sel.Fallbacks) == 0 {
		warn("empty fallback chain")
	}
	if d.TierInfo == nil {
		warn("missing tier information")
	}
	if found && info.Tier == registry.TierCloud && sel.CostEstimate == 0 {
		warn("cloud model %q has no cost estimate", sel.Model)
	}
	for _, t := range sensitiveTypes {
		if strings.EqualFold(t, d.Classification.Type) && !sel.Tier.IsLocal() {
			warn("privacy-sensitive %q task routed to %s tier", d.Classification.Type, sel.Tier)
			break
		}
	}
	if d.Budget.Status == BudgetWarning {
		warn("budget: %s", d.Budget.Message)
	}

	if _, ok := reg.GuaranteedLocal(""); !ok {
		fail("registry has no zero-cost local-fast model")
	} else if n := len(sel.Fallbacks); n > 0 && !reg.IsTerminal(sel.Fallbacks[n-1]) {
		fail("fallback chain ends in %q, not a zero-cost local-fast model", sel.Fallbacks[n-1])
	}
	if sel.PrivacyProtection && !sel.Tier.IsLocal() {
		fail("privacy protection set on %s tier", sel.Tier)
	}

	res.Valid = len(res.Errors) == 0
	return res
}
