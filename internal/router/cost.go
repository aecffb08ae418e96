// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/jeranaias/rigrun-route/internal/config"
	"github.com/jeranaias/rigrun-route/internal/registry"
)

// ============================================================================
// TOKEN ESTIMATION
// ============================================================================

// EstimateTokens estimates prompt+response tokens for a task:
// ceil(chars / chars_per_token x response_multiplier), floored at min_tokens.
// Characters are runes, not bytes.
func EstimateTokens(task string, cs config.CostConfig) int {
	charsPerToken := cs.CharsPerToken
	if charsPerToken <= 0 {
		charsPerToken = 4
	}
	multiplier := cs.ResponseMultiplier
	if multiplier <= 0 {
		multiplier = 2.5
	}

	tokens := int(math.Ceil(float64(utf8.RuneCountInString(task)) / charsPerToken * multiplier))
	if tokens < cs.MinTokens {
		return cs.MinTokens
	}
	return tokens
}

// EstimateCost returns the dollar cost of running task on model.
// Unknown models cost nothing.
func EstimateCost(reg *registry.Registry, model, task string, cs config.CostConfig) float64 {
	m, ok := reg.ModelInfo(model)
	if !ok || m.IsFree() {
		return 0
	}
	return m.CostPerToken * float64(EstimateTokens(task, cs))
}

// ============================================================================
// BUDGET CHECK
// ============================================================================

// BudgetStatus is the outcome of checking a cost against remaining budget.
type BudgetStatus int

const (
	BudgetValid BudgetStatus = iota
	BudgetWarning
	BudgetInvalid
)

func (s BudgetStatus) String() string {
	switch s {
	case BudgetValid:
		return "valid"
	case BudgetWarning:
		return "warning"
	case BudgetInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("BudgetStatus(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s BudgetStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// BudgetCheck records one cost-versus-budget comparison.
type BudgetCheck struct {
	Status    BudgetStatus `json:"status"`
	Estimate  float64      `json:"estimate"`
	Remaining float64      `json:"remaining"`
	// Unlimited is set when no monthly budget is configured; Remaining is
	// then meaningless.
	Unlimited bool   `json:"unlimited"`
	Message   string `json:"message,omitempty"`
}

// RemainingBudget returns monthly_budget - spend, and false if the budget
// is unlimited.
func RemainingBudget(cs config.CostConfig, spend float64) (float64, bool) {
	if cs.MonthlyBudget <= 0 {
		return 0, false
	}
	return cs.MonthlyBudget - spend, true
}

// CheckBudget compares estimate to the remaining budget.
// Costs above the remaining budget are invalid; costs above warn_fraction
// of it are valid with a warning. A zero estimate is always valid.
func CheckBudget(estimate float64, cs config.CostConfig, spend float64) BudgetCheck {
	remaining, limited := RemainingBudget(cs, spend)
	if !limited {
		return BudgetCheck{Status: BudgetValid, Estimate: estimate, Unlimited: true}
	}

	check := BudgetCheck{Status: BudgetValid, Estimate: estimate, Remaining: remaining}
	warnFraction := cs.WarnFraction
	if warnFraction <= 0 {
		warnFraction = 0.5
	}

	switch {
	case estimate > 0 && estimate > remaining:
		check.Status = BudgetInvalid
		check.Message = fmt.Sprintf("estimated cost $%.4f exceeds remaining budget $%.4f", estimate, remaining)
	case estimate > 0 && estimate > warnFraction*remaining:
		check.Status = BudgetWarning
		check.Message = fmt.Sprintf("estimated cost $%.4f is over %.0f%% of remaining budget $%.4f",
			estimate, warnFraction*100, remaining)
	}
	return check
}
