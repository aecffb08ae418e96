// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"time"

	"github.com/jeranaias/rigrun-route/internal/registry"
)

// ============================================================================
// TIER TYPE
// ============================================================================

// Tier is the model tier enumeration. String identifiers only appear at the
// registry, config and JSON boundaries.
type Tier = registry.Tier

const (
	TierLocalFast  = registry.TierLocalFast
	TierLocalHeavy = registry.TierLocalHeavy
	TierCloud      = registry.TierCloud
)

// ============================================================================
// CLASSIFICATION
// ============================================================================

// Task types produced by the classifier besides the pattern names.
const (
	TaskUnknown = "unknown"
	TaskGeneral = "general"
)

// TaskClassification is the classifier output for one task. Never mutated.
type TaskClassification struct {
	Type       string   `json:"type"`
	Confidence float64  `json:"confidence"`
	Keywords   []string `json:"keywords"`
}

// ============================================================================
// COMPLEXITY
// ============================================================================

// ComplexityLevel is a coarse complexity estimate.
type ComplexityLevel int

const (
	ComplexityLow ComplexityLevel = iota
	ComplexityMedium
	ComplexityHigh
)

func (c ComplexityLevel) String() string {
	switch c {
	case ComplexityLow:
		return "low"
	case ComplexityMedium:
		return "medium"
	case ComplexityHigh:
		return "high"
	default:
		return fmt.Sprintf("Complexity(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c ComplexityLevel) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ComplexityProfile biases tier choice.
type ComplexityProfile struct {
	Level                     ComplexityLevel `json:"level"`
	Confidence                float64         `json:"confidence"`
	RequiresAdvancedReasoning bool            `json:"requires_advanced_reasoning"`
	RequiresSpecialization    bool            `json:"requires_specialization"`
	IsBatchProcessing         bool            `json:"is_batch_processing"`
	IsRoutine                 bool            `json:"is_routine"`
}

// ============================================================================
// SELECTION
// ============================================================================

// Stage identifies which selector stage produced a selection.
type Stage int

const (
	StagePrivacy Stage = iota + 1
	StageTierOverride
	StageCostAware
	StageUseCaseOverride
	StageIntelligent
	StagePreference
	StageUseCaseMatch
	StageGlobalFallback
	StageLoadout
	StageBudgetOverride
)

var stageNames = map[Stage]string{
	StagePrivacy:         "privacy",
	StageTierOverride:    "tier-override",
	StageCostAware:       "cost-aware",
	StageUseCaseOverride: "use-case-override",
	StageIntelligent:     "intelligent",
	StagePreference:      "preference",
	StageUseCaseMatch:    "use-case-match",
	StageGlobalFallback:  "global-fallback",
	StageLoadout:         "loadout",
	StageBudgetOverride:  "budget-override",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ModelSelection is the selector output. The assembler may replace it
// whole, once for a loadout and once for a budget override.
type ModelSelection struct {
	Model             string   `json:"model"`
	Reason            string   `json:"reason"`
	Confidence        float64  `json:"confidence"`
	Tier              Tier     `json:"tier"`
	CostEstimate      float64  `json:"cost_estimate"`
	Fallbacks         []string `json:"fallbacks"`
	PrivacyProtection bool     `json:"privacy_protection"`
	BudgetProtection  bool     `json:"budget_protection"`
	Stage             Stage    `json:"stage"`
}

// Chain returns the full attempt order: the model followed by its fallbacks.
// Each model appears once, so a primary that is also the guaranteed local
// model is not tried twice.
func (s ModelSelection) Chain() []string {
	chain := make([]string, 0, len(s.Fallbacks)+1)
	seen := make(map[string]bool, len(s.Fallbacks)+1)
	for _, id := range append([]string{s.Model}, s.Fallbacks...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		chain = append(chain, id)
	}
	return chain
}

// ============================================================================
// REQUEST / DECISION
// ============================================================================

// Options are per-call routing overrides.
type Options struct {
	// PrivacyMode forces local routing.
	PrivacyMode bool `json:"privacy_mode,omitempty"`
	// PreferTier is a tier name or alias ("fast", "heavy", "cloud", ...).
	PreferTier string `json:"prefer_tier,omitempty"`
	// UseCase selects the first model declaring it.
	UseCase string `json:"use_case,omitempty"`
}

// Request is one routing call.
type Request struct {
	Task    string
	Options Options
	// CurrentSpend is the month-to-date spend in USD, snapshotted by the
	// caller. The router never reads or writes spend itself.
	CurrentSpend float64
}

// TierInfo summarises the final selection for logging collaborators.
type TierInfo struct {
	SelectedTier      Tier    `json:"selected_tier"`
	CostEstimate      float64 `json:"cost_estimate"`
	PrivacyProtection bool    `json:"privacy_protection"`
	BudgetProtection  bool    `json:"budget_protection"`
}

// DecisionMetadata identifies the engine that produced a decision.
type DecisionMetadata struct {
	Version string `json:"version"`
	Engine  string `json:"engine"`
}

// RoutingDecision is the immutable output of Route.
type RoutingDecision struct {
	ID             string             `json:"id"`
	Timestamp      time.Time          `json:"timestamp"`
	Task           string             `json:"task"`
	Classification TaskClassification `json:"classification"`
	Complexity     ComplexityProfile  `json:"complexity"`
	Selection      ModelSelection     `json:"selection"`
	Loadout        string             `json:"loadout,omitempty"`
	Options        Options            `json:"options"`
	TierInfo       *TierInfo          `json:"tier_info"`
	Budget         BudgetCheck        `json:"budget"`
	Metadata       DecisionMetadata   `json:"metadata"`
	Validation     ValidationResult   `json:"validation"`
}
