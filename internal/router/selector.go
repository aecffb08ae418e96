// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/rigrun-route/internal/config"
	"github.com/jeranaias/rigrun-route/internal/registry"
)

// ============================================================================
// TIER & MODEL SELECTOR
// ============================================================================

// selector runs the first-match-wins selection stages against one
// configuration and registry.
type selector struct {
	cfg *config.Config
	reg *registry.Registry
}

// selectionInput is everything a stage may look at.
type selectionInput struct {
	taskType string
	task     string
	profile  ComplexityProfile
	opts     Options
	spend    float64
}

// stage returns ok=false to fall through to the next stage.
type stage func(in selectionInput) (ModelSelection, bool)

// selectModel evaluates the stages in fixed order. Order matters:
//  1. Privacy (forced local, terminal)
//  2. Explicit tier override
//  3. Cost-aware (forced local when budget is low, terminal)
//  4. Explicit use-case override
//  5. Intelligent tier from complexity
//  6. Character-sheet preference
//  7. Use-case match
//  8. Global fallback (always succeeds)
func (s *selector) selectModel(in selectionInput) ModelSelection {
	stages := []stage{
		s.privacyStage,
		s.tierOverrideStage,
		s.costAwareStage,
		s.useCaseOverrideStage,
		s.intelligentStage,
		s.preferenceStage,
		s.useCaseMatchStage,
	}
	for _, st := range stages {
		if sel, ok := st(in); ok {
			return sel
		}
	}
	return s.globalFallback(in)
}

// ----------------------------------------------------------------------------
// Stages
// ----------------------------------------------------------------------------

func (s *selector) privacyStage(in selectionInput) (ModelSelection, bool) {
	var trigger string
	switch {
	case in.opts.PrivacyMode:
		trigger = "privacy mode requested"
	case s.cfg.Privacy.AlwaysLocal:
		trigger = "character sheet requires local processing"
	case s.isSensitiveType(in.taskType):
		trigger = fmt.Sprintf("%s task", in.taskType)
	case matchesPrivacyPattern(in.task, s.cfg.Privacy.Keywords):
		trigger = "task text contains private data"
	default:
		return ModelSelection{}, false
	}

	model := s.bestLocal(TierLocalFast, in.taskType)
	return s.forcedLocal(in, model, "privacy protection: "+trigger, 1.0, StagePrivacy, true, false), true
}

func (s *selector) tierOverrideStage(in selectionInput) (ModelSelection, bool) {
	if in.opts.PreferTier == "" {
		return ModelSelection{}, false
	}
	tier, err := registry.ParseTier(in.opts.PreferTier)
	if err != nil {
		return ModelSelection{}, false
	}
	model, ok := s.bestInTier(tier, in.taskType)
	if !ok {
		return ModelSelection{}, false
	}
	return s.finish(in, model, fmt.Sprintf("explicit tier override: %s", tier), 1.0, StageTierOverride), true
}

func (s *selector) costAwareStage(in selectionInput) (ModelSelection, bool) {
	cs := s.cfg.CostSettings
	if !cs.CostAware {
		return ModelSelection{}, false
	}
	remaining, limited := RemainingBudget(cs, in.spend)
	if !limited || remaining >= cs.LowBudgetThreshold {
		return ModelSelection{}, false
	}
	reason := fmt.Sprintf("low budget: $%.2f remaining (threshold $%.2f), using local models",
		remaining, cs.LowBudgetThreshold)
	return s.costAwareSelection(in, reason, StageCostAware), true
}

// costAwareSelection picks a zero-cost local model: heavy when the profile
// needs reasoning or specialization, fast otherwise. The budget override
// calls it directly.
func (s *selector) costAwareSelection(in selectionInput, reason string, st Stage) ModelSelection {
	target := TierLocalFast
	if in.profile.RequiresSpecialization || in.profile.RequiresAdvancedReasoning {
		target = TierLocalHeavy
	}
	model := s.bestLocal(target, in.taskType)
	return s.forcedLocal(in, model, reason, 0.7, st, false, true)
}

func (s *selector) useCaseOverrideStage(in selectionInput) (ModelSelection, bool) {
	if in.opts.UseCase == "" {
		return ModelSelection{}, false
	}
	for _, id := range s.reg.ModelsByUseCase(in.opts.UseCase) {
		if s.available(id) {
			return s.finish(in, id, fmt.Sprintf("explicit use case: %s", in.opts.UseCase), 1.0, StageUseCaseOverride), true
		}
	}
	return ModelSelection{}, false
}

func (s *selector) intelligentStage(in selectionInput) (ModelSelection, bool) {
	if !s.cfg.TierPreferences.IntelligentRouting {
		return ModelSelection{}, false
	}

	p := in.profile
	var tier Tier
	var why string
	switch {
	case p.Level == ComplexityHigh && p.RequiresAdvancedReasoning:
		tier, why = TierCloud, "high complexity, advanced reasoning"
	case p.RequiresSpecialization || p.IsBatchProcessing:
		tier, why = TierLocalHeavy, "specialized or batch work"
	case p.Level == ComplexityLow || p.IsRoutine:
		tier, why = TierLocalFast, "routine task"
	default:
		tier, why = s.cfg.TierPreferences.Default, "default tier"
	}

	model, ok := s.bestInTier(tier, in.taskType)
	if !ok {
		return ModelSelection{}, false
	}
	return s.finish(in, model, fmt.Sprintf("intelligent routing: %s -> %s", why, tier), p.Confidence, StageIntelligent), true
}

func (s *selector) preferenceStage(in selectionInput) (ModelSelection, bool) {
	pref := s.cfg.TaskTypePreferences[strings.ToLower(in.taskType)]
	if pref == "" || !s.available(pref) {
		return ModelSelection{}, false
	}
	if remaining, limited := RemainingBudget(s.cfg.CostSettings, in.spend); limited {
		if EstimateCost(s.reg, pref, in.task, s.cfg.CostSettings) > remaining {
			return ModelSelection{}, false
		}
	}
	return s.finish(in, pref, fmt.Sprintf("character sheet preference for %s", in.taskType), 0.8, StagePreference), true
}

func (s *selector) useCaseMatchStage(in selectionInput) (ModelSelection, bool) {
	var candidates []string
	for _, id := range s.reg.ModelsByUseCase(in.taskType) {
		if s.available(id) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return ModelSelection{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, _ := s.reg.ModelInfo(candidates[i])
		b, _ := s.reg.ModelInfo(candidates[j])
		if ra, rb := s.tierRank(a.Tier), s.tierRank(b.Tier); ra != rb {
			return ra < rb
		}
		return a.PerformanceRating > b.PerformanceRating
	})
	return s.finish(in, candidates[0], fmt.Sprintf("use case match for %s", in.taskType), 0.6, StageUseCaseMatch), true
}

func (s *selector) globalFallback(in selectionInput) ModelSelection {
	model := s.cfg.FallbackBehavior.Fallback
	if model == "" || !s.available(model) {
		model = s.guaranteedLocal("")
	}
	return s.finish(in, model, "global fallback", 0.3, StageGlobalFallback)
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// finish fills tier, cost and the fallback chain for a selected model.
func (s *selector) finish(in selectionInput, model, reason string, confidence float64, st Stage) ModelSelection {
	info, _ := s.reg.ModelInfo(model)
	return ModelSelection{
		Model:        model,
		Reason:       reason,
		Confidence:   confidence,
		Tier:         info.Tier,
		CostEstimate: EstimateCost(s.reg, model, in.task, s.cfg.CostSettings),
		Fallbacks:    s.buildFallbacks(model, in.taskType),
		Stage:        st,
	}
}

// forcedLocal builds a zero-cost selection with a local-only chain.
func (s *selector) forcedLocal(in selectionInput, model, reason string, confidence float64, st Stage, privacy, budget bool) ModelSelection {
	info, ok := s.reg.ModelInfo(model)
	tier := TierLocalFast
	if ok {
		tier = info.Tier
	}
	return ModelSelection{
		Model:             model,
		Reason:            reason,
		Confidence:        confidence,
		Tier:              tier,
		CostEstimate:      0,
		Fallbacks:         s.localOnlyFallbacks(model),
		PrivacyProtection: privacy,
		BudgetProtection:  budget,
		Stage:             st,
	}
}

// available reports whether id is registered and reachable. Offline mode
// makes every remote model unavailable.
func (s *selector) available(id string) bool {
	m, ok := s.reg.ModelInfo(id)
	if !ok {
		return false
	}
	return !s.cfg.Cloud.Offline || m.IsLocal()
}

func (s *selector) isSensitiveType(taskType string) bool {
	for _, t := range s.cfg.Privacy.SensitiveTypes {
		if strings.EqualFold(t, taskType) {
			return true
		}
	}
	return false
}

// bestInTier returns the first available model in tier declaring useCase,
// else the highest-rated available model. Ties keep registry order.
func (s *selector) bestInTier(tier Tier, useCase string) (string, bool) {
	return s.bestMatching(tier, useCase, nil)
}

// bestMatching is bestInTier restricted to models satisfying keep (nil keeps all).
func (s *selector) bestMatching(tier Tier, useCase string, keep func(registry.ModelMetadata) bool) (string, bool) {
	var best string
	bestRating := 0.0
	for _, id := range s.reg.ModelsByTier(tier) {
		if !s.available(id) {
			continue
		}
		m, _ := s.reg.ModelInfo(id)
		if keep != nil && !keep(m) {
			continue
		}
		if m.HasUseCase(useCase) {
			return id, true
		}
		if best == "" || m.PerformanceRating > bestRating {
			best, bestRating = id, m.PerformanceRating
		}
	}
	return best, best != ""
}

// bestLocal picks a model that runs on this host, preferring tier, then the
// other local tier, then the guaranteed local model.
func (s *selector) bestLocal(tier Tier, useCase string) string {
	order := []Tier{TierLocalFast, TierLocalHeavy}
	if tier == TierLocalHeavy {
		order = []Tier{TierLocalHeavy, TierLocalFast}
	}
	for _, t := range order {
		if id, ok := s.bestMatching(t, useCase, registry.ModelMetadata.IsLocal); ok {
			return id
		}
	}
	return s.guaranteedLocal("")
}

// guaranteedLocal returns the configured zero-cost local-fast model, any
// other qualifying model except exclude, or exclude itself as a last resort.
// Falls back to the built-in default id when the registry has none.
func (s *selector) guaranteedLocal(exclude string) string {
	preferred := s.cfg.TierPreferences.GuaranteedLocal
	if preferred != exclude && s.reg.IsTerminal(preferred) {
		return preferred
	}
	for _, m := range s.reg.Models() {
		if m.ID != exclude && s.reg.IsTerminal(m.ID) {
			return m.ID
		}
	}
	if exclude != "" && s.reg.IsTerminal(exclude) {
		return exclude
	}
	if exclude == "" {
		return registry.DefaultLocalModel
	}
	return ""
}

// tierRank orders tiers by tier_preferences.order. Unlisted tiers sort last.
func (s *selector) tierRank(t Tier) int {
	for i, o := range s.cfg.TierPreferences.Order {
		if o == t {
			return i
		}
	}
	return len(s.cfg.TierPreferences.Order) + t.Order()
}
