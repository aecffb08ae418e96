// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"github.com/jeranaias/rigrun-route/internal/config"
	"github.com/jeranaias/rigrun-route/internal/registry"
)

// ============================================================================
// FALLBACK CHAIN BUILDER
// ============================================================================

// chainBuilder accumulates a duplicate-free chain that never repeats the
// primary model.
type chainBuilder struct {
	primary string
	seen    map[string]bool
	ids     []string
}

func newChainBuilder(primary string) *chainBuilder {
	return &chainBuilder{primary: primary, seen: map[string]bool{primary: true}}
}

func (c *chainBuilder) add(ids ...string) {
	for _, id := range ids {
		if id == "" || c.seen[id] {
			continue
		}
		c.seen[id] = true
		c.ids = append(c.ids, id)
	}
}

// terminate moves id to the end of the chain, appending it if absent.
// id may equal the primary only when no other terminal model exists.
func (c *chainBuilder) terminate(id string) []string {
	if id == "" {
		return c.ids
	}
	out := make([]string, 0, len(c.ids)+1)
	for _, existing := range c.ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return append(out, id)
}

// buildFallbacks concatenates, in order:
//  1. same-tier alternatives by rating
//  2. lower-tier models declaring the task type (nearest tier first), by rating
//  3. the configured fallback model
//  4. the guaranteed zero-cost local-fast model, always last
func (s *selector) buildFallbacks(primary, taskType string) []string {
	b := newChainBuilder(primary)

	if info, ok := s.reg.ModelInfo(primary); ok {
		b.add(s.reg.SortByRating(s.filter(s.reg.ModelsByTier(info.Tier), nil))...)

		for _, lower := range info.Tier.Lower() {
			matches := s.filter(s.reg.ModelsByTier(lower), func(m registry.ModelMetadata) bool {
				return m.HasUseCase(taskType)
			})
			b.add(s.reg.SortByRating(matches)...)
		}
	}

	if fb := s.cfg.FallbackBehavior.Fallback; fb != "" && s.available(fb) {
		b.add(fb)
	}

	return b.terminate(s.guaranteedLocal(primary))
}

// localOnlyFallbacks is the chain for privacy- and budget-forced selections.
// It only ever contains free local models: same-tier alternatives, the other
// local tier, then the guaranteed model.
func (s *selector) localOnlyFallbacks(primary string) []string {
	b := newChainBuilder(primary)

	tier := TierLocalFast
	if info, ok := s.reg.ModelInfo(primary); ok && info.Tier.IsLocal() {
		tier = info.Tier
	}
	others := []Tier{TierLocalHeavy}
	if tier == TierLocalHeavy {
		others = []Tier{TierLocalFast}
	}

	localFree := func(m registry.ModelMetadata) bool { return m.IsLocal() && m.IsFree() }
	b.add(s.reg.SortByRating(s.filter(s.reg.ModelsByTier(tier), localFree))...)
	for _, t := range others {
		b.add(s.reg.SortByRating(s.filter(s.reg.ModelsByTier(t), localFree))...)
	}

	return b.terminate(s.guaranteedLocal(primary))
}

// filter keeps available ids satisfying keep (nil keeps all).
func (s *selector) filter(ids []string, keep func(registry.ModelMetadata) bool) []string {
	var out []string
	for _, id := range ids {
		if !s.available(id) {
			continue
		}
		m, _ := s.reg.ModelInfo(id)
		if keep == nil || keep(m) {
			out = append(out, id)
		}
	}
	return out
}

// BuildFallbackChain returns the fallback chain for primary under cfg.
func BuildFallbackChain(cfg *config.Config, reg *registry.Registry, primary, taskType string) []string {
	s := &selector{cfg: cfg, reg: reg}
	return s.buildFallbacks(primary, taskType)
}
