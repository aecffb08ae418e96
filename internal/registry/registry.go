// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package registry holds the static model catalog used for routing.
//
// Each entry maps a model identifier to its tier, per-token cost, declared
// use cases, performance rating and privacy class. The catalog is read-only
// once built; callers that need extra models build a new Registry with With.
//
// Iteration order is significant: "best model in tier" ties are broken by
// registry order, so the default catalog lists preferred models first.
package registry

import (
	"sort"
	"strings"
)

// Provider names the adapter family that serves a model.
const (
	ProviderDocker     = "docker"
	ProviderOllama     = "ollama"
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGoogle     = "google"
	ProviderOpenRouter = "openrouter"
)

// IsRemoteProvider reports whether provider sends prompts off the host.
// Unknown and empty names are not remote.
func IsRemoteProvider(provider string) bool {
	switch strings.ToLower(provider) {
	case ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderOpenRouter:
		return true
	}
	return false
}

// DefaultLocalModel is the always-available zero-cost local-fast model.
const DefaultLocalModel = "smollm3-1.7b"

// ModelMetadata is the static description of one model.
type ModelMetadata struct {
	ID                string   `toml:"id" json:"id" yaml:"id"`
	Tier              Tier     `toml:"tier" json:"tier" yaml:"tier"`
	CostPerToken      float64  `toml:"cost_per_token" json:"cost_per_token" yaml:"cost_per_token"`
	UseCases          []string `toml:"use_cases" json:"use_cases" yaml:"use_cases"`
	PerformanceRating float64  `toml:"performance_rating" json:"performance_rating" yaml:"performance_rating"`
	Privacy           Privacy  `toml:"privacy" json:"privacy" yaml:"privacy"`

	// Provider selects the adapter ("docker", "ollama", "anthropic", ...).
	Provider string `toml:"provider" json:"provider" yaml:"provider"`
	// ProviderModel is the wire name sent to the provider. Defaults to ID.
	ProviderModel string `toml:"provider_model,omitempty" json:"provider_model,omitempty" yaml:"provider_model,omitempty"`
}

// HasUseCase reports whether the model declares the given use case.
func (m ModelMetadata) HasUseCase(useCase string) bool {
	useCase = strings.ToLower(useCase)
	for _, uc := range m.UseCases {
		if strings.ToLower(uc) == useCase {
			return true
		}
	}
	return false
}

// IsFree returns true if the model has no per-token cost.
func (m ModelMetadata) IsFree() bool {
	return m.CostPerToken == 0
}

// IsLocal returns true if the model runs on the local host.
func (m ModelMetadata) IsLocal() bool {
	return m.Tier.IsLocal() && m.Privacy == PrivacyLocal
}

// WireName returns the identifier sent to the provider.
func (m ModelMetadata) WireName() string {
	if m.ProviderModel != "" {
		return m.ProviderModel
	}
	return m.ID
}

// Registry is an ordered, read-only model catalog.
type Registry struct {
	models []ModelMetadata
	index  map[string]int
}

// New builds a registry from the given models. A later entry with an ID
// already present replaces the earlier one in place.
func New(models ...ModelMetadata) *Registry {
	r := &Registry{index: make(map[string]int, len(models))}
	for _, m := range models {
		r.put(m)
	}
	return r
}

func (r *Registry) put(m ModelMetadata) {
	if m.ID == "" {
		return
	}
	// Remote tiers and remote providers are never private, whatever the
	// declaration says.
	if m.Tier == TierCloud || IsRemoteProvider(m.Provider) {
		m.Privacy = PrivacyRemote
	}
	m.UseCases = append([]string(nil), m.UseCases...)
	if i, ok := r.index[m.ID]; ok {
		r.models[i] = m
		return
	}
	r.index[m.ID] = len(r.models)
	r.models = append(r.models, m)
}

// With returns a new registry containing r's models overlaid with extra.
func (r *Registry) With(extra ...ModelMetadata) *Registry {
	all := make([]ModelMetadata, 0, len(r.models)+len(extra))
	all = append(all, r.models...)
	all = append(all, extra...)
	return New(all...)
}

// ModelInfo returns the metadata for id.
func (r *Registry) ModelInfo(id string) (ModelMetadata, bool) {
	i, ok := r.index[id]
	if !ok {
		return ModelMetadata{}, false
	}
	return r.models[i], true
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Models returns every model in registry order.
func (r *Registry) Models() []ModelMetadata {
	out := make([]ModelMetadata, len(r.models))
	copy(out, r.models)
	return out
}

// ModelsByTier returns the IDs of models in tier, in registry order.
func (r *Registry) ModelsByTier(tier Tier) []string {
	var ids []string
	for _, m := range r.models {
		if m.Tier == tier {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// ModelsByUseCase returns the IDs of models declaring useCase, in registry order.
func (r *Registry) ModelsByUseCase(useCase string) []string {
	var ids []string
	for _, m := range r.models {
		if m.HasUseCase(useCase) {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// SortByRating orders ids by performance rating, highest first.
// Equal ratings keep their input order.
func (r *Registry) SortByRating(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.SliceStable(out, func(i, j int) bool {
		return r.rating(out[i]) > r.rating(out[j])
	})
	return out
}

func (r *Registry) rating(id string) float64 {
	m, _ := r.ModelInfo(id)
	return m.PerformanceRating
}

// GuaranteedLocal returns the zero-cost local-fast model that terminates
// every fallback chain. preferred wins if it qualifies, otherwise the first
// qualifying model in registry order. ok is false if none qualifies.
func (r *Registry) GuaranteedLocal(preferred string) (string, bool) {
	if m, found := r.ModelInfo(preferred); found && qualifiesTerminal(m) {
		return m.ID, true
	}
	for _, m := range r.models {
		if qualifiesTerminal(m) {
			return m.ID, true
		}
	}
	return "", false
}

// IsTerminal reports whether id may end a fallback chain.
func (r *Registry) IsTerminal(id string) bool {
	m, ok := r.ModelInfo(id)
	return ok && qualifiesTerminal(m)
}

func qualifiesTerminal(m ModelMetadata) bool {
	return m.Tier == TierLocalFast && m.IsFree() && m.Privacy == PrivacyLocal
}
