// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jeranaias/rigrun-route/internal/config"
	"github.com/jeranaias/rigrun-route/internal/logging"
	"github.com/jeranaias/rigrun-route/internal/registry"
	"github.com/jeranaias/rigrun-route/internal/util"
)

// Engine identification stamped on every decision.
const (
	EngineName    = "rigrun-route"
	EngineVersion = "2.0.0"
)

// loadoutConfidence is the fixed confidence of a loadout substitution.
const loadoutConfidence = 0.9

// Observer receives every assembled decision (metrics, analytics).
type Observer interface {
	ObserveDecision(d *RoutingDecision)
}

// Router assembles routing decisions. Safe for concurrent use: all
// per-call state lives on the stack.
type Router struct {
	cfg      *config.Config
	reg      *registry.Registry
	sel      *selector
	now      func() time.Time
	newID    func() string
	log      *slog.Logger
	observer Observer
}

// Option configures a Router.
type Option func(*Router)

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithIDGenerator sets the decision id source.
func WithIDGenerator(fn func() string) Option {
	return func(r *Router) { r.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.log = l }
}

// WithObserver registers a decision observer.
func WithObserver(o Observer) Option {
	return func(r *Router) { r.observer = o }
}

// New creates a router. A nil reg uses cfg.Registry().
func New(cfg *config.Config, reg *registry.Registry, opts ...Option) *Router {
	if cfg == nil {
		cfg = config.Default()
	}
	if reg == nil {
		reg = cfg.Registry()
	}
	r := &Router{
		cfg:   cfg,
		reg:   reg,
		sel:   &selector{cfg: cfg, reg: reg},
		now:   time.Now,
		newID: uuid.NewString,
		log:   logging.WithComponent("router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the catalog the router selects from.
func (r *Router) Registry() *registry.Registry {
	return r.reg
}

// Config returns the configuration the router was built with.
func (r *Router) Config() *config.Config {
	return r.cfg
}

// ============================================================================
// DECISION ASSEMBLY
// ============================================================================

// Route classifies the task, selects a model, applies the loadout and
// budget rules and returns the validated decision.
//
// Sequence: classify -> complexity -> select -> loadout substitution ->
// budget check (re-select on overrun) -> assemble -> validate.
func (r *Router) Route(req Request) RoutingDecision {
	classification := ClassifyTask(req.Task)
	profile := AnalyzeComplexity(classification.Type, req.Task)

	in := selectionInput{
		taskType: classification.Type,
		task:     req.Task,
		profile:  profile,
		opts:     req.Options,
		spend:    req.CurrentSpend,
	}

	selection := r.sel.selectModel(in)

	if lo, ok := r.loadoutSelection(in, selection); ok {
		selection = lo
	}

	budget := CheckBudget(selection.CostEstimate, r.cfg.CostSettings, req.CurrentSpend)
	if budget.Status == BudgetInvalid {
		override := r.sel.costAwareSelection(in, selection.Reason, StageBudgetOverride)
		override.Reason += fmt.Sprintf(" (budget override: est $%.4f exceeds remaining $%.4f)",
			budget.Estimate, budget.Remaining)
		selection = override
	}

	d := RoutingDecision{
		ID:             r.newID(),
		Timestamp:      r.now(),
		Task:           req.Task,
		Classification: classification,
		Complexity:     profile,
		Selection:      selection,
		Loadout:        r.cfg.Loadout.Name,
		Options:        req.Options,
		TierInfo: &TierInfo{
			SelectedTier:      selection.Tier,
			CostEstimate:      selection.CostEstimate,
			PrivacyProtection: selection.PrivacyProtection,
			BudgetProtection:  selection.BudgetProtection,
		},
		Budget: budget,
		Metadata: DecisionMetadata{
			Version: EngineVersion,
			Engine:  EngineName,
		},
	}
	d.Validation = ValidateDecision(d, r.reg, r.cfg.Privacy.SensitiveTypes)

	r.log.Info("routing decision",
		"id", d.ID,
		"type", classification.Type,
		"confidence", classification.Confidence,
		"model", selection.Model,
		"tier", selection.Tier.String(),
		"stage", selection.Stage.String(),
		"cost", selection.CostEstimate,
		"fallbacks", len(selection.Fallbacks),
		"task", util.TruncateRunes(util.OneLine(req.Task), 60),
	)
	for _, w := range d.Validation.Warnings {
		r.log.Warn("routing warning", "id", d.ID, "warning", w)
	}
	for _, e := range d.Validation.Errors {
		r.log.Error("routing error", "id", d.ID, "error", e)
	}
	if r.observer != nil {
		r.observer.ObserveDecision(&d)
	}
	return d
}

// loadoutSelection substitutes the loadout model when one is configured and
// the caller did not force a tier or use case. The loadout model must exist,
// be reachable, stay local under privacy protection and be free under
// budget protection.
func (r *Router) loadoutSelection(in selectionInput, current ModelSelection) (ModelSelection, bool) {
	model := r.cfg.Loadout.Model
	if model == "" || in.opts.PreferTier != "" || in.opts.UseCase != "" {
		return ModelSelection{}, false
	}
	info, ok := r.reg.ModelInfo(model)
	switch {
	case !ok || !r.sel.available(model):
		r.log.Warn("loadout model unavailable", "loadout", r.cfg.Loadout.Name, "model", model)
		return ModelSelection{}, false
	case current.PrivacyProtection && !info.IsLocal():
		r.log.Warn("loadout model rejected by privacy protection", "loadout", r.cfg.Loadout.Name, "model", model)
		return ModelSelection{}, false
	case current.BudgetProtection && !info.IsFree():
		r.log.Warn("loadout model rejected by budget protection", "loadout", r.cfg.Loadout.Name, "model", model)
		return ModelSelection{}, false
	}

	name := r.cfg.Loadout.Name
	if name == "" {
		name = "active"
	}
	reason := fmt.Sprintf("loadout %s model", name)

	if current.PrivacyProtection || current.BudgetProtection {
		sel := r.sel.forcedLocal(in, model, reason, loadoutConfidence, StageLoadout,
			current.PrivacyProtection, current.BudgetProtection)
		return sel, true
	}
	return r.sel.finish(in, model, reason, loadoutConfidence, StageLoadout), true
}
