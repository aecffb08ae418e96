// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-route/internal/logging"
	"github.com/jeranaias/rigrun-route/internal/registry"
	"github.com/jeranaias/rigrun-route/internal/router"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// ModelCaller invokes one model. An error or a blank answer counts as a
// failed attempt.
type ModelCaller interface {
	CallModel(ctx context.Context, prompt, model string) (string, error)
}

// LocalResult is the answer from the local last resort.
type LocalResult struct {
	Text  string
	Model string
}

// LocalFallback is the local-compute last resort tried once the chain is
// exhausted. A nil result with a nil error means nothing local could answer.
type LocalFallback interface {
	TryLocalTiers(ctx context.Context, prompt string) (*LocalResult, error)
}

// Observer receives every finished attempt and result (metrics, ledger).
type Observer interface {
	ObserveAttempt(a Attempt)
	ObserveResult(r *Result)
}

// =============================================================================
// RESULT TYPES
// =============================================================================

// Options are per-call execution switches.
type Options struct {
	// NoFallback stops after a failed primary and skips the last resort.
	NoFallback bool
	// DisableLocalFallback skips the last resort only.
	DisableLocalFallback bool
}

// Attempt is one model invocation. Attempts are appended in call order.
type Attempt struct {
	Model        string        `json:"model"`
	IsPrimary    bool          `json:"is_primary"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	Response     string        `json:"response,omitempty"`
	Tier         string        `json:"tier"`
	Latency      time.Duration `json:"-"`
	IsLastResort bool          `json:"is_last_resort,omitempty"`
}

// MarshalJSON reports Latency as whole milliseconds under latency_ms.
func (a Attempt) MarshalJSON() ([]byte, error) {
	type plain Attempt
	return json.Marshal(struct {
		plain
		LatencyMS int64 `json:"latency_ms"`
	}{plain(a), a.Latency.Milliseconds()})
}

// Result is the outcome of executing a decision.
type Result struct {
	Success          bool      `json:"success"`
	Model            string    `json:"model,omitempty"`
	Response         string    `json:"response"`
	Attempts         []Attempt `json:"attempts"`
	IsDockerFallback bool      `json:"is_docker_fallback"`
	DecisionID       string    `json:"decision_id,omitempty"`
}

// Failed returns the attempts that did not succeed.
func (r *Result) Failed() []Attempt {
	var out []Attempt
	for _, a := range r.Attempts {
		if !a.Success {
			out = append(out, a)
		}
	}
	return out
}

// =============================================================================
// ENGINE
// =============================================================================

// state is the execution state machine position.
type state int

const (
	stateTryingChain state = iota
	stateLocalFallback
	stateDone
)

// Engine executes routing decisions. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	caller   ModelCaller
	local    LocalFallback
	reg      *registry.Registry
	now      func() time.Time
	log      *slog.Logger
	observer Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocalFallback sets the last resort. Without one it is skipped.
func WithLocalFallback(l LocalFallback) Option {
	return func(e *Engine) { e.local = l }
}

// WithRegistry sets the catalog used to tag attempts with their tier.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) { e.reg = reg }
}

// WithClock sets the clock used for attempt latency.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithObserver registers an attempt/result observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// New creates an engine around caller.
func New(caller ModelCaller, opts ...Option) *Engine {
	e := &Engine{
		caller: caller,
		reg:    registry.Default(),
		now:    time.Now,
		log:    logging.WithComponent("executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run holds the state of one Execute call.
type run struct {
	ctx      context.Context
	prompt string
	opts   Options
	chain  []string
	result *Result
}

// Execute tries the decision's chain in order, then the local last resort.
// It never returns an error: total failure is a Result with Success false.
//
// ctx is passed to every collaborator unchanged. Each collaborator owns its
// own timeout. A nil decision has an empty chain and goes straight to the
// last resort.
func (e *Engine) Execute(ctx context.Context, prompt string, d *router.RoutingDecision, opts Options) *Result {
	r := &run{
		ctx:    ctx,
		prompt: prompt,
		opts:   opts,
		result: &Result{Attempts: []Attempt{}},
	}
	if d != nil {
		r.chain = d.Selection.Chain()
		r.result.DecisionID = d.ID
	} else {
		e.log.Warn("no routing decision, chain is empty")
	}

	st := stateTryingChain
	for st != stateDone {
		switch st {
		case stateTryingChain:
			st = e.tryChain(r)
		case stateLocalFallback:
			st = e.tryLocal(r)
		}
	}

	if !r.result.Success {
		r.result.Response = placeholder(r.result.Attempts)
		e.log.Error("all models failed",
			"decision", r.result.DecisionID,
			"attempts", len(r.result.Attempts),
		)
	}
	if e.observer != nil {
		e.observer.ObserveResult(r.result)
	}
	return r.result
}

// tryChain walks the chain until one model answers.
func (e *Engine) tryChain(r *run) state {
	for i, model := range r.chain {
		a := e.attempt(r, model, i == 0)
		if a.Success {
			r.result.Success = true
			r.result.Model = model
			r.result.Response = a.Response
			return stateDone
		}
		if r.opts.NoFallback && i == 0 {
			e.log.Info("primary failed, fallback disabled", "model", model)
			return stateDone
		}
		if i+1 < len(r.chain) {
			e.log.Warn("model failed, trying next",
				"model", model,
				"next", r.chain[i+1],
				"error", a.Error,
			)
		}
	}
	if r.opts.NoFallback || r.opts.DisableLocalFallback || e.local == nil {
		return stateDone
	}
	return stateLocalFallback
}

// attempt calls one model and records the outcome.
func (e *Engine) attempt(r *run, model string, primary bool) Attempt {
	start := e.now()
	resp, err := e.caller.CallModel(r.ctx, r.prompt, model)

	a := Attempt{
		Model:     model,
		IsPrimary: primary,
		Tier:      e.tierOf(model),
		Latency:   e.now().Sub(start),
	}
	switch {
	case err != nil:
		a.Error = err.Error()
	case strings.TrimSpace(resp) == "":
		a.Error = "empty response"
	default:
		a.Success = true
		a.Response = resp
	}
	e.record(r, a)
	return a
}

// tryLocal makes exactly one last-resort call.
func (e *Engine) tryLocal(r *run) state {
	e.log.Warn("chain exhausted, trying local last resort", "decision", r.result.DecisionID)

	start := e.now()
	res, err := e.local.TryLocalTiers(r.ctx, r.prompt)
	a := Attempt{
		Tier:         registry.TierLocalFast.String(),
		Latency:      e.now().Sub(start),
		IsLastResort: true,
	}
	if res != nil {
		a.Model = res.Model
		if info, ok := e.reg.ModelInfo(res.Model); ok {
			a.Tier = info.Tier.String()
		}
	}
	if a.Model == "" {
		a.Model = "local"
	}

	switch {
	case err != nil:
		a.Error = err.Error()
	case res == nil || strings.TrimSpace(res.Text) == "":
		a.Error = "no local model answered"
	default:
		a.Success = true
		a.Response = res.Text
		r.result.Success = true
		r.result.Model = a.Model
		r.result.Response = res.Text
		r.result.IsDockerFallback = true
	}
	e.record(r, a)
	return stateDone
}

func (e *Engine) record(r *run, a Attempt) {
	r.result.Attempts = append(r.result.Attempts, a)
	e.log.Debug("attempt",
		"model", a.Model,
		"primary", a.IsPrimary,
		"success", a.Success,
		"latency", a.Latency,
		"last_resort", a.IsLastResort,
	)
	if e.observer != nil {
		e.observer.ObserveAttempt(a)
	}
}

func (e *Engine) tierOf(model string) string {
	if info, ok := e.reg.ModelInfo(model); ok {
		return info.Tier.String()
	}
	return "unknown"
}

// placeholder is the response returned when nothing answered.
func placeholder(attempts []Attempt) string {
	if len(attempts) == 0 {
		return "No model could process this request: no models were tried."
	}
	tried := make([]string, 0, len(attempts))
	for _, a := range attempts {
		tried = append(tried, a.Model)
	}
	return fmt.Sprintf("No model could process this request. Tried: %s.", strings.Join(tried, ", "))
}
