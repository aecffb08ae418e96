// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/rigrun-route/internal/executor"
	"github.com/jeranaias/rigrun-route/internal/logging"
	"github.com/jeranaias/rigrun-route/internal/offline"
	"github.com/jeranaias/rigrun-route/internal/registry"
)

var (
	// ErrUnknownModel is returned for ids missing from the registry.
	ErrUnknownModel = errors.New("unknown model")

	// ErrNoProvider is returned when no backend serves the model's provider.
	ErrNoProvider = errors.New("no provider configured")
)

// Generator answers one prompt with one provider-side model name.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Dispatcher routes CallModel to the provider registered for each model.
// Remote providers are throttled per provider and refused in offline mode.
type Dispatcher struct {
	reg       *registry.Registry
	providers map[string]Generator
	rpm       int
	log       *slog.Logger

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

var _ executor.ModelCaller = (*Dispatcher)(nil)

// New creates a dispatcher. requestsPerMinute <= 0 disables throttling.
func New(reg *registry.Registry, requestsPerMinute int) *Dispatcher {
	return &Dispatcher{
		reg:       reg,
		providers: make(map[string]Generator),
		rpm:       requestsPerMinute,
		log:       logging.WithComponent("dispatch"),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Register serves provider with g. A later call replaces the earlier one.
func (d *Dispatcher) Register(provider string, g Generator) {
	d.providers[provider] = g
}

// Providers returns the registered provider names.
func (d *Dispatcher) Providers() []string {
	out := make([]string, 0, len(d.providers))
	for name := range d.providers {
		out = append(out, name)
	}
	return out
}

// CallModel looks up model in the registry and sends prompt to its provider
// under the provider-side model name.
func (d *Dispatcher) CallModel(ctx context.Context, prompt, model string) (string, error) {
	info, ok := d.reg.ModelInfo(model)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	if err := offline.CheckProviderAllowed(info.Provider, info.IsLocal()); err != nil {
		return "", err
	}
	g, ok := d.providers[info.Provider]
	if !ok {
		return "", fmt.Errorf("%w: %s (model %s)", ErrNoProvider, info.Provider, model)
	}

	if !info.IsLocal() {
		if err := d.limiter(info.Provider).Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait for %s: %w", info.Provider, err)
		}
	}

	start := time.Now()
	text, err := g.Generate(ctx, info.WireName(), prompt)
	d.log.Debug("model call",
		"model", model,
		"provider", info.Provider,
		"duration", time.Since(start),
		"ok", err == nil,
	)
	if err != nil {
		return "", err
	}
	return text, nil
}

// limiter returns the provider's limiter, creating it on first use.
func (d *Dispatcher) limiter(provider string) *rate.Limiter {
	d.limiterMu.Lock()
	defer d.limiterMu.Unlock()

	if l, ok := d.limiters[provider]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Inf, 1)
	if d.rpm > 0 {
		burst := d.rpm / 10
		if burst < 1 {
			burst = 1
		}
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(d.rpm)), burst)
	}
	d.limiters[provider] = l
	return l
}
