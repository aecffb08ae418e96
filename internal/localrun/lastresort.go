// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package localrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jeranaias/rigrun-route/internal/executor"
	"github.com/jeranaias/rigrun-route/internal/logging"
	"github.com/jeranaias/rigrun-route/internal/registry"
)

// Generator answers one prompt with one model.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// availability is implemented by backends that can tell up front whether
// they are usable at all (the docker binary is on PATH).
type availability interface {
	Available() bool
}

// installedChecker is implemented by backends that can list their installed
// models (Ollama).
type installedChecker interface {
	ModelExists(ctx context.Context, model string) (bool, error)
}

// LastResort tries local models when every model in a chain has failed.
// Docker Model Runner goes first, then Ollama; the first non-blank answer
// wins.
type LastResort struct {
	reg    *registry.Registry
	models []string
	docker Generator
	ollama Generator
	log    *slog.Logger
}

var _ executor.LocalFallback = (*LastResort)(nil)

// Option configures a LastResort.
type Option func(*LastResort)

// WithDocker sets the Docker Model Runner backend.
func WithDocker(g Generator) Option {
	return func(l *LastResort) { l.docker = g }
}

// WithOllama sets the Ollama backend.
func WithOllama(g Generator) Option {
	return func(l *LastResort) { l.ollama = g }
}

// New creates a last resort over the given registry model ids.
func New(reg *registry.Registry, models []string, opts ...Option) *LastResort {
	l := &LastResort{
		reg:    reg,
		models: models,
		log:    logging.WithComponent("localrun"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// candidate is one backend call the last resort may make.
type candidate struct {
	id      string
	wire    string
	backend string
	gen     Generator
}

// plan lists the calls in order: every docker-served model, then every
// ollama-served model. Remote or unknown ids are skipped, as are models on
// a backend that reports itself unusable or the model not installed. The
// returned errors explain those last two skips.
func (l *LastResort) plan(ctx context.Context) ([]candidate, []error) {
	var docker, ollama []candidate
	var skipped []error

	dockerUp := l.docker != nil
	if a, ok := l.docker.(availability); ok && !a.Available() {
		dockerUp = false
	}

	for _, id := range l.models {
		info, ok := l.reg.ModelInfo(id)
		if !ok || !info.IsLocal() {
			l.log.Debug("skipping last resort model", "model", id)
			continue
		}
		switch info.Provider {
		case registry.ProviderDocker:
			if l.docker == nil {
				continue
			}
			if !dockerUp {
				skipped = append(skipped, fmt.Errorf("docker %s: %w", id, ErrDockerNotFound))
				continue
			}
			docker = append(docker, candidate{id, info.WireName(), "docker", l.docker})
		case registry.ProviderOllama:
			if l.ollama == nil {
				continue
			}
			if !l.installed(ctx, info.WireName()) {
				skipped = append(skipped, fmt.Errorf("ollama %s: model not installed", id))
				continue
			}
			ollama = append(ollama, candidate{id, info.WireName(), "ollama", l.ollama})
		}
	}
	return append(docker, ollama...), skipped
}

// installed reports whether the ollama backend has model. A backend that
// cannot list models, or fails to, is given the benefit of the doubt so the
// call itself reports the real error.
func (l *LastResort) installed(ctx context.Context, model string) bool {
	c, ok := l.ollama.(installedChecker)
	if !ok {
		return true
	}
	exists, err := c.ModelExists(ctx, model)
	if err != nil {
		l.log.Debug("could not list ollama models", "error", err)
		return true
	}
	return exists
}

// TryLocalTiers returns the first local answer. It returns (nil, nil) when
// no local model is configured, and the joined failures when every call
// failed or every model was skipped.
func (l *LastResort) TryLocalTiers(ctx context.Context, prompt string) (*executor.LocalResult, error) {
	candidates, errs := l.plan(ctx)
	for _, c := range candidates {
		text, err := c.gen.Generate(ctx, c.wire, prompt)
		if err != nil {
			l.log.Warn("last resort failed", "backend", c.backend, "model", c.id, "error", err)
			errs = append(errs, fmt.Errorf("%s %s: %w", c.backend, c.id, err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			errs = append(errs, fmt.Errorf("%s %s: empty response", c.backend, c.id))
			continue
		}
		l.log.Info("last resort answered", "backend", c.backend, "model", c.id)
		return &executor.LocalResult{Text: text, Model: c.id}, nil
	}
	return nil, errors.Join(errs...)
}
