// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/rigrun-route/internal/cloud"
	"github.com/jeranaias/rigrun-route/internal/config"
	"github.com/jeranaias/rigrun-route/internal/localrun"
	"github.com/jeranaias/rigrun-route/internal/offline"
	"github.com/jeranaias/rigrun-route/internal/ollama"
	"github.com/jeranaias/rigrun-route/internal/registry"
)

// FromConfig builds a dispatcher with every provider cfg can serve.
// Remote providers without an API key are left unregistered; calls to
// their models fail with ErrNoProvider and the chain moves on.
func FromConfig(ctx context.Context, cfg *config.Config, reg *registry.Registry) (*Dispatcher, error) {
	d := New(reg, cfg.Cloud.RequestsPerMinute)

	if err := offline.ValidateURLForOfflineMode(cfg.Local.OllamaURL); err != nil {
		return nil, fmt.Errorf("ollama url: %w", err)
	}
	localTimeout := time.Duration(cfg.Local.TimeoutSecs) * time.Second
	d.Register(registry.ProviderOllama, ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL: cfg.Local.OllamaURL,
		Timeout: localTimeout,
	}))
	d.Register(registry.ProviderDocker, localrun.NewDockerRunner(cfg.Local.DockerBinary, localTimeout))

	if cfg.Cloud.Offline {
		d.log.Info("offline mode: remote providers not registered")
		return d, nil
	}

	opts := func(key string) cloud.Options {
		return cloud.Options{APIKey: key, Timeout: time.Duration(cfg.Cloud.TimeoutSecs) * time.Second}
	}

	if cfg.Cloud.AnthropicKey != "" {
		p, err := cloud.NewAnthropicProvider(opts(cfg.Cloud.AnthropicKey))
		if err != nil {
			return nil, err
		}
		d.Register(registry.ProviderAnthropic, p)
	}
	if cfg.Cloud.OpenAIKey != "" {
		p, err := cloud.NewOpenAIProvider(opts(cfg.Cloud.OpenAIKey))
		if err != nil {
			return nil, err
		}
		d.Register(registry.ProviderOpenAI, p)
	}
	if cfg.Cloud.GoogleKey != "" {
		p, err := cloud.NewGeminiProvider(ctx, opts(cfg.Cloud.GoogleKey))
		if err != nil {
			return nil, err
		}
		d.Register(registry.ProviderGoogle, p)
	}
	if cfg.Cloud.OpenRouterKey != "" {
		d.Register(registry.ProviderOpenRouter,
			cloud.NewOpenRouterClient(cfg.Cloud.OpenRouterKey).
				WithTimeout(time.Duration(cfg.Cloud.TimeoutSecs)*time.Second))
	}

	d.log.Debug("providers registered", "providers", d.Providers())
	return d, nil
}

// LastResortFromConfig builds the executor's local last resort from the
// same local settings the dispatcher uses.
func LastResortFromConfig(cfg *config.Config, reg *registry.Registry) *localrun.LastResort {
	timeout := time.Duration(cfg.Local.TimeoutSecs) * time.Second
	return localrun.New(reg, cfg.Local.LastResortModels,
		localrun.WithDocker(localrun.NewDockerRunner(cfg.Local.DockerBinary, timeout)),
		localrun.WithOllama(ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL: cfg.Local.OllamaURL,
			Timeout: timeout,
		})),
	)
}
