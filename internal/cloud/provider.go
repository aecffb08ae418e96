// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout bounds a single cloud request.
const DefaultTimeout = 60 * time.Second

// defaultMaxTokens caps completion length for every provider.
const defaultMaxTokens = 4096

var (
	// ErrNotConfigured indicates the provider has no API key.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrEmptyResponse indicates the provider answered with no text.
	ErrEmptyResponse = errors.New("empty response")
)

// Provider generates a completion for a single user prompt.
type Provider interface {
	// Name is the registry provider identifier ("anthropic", "openai", ...).
	Name() string
	// Generate sends prompt to model and returns the answer text.
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Options configure an SDK-backed provider.
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// MaxRetries is handed to the SDK. Zero keeps the SDK default; use a
	// negative value to disable retries.
	MaxRetries int
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

// withTimeout applies the provider timeout on top of ctx.
func withTimeout(ctx context.Context, o Options) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.timeout())
}
