// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider calls Google Gemini models.
type GeminiProvider struct {
	client *genai.Client
	opts   Options
}

// NewGeminiProvider creates a Gemini provider. The client is created
// eagerly so a bad key fails at construction.
func NewGeminiProvider(ctx context.Context, opts Options) (*GeminiProvider, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("google: %w", ErrNotConfigured)
	}

	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions.BaseURL = opts.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}
	return &GeminiProvider{client: client, opts: opts}, nil
}

// Name returns "google".
func (p *GeminiProvider) Name() string {
	return "google"
}

// Generate sends prompt to model and joins the first candidate's text parts.
func (p *GeminiProvider) Generate(ctx context.Context, model, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, p.opts)
	defer cancel()

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("google API error: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("google returned no candidates: %w", ErrEmptyResponse)
	}

	var sb strings.Builder
	if c := resp.Candidates[0].Content; c != nil {
		for _, part := range c.Parts {
			if part != nil && part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("google: %w", ErrEmptyResponse)
	}
	return sb.String(), nil
}
