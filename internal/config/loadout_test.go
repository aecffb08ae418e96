// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"testing"

	"github.com/jeranaias/rigrun-route/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLoadoutFrom(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "coder.yaml", `
model: qwen2.5-coder-7b
task_type_preferences:
  debug: deepseek-r1-14b
monthly_budget: 5
default_tier: heavy
intelligent_routing: false
`)

	lo, err := LoadLoadoutFrom(dir, "coder")
	require.NoError(t, err)
	assert.Equal(t, "coder", lo.Name)
	assert.Equal(t, "qwen2.5-coder-7b", lo.Model)
	require.NotNil(t, lo.MonthlyBudget)
	assert.Equal(t, 5.0, *lo.MonthlyBudget)
	require.NotNil(t, lo.DefaultTier)
	assert.Equal(t, registry.TierLocalHeavy, *lo.DefaultTier)
	assert.Nil(t, lo.CostAware)

	base := Default()
	cfg, err := base.WithLoadout(lo)
	require.NoError(t, err)
	assert.Equal(t, "coder", cfg.Loadout.Name)
	assert.Equal(t, "qwen2.5-coder-7b", cfg.Loadout.Model)
	assert.Equal(t, "deepseek-r1-14b", cfg.TaskTypePreferences["debug"])
	assert.Equal(t, 5.0, cfg.CostSettings.MonthlyBudget)
	assert.False(t, cfg.TierPreferences.IntelligentRouting)
	assert.True(t, cfg.CostSettings.CostAware, "unset fields keep the sheet value")

	assert.Empty(t, base.Loadout.Model, "base untouched")
	assert.True(t, base.TierPreferences.IntelligentRouting)
}

func TestLoadLoadoutFrom_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadLoadoutFrom(dir, "missing")
	assert.True(t, errors.Is(err, ErrLoadoutNotFound))

	_, err = LoadLoadoutFrom(dir, "../etc/passwd")
	assert.Error(t, err)

	writeFile(t, dir, "broken.yml", "model: [unclosed\n")
	_, err = LoadLoadoutFrom(dir, "broken")
	assert.Error(t, err)
}

func TestWithLoadout_RejectsUnknownModel(t *testing.T) {
	_, err := Default().WithLoadout(&Loadout{Name: "x", Model: "nonexistent"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loadout.model")
}
