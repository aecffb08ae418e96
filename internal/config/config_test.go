// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/rigrun-route/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2.0, cfg.CostSettings.LowBudgetThreshold)
	assert.Equal(t, 2.5, cfg.CostSettings.ResponseMultiplier)
	assert.Equal(t, 4.0, cfg.CostSettings.CharsPerToken)
	assert.Equal(t, 100, cfg.CostSettings.MinTokens)
	assert.True(t, cfg.TierPreferences.IntelligentRouting)
	assert.Equal(t, registry.AllTiers, cfg.TierPreferences.Order)
	assert.Equal(t, registry.DefaultLocalModel, cfg.FallbackBehavior.Fallback)
}

func TestLoadFromPath_TOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "character.toml", `
version = "2"

[task_type_preferences]
Debug = "qwen2.5-coder-7b"

[cost_settings]
monthly_budget = 10.0
low_budget_threshold = 1.5

[tier_preferences]
default = "heavy"
order = ["cloud", "local-fast"]

[[models]]
id = "phi-4"
tier = "local-heavy"
use_cases = ["code"]
performance_rating = 7.2
provider = "ollama"
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "qwen2.5-coder-7b", cfg.TaskTypePreferences["debug"], "keys are lower-cased")
	assert.Equal(t, 10.0, cfg.CostSettings.MonthlyBudget)
	assert.Equal(t, 1.5, cfg.CostSettings.LowBudgetThreshold)
	assert.Equal(t, 0.5, cfg.CostSettings.WarnFraction, "untouched fields keep defaults")
	assert.Equal(t, registry.TierLocalHeavy, cfg.TierPreferences.Default)
	assert.Equal(t, []registry.Tier{registry.TierCloud, registry.TierLocalFast}, cfg.TierPreferences.Order)

	m, ok := cfg.Registry().ModelInfo("phi-4")
	require.True(t, ok)
	assert.Equal(t, registry.TierLocalHeavy, m.Tier)
}

func TestLoadFromPath_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "character.json", `{
  "fallback_behavior": {"fallback": "llama3.2-3b", "no_fallback": true},
  "loadout": {"name": "quick", "model": "smollm3-1.7b"}
}`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "llama3.2-3b", cfg.FallbackBehavior.Fallback)
	assert.True(t, cfg.FallbackBehavior.NoFallback)
	assert.Equal(t, "smollm3-1.7b", cfg.Loadout.Model)
}

func TestLoadFromPath_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"negative budget", "[cost_settings]\nmonthly_budget = -1\n", "cost_settings.monthly_budget"},
		{"warn fraction", "[cost_settings]\nwarn_fraction = 3.0\n", "cost_settings.warn_fraction"},
		{"unknown fallback", "[fallback_behavior]\nfallback = \"nope\"\n", "fallback_behavior.fallback"},
		{"duplicate order", "[tier_preferences]\norder = [\"cloud\", \"api\"]\n", "tier_preferences.order"},
		{"log level", "[logging]\nlevel = \"loud\"\n", "logging.level"},
		{"bad url", "[local]\nollama_url = \"not a url\"\n", "local.ollama_url"},
		{"remote provider without tier", "[[models]]\nid = \"mistral-remote\"\nprovider = \"openrouter\"\n", "models[0].tier"},
		{"remote provider on local tier", "[[models]]\nid = \"sneaky\"\ntier = \"local-heavy\"\nprovider = \"anthropic\"\nprivacy = \"local\"\n", "models[0].tier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".toml", tt.content)
			_, err := LoadFromPath(path)
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs), "want ValidateErrors, got %v", err)
			var fields []string
			for _, e := range verrs {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestLoadFromPath_RemoteCloudModelIsNeverLocal(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.toml", `
[[models]]
id = "mistral-remote"
tier = "cloud"
provider = "openrouter"
privacy = "local"
cost_per_token = 0.000002
`)
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	m, ok := cfg.Registry().ModelInfo("mistral-remote")
	require.True(t, ok)
	assert.Equal(t, registry.PrivacyRemote, m.Privacy)
	assert.False(t, m.IsLocal())
}

func TestLoadFromPath_BadTier(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.toml", "[tier_preferences]\ndefault = \"gigantic\"\n")
	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestLoad_FallsBackToDefaults(t *testing.T) {
	t.Setenv("RIGRUN_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, cfg.Version)
}

func TestLoad_PrefersTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RIGRUN_HOME", dir)
	writeFile(t, dir, "character.toml", "[cost_settings]\nmonthly_budget = 3.0\n")
	writeFile(t, dir, "character.json", `{"cost_settings": {"monthly_budget": 9.0}}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3.0, cfg.CostSettings.MonthlyBudget)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RIGRUN_MONTHLY_BUDGET", "25.5")
	t.Setenv("RIGRUN_FALLBACK_MODEL", "llama3.2-3b")
	t.Setenv("RIGRUN_DEFAULT_TIER", "cloud")
	t.Setenv("RIGRUN_OFFLINE", "true")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("RIGRUN_OPENROUTER_KEY", "sk-or-old")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-new")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, 25.5, cfg.CostSettings.MonthlyBudget)
	assert.Equal(t, "llama3.2-3b", cfg.FallbackBehavior.Fallback)
	assert.Equal(t, registry.TierCloud, cfg.TierPreferences.Default)
	assert.True(t, cfg.Cloud.Offline)
	assert.Equal(t, "sk-ant-test", cfg.Cloud.AnthropicKey)
	assert.Equal(t, "sk-or-new", cfg.Cloud.OpenRouterKey)
}

func TestApplyEnvOverrides_IgnoresGarbage(t *testing.T) {
	t.Setenv("RIGRUN_MONTHLY_BUDGET", "lots")
	t.Setenv("RIGRUN_DEFAULT_TIER", "huge")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, 0.0, cfg.CostSettings.MonthlyBudget)
	assert.Equal(t, registry.TierLocalFast, cfg.TierPreferences.Default)
}

func TestMigrate_Version1(t *testing.T) {
	cfg := Default()
	cfg.Version = "1"
	cfg.FallbackBehavior.Fallback = ""
	cfg.TierPreferences.GuaranteedLocal = "llama3.2-3b"

	require.NoError(t, cfg.Migrate())
	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, "llama3.2-3b", cfg.FallbackBehavior.Fallback)

	cfg.Version = "99"
	assert.Error(t, cfg.Migrate())
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "character.toml")

	cfg := Default()
	cfg.CostSettings.MonthlyBudget = 12
	cfg.TaskTypePreferences["code"] = "qwen2.5-coder-7b"
	cfg.TierPreferences.Default = registry.TierLocalHeavy
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 12.0, loaded.CostSettings.MonthlyBudget)
	assert.Equal(t, "qwen2.5-coder-7b", loaded.TaskTypePreferences["code"])
	assert.Equal(t, registry.TierLocalHeavy, loaded.TierPreferences.Default)
}

func TestClone_IsDeep(t *testing.T) {
	cfg := Default()
	cfg.TaskTypePreferences["debug"] = "claude"
	cfg.Models = []registry.ModelMetadata{{ID: "x", UseCases: []string{"a"}}}

	clone := cfg.Clone()
	clone.TaskTypePreferences["debug"] = "gpt-4"
	clone.TierPreferences.Order[0] = registry.TierCloud
	clone.Models[0].UseCases[0] = "b"

	assert.Equal(t, "claude", cfg.TaskTypePreferences["debug"])
	assert.Equal(t, registry.TierLocalFast, cfg.TierPreferences.Order[0])
	assert.Equal(t, "a", cfg.Models[0].UseCases[0])
}

func TestString_RedactsKeys(t *testing.T) {
	cfg := Default()
	cfg.Cloud.AnthropicKey = "sk-ant-secret"
	cfg.Cloud.OpenRouterKey = "sk-or-secret"

	s := cfg.String()
	assert.NotContains(t, s, "sk-ant-secret")
	assert.NotContains(t, s, "sk-or-secret")
	assert.Contains(t, s, "[REDACTED]")
	assert.Equal(t, "sk-ant-secret", cfg.Cloud.AnthropicKey, "original untouched")
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "character.toml", "[cost_settings]\nmonthly_budget = 1.0\n")

	got := make(chan *Config, 4)
	w, err := Watch(path, 20*time.Millisecond, func(cfg *Config, err error) {
		if err == nil {
			got <- cfg
		}
	})
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, dir, "character.toml", "[cost_settings]\nmonthly_budget = 7.0\n")

	select {
	case cfg := <-got:
		assert.Equal(t, 7.0, cfg.CostSettings.MonthlyBudget)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
}
