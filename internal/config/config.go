// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides loading and management of the character sheet,
// the user configuration that drives routing.
//
// Supports both TOML and JSON formats, with documented defaults,
// environment variable overrides, and validation on load.
//
// Configuration file locations (in order of precedence):
//   - ~/.rigrun/character.toml
//   - ~/.rigrun/character.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/rigrun-route/internal/registry"
	"github.com/jeranaias/rigrun-route/internal/util"
)

// CurrentVersion is the character sheet schema version written by Save.
const CurrentVersion = "2"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the character sheet: every user-tunable routing input.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Preferred model per task type, e.g. debug = "qwen2.5-coder-7b".
	TaskTypePreferences map[string]string `toml:"task_type_preferences" json:"task_type_preferences"`

	FallbackBehavior FallbackConfig `toml:"fallback_behavior" json:"fallback_behavior"`
	CostSettings     CostConfig     `toml:"cost_settings" json:"cost_settings"`
	TierPreferences  TierConfig     `toml:"tier_preferences" json:"tier_preferences"`
	Privacy          PrivacyConfig  `toml:"privacy" json:"privacy"`

	// Loadout is the active overlay. Model, when set, replaces the routed
	// model unless the caller forced a tier or use case.
	Loadout LoadoutRef `toml:"loadout" json:"loadout"`

	Local     LocalConfig     `toml:"local" json:"local"`
	Cloud     CloudConfig     `toml:"cloud" json:"cloud"`
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`
	Logging   LoggingConfig   `toml:"logging" json:"logging"`

	// Extra or overriding catalog entries.
	Models []registry.ModelMetadata `toml:"models" json:"models,omitempty"`
}

// FallbackConfig controls chain construction and execution fallback.
type FallbackConfig struct {
	// Fallback is the configured global fallback model.
	Fallback string `toml:"fallback" json:"fallback"`
	// NoFallback stops execution after a failed primary attempt.
	NoFallback bool `toml:"no_fallback" json:"no_fallback"`
	// DisableLocalLastResort skips the local-compute last resort.
	DisableLocalLastResort bool `toml:"disable_local_last_resort" json:"disable_local_last_resort"`
}

// CostConfig holds the budget and the cost-estimation calibration.
type CostConfig struct {
	// MonthlyBudget in USD. Zero or negative means unlimited.
	MonthlyBudget float64 `toml:"monthly_budget" json:"monthly_budget"`
	CostAware     bool    `toml:"cost_aware" json:"cost_aware"`
	// Remaining budget below this forces local tiers.
	LowBudgetThreshold float64 `toml:"low_budget_threshold" json:"low_budget_threshold"`
	// A cost above this fraction of remaining budget produces a warning.
	WarnFraction       float64 `toml:"warn_fraction" json:"warn_fraction"`
	CharsPerToken      float64 `toml:"chars_per_token" json:"chars_per_token"`
	ResponseMultiplier float64 `toml:"response_multiplier" json:"response_multiplier"`
	MinTokens          int     `toml:"min_tokens" json:"min_tokens"`
}

// TierConfig holds tier ordering and the default tier.
type TierConfig struct {
	Default registry.Tier   `toml:"default" json:"default"`
	Order   []registry.Tier `toml:"order" json:"order"`
	// IntelligentRouting enables complexity-driven tier selection.
	IntelligentRouting bool `toml:"intelligent_routing" json:"intelligent_routing"`
	// GuaranteedLocal is the zero-cost local-fast model ending every chain.
	GuaranteedLocal string `toml:"guaranteed_local" json:"guaranteed_local"`
}

// PrivacyConfig controls forced local routing.
type PrivacyConfig struct {
	AlwaysLocal bool `toml:"always_local" json:"always_local"`
	// Extra privacy-indicating keywords, matched case-insensitively.
	Keywords []string `toml:"keywords" json:"keywords"`
	// Task types always routed locally.
	SensitiveTypes []string `toml:"sensitive_types" json:"sensitive_types"`
}

// LoadoutRef names the active loadout and its model override.
type LoadoutRef struct {
	Name  string `toml:"name" json:"name"`
	Model string `toml:"model" json:"model"`
}

// LocalConfig configures local model runners.
type LocalConfig struct {
	OllamaURL    string `toml:"ollama_url" json:"ollama_url"`
	DockerBinary string `toml:"docker_binary" json:"docker_binary"`
	TimeoutSecs  int    `toml:"timeout_secs" json:"timeout_secs"`
	// Models tried, in order, by the local last resort.
	LastResortModels []string `toml:"last_resort_models" json:"last_resort_models"`
}

// CloudConfig configures the remote providers.
type CloudConfig struct {
	AnthropicKey  string `toml:"anthropic_key" json:"anthropic_key"`
	OpenAIKey     string `toml:"openai_key" json:"openai_key"`
	GoogleKey     string `toml:"google_key" json:"google_key"`
	OpenRouterKey string `toml:"openrouter_key" json:"openrouter_key"`
	TimeoutSecs   int    `toml:"timeout_secs" json:"timeout_secs"`
	// Per-provider request ceiling.
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
	// Offline blocks every remote provider.
	Offline bool `toml:"offline" json:"offline"`
}

// TelemetryConfig configures the spend ledger and metrics output.
type TelemetryConfig struct {
	LedgerPath string `toml:"ledger_path" json:"ledger_path"`
	// MetricsTextfile, when set, receives Prometheus text output after each run.
	MetricsTextfile string `toml:"metrics_textfile" json:"metrics_textfile"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a configuration with documented defaults.
func Default() *Config {
	return &Config{
		Version:             CurrentVersion,
		TaskTypePreferences: map[string]string{},
		FallbackBehavior: FallbackConfig{
			Fallback: registry.DefaultLocalModel,
		},
		CostSettings: CostConfig{
			MonthlyBudget:      0,
			CostAware:          true,
			LowBudgetThreshold: 2.0,
			WarnFraction:       0.5,
			CharsPerToken:      4,
			ResponseMultiplier: 2.5,
			MinTokens:          100,
		},
		TierPreferences: TierConfig{
			Default:            registry.TierLocalFast,
			Order:              append([]registry.Tier(nil), registry.AllTiers...),
			IntelligentRouting: true,
			GuaranteedLocal:    registry.DefaultLocalModel,
		},
		Privacy: PrivacyConfig{
			SensitiveTypes: []string{"sensitive"},
		},
		Local: LocalConfig{
			OllamaURL:        "http://localhost:11434",
			DockerBinary:     "docker",
			TimeoutSecs:      60,
			LastResortModels: []string{registry.DefaultLocalModel, "llama3.2-3b"},
		},
		Cloud: CloudConfig{
			TimeoutSecs:       60,
			RequestsPerMinute: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the configuration directory path.
// RIGRUN_HOME overrides the default ~/.rigrun.
func ConfigDir() (string, error) {
	if dir := os.Getenv("RIGRUN_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigrun"), nil
}

// ConfigPathTOML returns the path to the TOML character sheet.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "character.toml"), nil
}

// ConfigPathJSON returns the path to the JSON character sheet.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "character.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads the character sheet from the config directory.
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last, then the result is validated.
func Load() (*Config, error) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		return LoadFromPath(path)
	}

	cfg := Default()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads a character sheet from a specific file with full validation.
// Files ending in .json are decoded as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	if strings.HasSuffix(path, ".json") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	c.ApplyEnvOverrides()
	if err := c.Migrate(); err != nil {
		return fmt.Errorf("config migration failed: %w", err)
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML path.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML. The file holds API keys, so it is 0600.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# rigrun character sheet\n")
	b.WriteString("# Generated by rigrun-route - edit with care\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns ValidateErrors if anything is wrong.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Cost settings
	cs := c.CostSettings
	if cs.MonthlyBudget < 0 {
		add("cost_settings.monthly_budget", "must not be negative (use 0 for unlimited), got %g", cs.MonthlyBudget)
	}
	if cs.LowBudgetThreshold < 0 {
		add("cost_settings.low_budget_threshold", "must not be negative, got %g", cs.LowBudgetThreshold)
	}
	if cs.WarnFraction <= 0 || cs.WarnFraction > 1 {
		add("cost_settings.warn_fraction", "must be in (0, 1], got %g", cs.WarnFraction)
	}
	if cs.CharsPerToken <= 0 {
		add("cost_settings.chars_per_token", "must be positive, got %g", cs.CharsPerToken)
	}
	if cs.ResponseMultiplier <= 0 {
		add("cost_settings.response_multiplier", "must be positive, got %g", cs.ResponseMultiplier)
	}
	if cs.MinTokens < 0 {
		add("cost_settings.min_tokens", "must not be negative, got %d", cs.MinTokens)
	}

	// Tier preferences
	if !c.TierPreferences.Default.Valid() {
		add("tier_preferences.default", "invalid tier %d", int(c.TierPreferences.Default))
	}
	seen := make(map[registry.Tier]bool)
	for _, t := range c.TierPreferences.Order {
		if !t.Valid() {
			add("tier_preferences.order", "invalid tier %d", int(t))
			continue
		}
		if seen[t] {
			add("tier_preferences.order", "tier %s listed twice", t)
		}
		seen[t] = true
	}

	// Catalog extensions
	for i, m := range c.Models {
		field := fmt.Sprintf("models[%d]", i)
		if m.ID == "" {
			add(field+".id", "must not be empty")
		}
		if !m.Tier.Valid() {
			add(field+".tier", "invalid tier %d", int(m.Tier))
		} else if registry.IsRemoteProvider(m.Provider) && m.Tier != registry.TierCloud {
			add(field+".tier", "provider %q is remote, tier must be cloud, got %s", m.Provider, m.Tier)
		}
		if m.CostPerToken < 0 {
			add(field+".cost_per_token", "must not be negative, got %g", m.CostPerToken)
		}
	}

	reg := c.Registry()
	if fb := c.FallbackBehavior.Fallback; fb != "" && !reg.Has(fb) {
		add("fallback_behavior.fallback", "unknown model %q", fb)
	}
	if lo := c.Loadout.Model; lo != "" && !reg.Has(lo) {
		add("loadout.model", "unknown model %q", lo)
	}

	// Local
	if c.Local.OllamaURL != "" {
		if u, err := url.Parse(c.Local.OllamaURL); err != nil || u.Scheme == "" || u.Host == "" {
			add("local.ollama_url", "invalid URL %q", c.Local.OllamaURL)
		}
	}
	if c.Local.TimeoutSecs < 0 {
		add("local.timeout_secs", "must not be negative, got %d", c.Local.TimeoutSecs)
	}
	if c.Cloud.TimeoutSecs < 0 {
		add("cloud.timeout_secs", "must not be negative, got %d", c.Cloud.TimeoutSecs)
	}
	if c.Cloud.RequestsPerMinute < 0 {
		add("cloud.requests_per_minute", "must not be negative, got %d", c.Cloud.RequestsPerMinute)
	}

	// Logging
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level", "invalid level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		add("logging.format", "invalid format %q, must be one of: text, json", c.Logging.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills any zero-valued calibration or path fields with defaults.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.TaskTypePreferences == nil {
		c.TaskTypePreferences = map[string]string{}
	}
	if c.CostSettings.CharsPerToken == 0 {
		c.CostSettings.CharsPerToken = d.CostSettings.CharsPerToken
	}
	if c.CostSettings.ResponseMultiplier == 0 {
		c.CostSettings.ResponseMultiplier = d.CostSettings.ResponseMultiplier
	}
	if c.CostSettings.WarnFraction == 0 {
		c.CostSettings.WarnFraction = d.CostSettings.WarnFraction
	}
	if len(c.TierPreferences.Order) == 0 {
		c.TierPreferences.Order = d.TierPreferences.Order
	}
	if c.TierPreferences.GuaranteedLocal == "" {
		c.TierPreferences.GuaranteedLocal = d.TierPreferences.GuaranteedLocal
	}
	if c.Local.OllamaURL == "" {
		c.Local.OllamaURL = d.Local.OllamaURL
	}
	if c.Local.DockerBinary == "" {
		c.Local.DockerBinary = d.Local.DockerBinary
	}
	if c.Local.TimeoutSecs == 0 {
		c.Local.TimeoutSecs = d.Local.TimeoutSecs
	}
	if len(c.Local.LastResortModels) == 0 {
		c.Local.LastResortModels = d.Local.LastResortModels
	}
	if c.Cloud.TimeoutSecs == 0 {
		c.Cloud.TimeoutSecs = d.Cloud.TimeoutSecs
	}
	if c.Cloud.RequestsPerMinute == 0 {
		c.Cloud.RequestsPerMinute = d.Cloud.RequestsPerMinute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

// Migrate upgrades older sheets. Version 1 sheets stored the fallback model
// under tier_preferences.guaranteed_local only.
func (c *Config) Migrate() error {
	switch c.Version {
	case "", CurrentVersion:
	case "1":
		if c.FallbackBehavior.Fallback == "" {
			c.FallbackBehavior.Fallback = c.TierPreferences.GuaranteedLocal
		}
		c.Version = CurrentVersion
	default:
		return fmt.Errorf("unsupported character sheet version %q", c.Version)
	}

	// Normalise task type keys so lookups are case-insensitive.
	if len(c.TaskTypePreferences) > 0 {
		norm := make(map[string]string, len(c.TaskTypePreferences))
		for k, v := range c.TaskTypePreferences {
			norm[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
		c.TaskTypePreferences = norm
	}
	return nil
}

// Registry returns the built-in catalog overlaid with the sheet's models.
func (c *Config) Registry() *registry.Registry {
	return registry.Default().With(c.Models...)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RIGRUN_MONTHLY_BUDGET: overrides cost_settings.monthly_budget
//   - RIGRUN_FALLBACK_MODEL: overrides fallback_behavior.fallback
//   - RIGRUN_DEFAULT_TIER: overrides tier_preferences.default
//   - RIGRUN_LOADOUT_MODEL: overrides loadout.model
//   - RIGRUN_ALWAYS_LOCAL: "1" or "true" forces privacy routing
//   - RIGRUN_OFFLINE / RIGRUN_NO_NETWORK: "1" or "true" blocks cloud providers
//   - RIGRUN_OLLAMA_URL: overrides local.ollama_url
//   - RIGRUN_LOG_LEVEL: overrides logging.level
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, OPENROUTER_API_KEY
//     (RIGRUN_OPENROUTER_KEY is also accepted)
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RIGRUN_MONTHLY_BUDGET"); v != "" {
		if budget, err := strconv.ParseFloat(v, 64); err == nil {
			c.CostSettings.MonthlyBudget = budget
		}
	}
	if v := os.Getenv("RIGRUN_FALLBACK_MODEL"); v != "" {
		c.FallbackBehavior.Fallback = v
	}
	if v := os.Getenv("RIGRUN_DEFAULT_TIER"); v != "" {
		if t, err := registry.ParseTier(v); err == nil {
			c.TierPreferences.Default = t
		}
	}
	if v := os.Getenv("RIGRUN_LOADOUT_MODEL"); v != "" {
		c.Loadout.Model = v
	}
	if v := os.Getenv("RIGRUN_ALWAYS_LOCAL"); v != "" {
		c.Privacy.AlwaysLocal = envBool(v)
	}
	if v := os.Getenv("RIGRUN_OFFLINE"); v != "" {
		c.Cloud.Offline = envBool(v)
	}
	if v := os.Getenv("RIGRUN_NO_NETWORK"); v != "" {
		c.Cloud.Offline = envBool(v)
	}
	if v := os.Getenv("RIGRUN_OLLAMA_URL"); v != "" {
		c.Local.OllamaURL = v
	}
	if v := os.Getenv("RIGRUN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Cloud.AnthropicKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Cloud.OpenAIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Cloud.GoogleKey = v
	}
	if v := os.Getenv("RIGRUN_OPENROUTER_KEY"); v != "" {
		c.Cloud.OpenRouterKey = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.Cloud.OpenRouterKey = v
	}
}

func envBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

// =============================================================================
// COPY AND DISPLAY
// =============================================================================

// Clone creates a deep copy so overlays never mutate the original.
func (c *Config) Clone() *Config {
	clone := *c

	if c.TaskTypePreferences != nil {
		clone.TaskTypePreferences = make(map[string]string, len(c.TaskTypePreferences))
		for k, v := range c.TaskTypePreferences {
			clone.TaskTypePreferences[k] = v
		}
	}
	clone.TierPreferences.Order = append([]registry.Tier(nil), c.TierPreferences.Order...)
	clone.Privacy.Keywords = append([]string(nil), c.Privacy.Keywords...)
	clone.Privacy.SensitiveTypes = append([]string(nil), c.Privacy.SensitiveTypes...)
	clone.Local.LastResortModels = append([]string(nil), c.Local.LastResortModels...)
	if c.Models != nil {
		clone.Models = make([]registry.ModelMetadata, len(c.Models))
		for i, m := range c.Models {
			m.UseCases = append([]string(nil), m.UseCases...)
			clone.Models[i] = m
		}
	}
	return &clone
}

// String returns the config as indented JSON with API keys redacted.
func (c *Config) String() string {
	safe := c.Clone()
	for _, key := range []*string{
		&safe.Cloud.AnthropicKey,
		&safe.Cloud.OpenAIKey,
		&safe.Cloud.GoogleKey,
		&safe.Cloud.OpenRouterKey,
	} {
		if *key != "" {
			*key = "[REDACTED]"
		}
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
