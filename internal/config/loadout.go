// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jeranaias/rigrun-route/internal/registry"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// LOADOUTS
// =============================================================================

// ErrLoadoutNotFound is returned when no loadout file exists for a name.
var ErrLoadoutNotFound = errors.New("loadout not found")

var loadoutNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Loadout is a named overlay applied on top of the character sheet for a
// single invocation. Nil or empty fields leave the sheet untouched.
//
// Example ~/.rigrun/loadouts/coder.yaml:
//
//	model: qwen2.5-coder-7b
//	task_type_preferences:
//	  debug: qwen2.5-coder-7b
//	monthly_budget: 5
//	default_tier: heavy
type Loadout struct {
	Name                string            `yaml:"name"`
	Model               string            `yaml:"model"`
	TaskTypePreferences map[string]string `yaml:"task_type_preferences"`
	Fallback            string            `yaml:"fallback"`
	MonthlyBudget       *float64          `yaml:"monthly_budget"`
	CostAware           *bool             `yaml:"cost_aware"`
	DefaultTier         *registry.Tier    `yaml:"default_tier"`
	IntelligentRouting  *bool             `yaml:"intelligent_routing"`
	AlwaysLocal         *bool             `yaml:"always_local"`
}

// LoadoutDir returns the directory holding loadout files.
func LoadoutDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "loadouts"), nil
}

// LoadLoadout reads <LoadoutDir>/<name>.yaml.
func LoadLoadout(name string) (*Loadout, error) {
	dir, err := LoadoutDir()
	if err != nil {
		return nil, err
	}
	return LoadLoadoutFrom(dir, name)
}

// LoadLoadoutFrom reads <dir>/<name>.yaml (or .yml).
func LoadLoadoutFrom(dir, name string) (*Loadout, error) {
	if !loadoutNamePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid loadout name %q", name)
	}

	var data []byte
	var readErr error
	for _, ext := range []string{".yaml", ".yml"} {
		data, readErr = os.ReadFile(filepath.Join(dir, name+ext))
		if readErr == nil {
			break
		}
	}
	if readErr != nil {
		if errors.Is(readErr, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLoadoutNotFound, name)
		}
		return nil, fmt.Errorf("failed to read loadout %s: %w", name, readErr)
	}

	var lo Loadout
	if err := yaml.Unmarshal(data, &lo); err != nil {
		return nil, fmt.Errorf("failed to decode loadout %s: %w", name, err)
	}
	if lo.Name == "" {
		lo.Name = name
	}
	return &lo, nil
}

// WithLoadout returns a copy of c with lo applied and validated.
// c itself is never modified.
func (c *Config) WithLoadout(lo *Loadout) (*Config, error) {
	out := c.Clone()
	if lo == nil {
		return out, nil
	}

	out.Loadout.Name = lo.Name
	if lo.Model != "" {
		out.Loadout.Model = lo.Model
	}
	for k, v := range lo.TaskTypePreferences {
		if out.TaskTypePreferences == nil {
			out.TaskTypePreferences = map[string]string{}
		}
		out.TaskTypePreferences[k] = v
	}
	if lo.Fallback != "" {
		out.FallbackBehavior.Fallback = lo.Fallback
	}
	if lo.MonthlyBudget != nil {
		out.CostSettings.MonthlyBudget = *lo.MonthlyBudget
	}
	if lo.CostAware != nil {
		out.CostSettings.CostAware = *lo.CostAware
	}
	if lo.DefaultTier != nil {
		out.TierPreferences.Default = *lo.DefaultTier
	}
	if lo.IntelligentRouting != nil {
		out.TierPreferences.IntelligentRouting = *lo.IntelligentRouting
	}
	if lo.AlwaysLocal != nil {
		out.Privacy.AlwaysLocal = *lo.AlwaysLocal
	}

	if err := out.Migrate(); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("loadout %s: %w", lo.Name, err)
	}
	return out, nil
}
