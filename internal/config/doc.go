// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides loading and management of the character sheet.
//
// # Key Types
//
//   - Config: the character sheet (preferences, budget, tiers, privacy)
//   - Loadout: a named YAML overlay applied for a single invocation
//   - Watcher: fsnotify-based hot reload for long-running sessions
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RIGRUN_*, provider API keys)
//   - Active loadout (~/.rigrun/loadouts/<name>.yaml)
//   - ~/.rigrun/character.toml
//   - ~/.rigrun/character.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	lo, err := config.LoadLoadout("coder")
//	if err == nil {
//	    cfg, err = cfg.WithLoadout(lo)
//	}
package config
