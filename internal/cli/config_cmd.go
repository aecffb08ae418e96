// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-route/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the character sheet",
		Long: `View and create the rigrun character sheet.

Subcommands:
  show         Show the effective configuration (API keys redacted)
  init         Write a default character sheet
  path         Show the character sheet path`,
	}
	cmd.AddCommand(
		newConfigShowCmd(a),
		newConfigInitCmd(a),
		newConfigPathCmd(a),
	)
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after environment overrides, migration,
defaults and the --loadout overlay have been applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.jsonOut {
				// String() is the redacted form; re-decode it so the
				// envelope carries an object rather than a string.
				var redacted map[string]interface{}
				if err := json.Unmarshal([]byte(a.cfg.String()), &redacted); err != nil {
					return err
				}
				return a.writeJSON("config show", redacted, nil)
			}
			fmt.Fprintln(a.out, a.cfg.String())
			return nil
		},
	}
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default character sheet",
		Long: `Write the default character sheet to --config or
~/.rigrun/character.toml. An existing file is kept unless --force is given.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configFile()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if err := a.saveDefaultConfig(path); err != nil {
				return err
			}

			if a.jsonOut {
				return a.writeJSON("config init", map[string]string{"path": path}, nil)
			}
			fmt.Fprintln(a.out, RenderStatus("ok")+" wrote "+path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

// saveDefaultConfig writes the default sheet to path. Without --config the
// sheet goes to the standard location.
func (a *app) saveDefaultConfig(path string) error {
	if a.configPath == "" {
		return config.Save(config.Default())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return config.SaveTOML(config.Default(), path)
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Show the character sheet path",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configFile()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, path)
			return nil
		},
	}
}
