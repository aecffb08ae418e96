// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// skipConfig marks commands that must work without a loadable config.
const skipConfig = "skip-config"

// NewRootCmd builds the rigrun-route command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

// Execute runs the CLI. Metrics and the log file are flushed even when the
// command fails.
func Execute(ctx context.Context) error {
	a := newApp()
	err := newRootCmd(a).ExecuteContext(ctx)
	return errors.Join(err, a.finish())
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "rigrun-route",
		Short: "Route prompts to the cheapest model that can handle them",
		Long: `rigrun-route classifies a task, picks a model tier (local-fast,
local-heavy or cloud) under your character sheet's privacy and budget
rules, and executes it with a fallback chain that always ends on a free
local model.

Configuration:
  ~/.rigrun/character.toml      character sheet (RIGRUN_HOME overrides ~/.rigrun)
  ~/.rigrun/loadouts/<name>.yaml loadouts applied with --loadout

Examples:
  rigrun-route route "refactor this function"   # Show the decision only
  rigrun-route run "summarize this log"         # Route and execute
  rigrun-route models --tier cloud              # List the catalog
  rigrun-route spend                            # Month-to-date spend`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			a.errOut = cmd.ErrOrStderr()
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			return a.loadConfig()
		},
	}
	root.SetVersionTemplate("rigrun-route {{.Version}} (" + GitCommit + ", " + BuildDate + ")\n")

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "character sheet path (default ~/.rigrun/character.toml)")
	flags.StringVarP(&a.loadout, "loadout", "l", "", "loadout to apply on top of the character sheet")
	flags.BoolVar(&a.jsonOut, "json", false, "machine-readable JSON output")
	flags.BoolVar(&a.offline, "offline", false, "block every remote provider")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newRouteCmd(a),
		newRunCmd(a),
		newModelsCmd(a),
		newSpendCmd(a),
		newConfigCmd(a),
		newChatCmd(a),
	)
	return root
}
