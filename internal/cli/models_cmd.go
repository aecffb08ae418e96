// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-route/internal/registry"
	"github.com/jeranaias/rigrun-route/internal/util"
)

func newModelsCmd(a *app) *cobra.Command {
	var tierName string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the model catalog",
		Long: `List every model the router can select, including [[models]]
entries from the character sheet.

Examples:
  rigrun-route models
  rigrun-route models --tier local-heavy
  rigrun-route models --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models := a.cfg.Registry().Models()
			if tierName != "" {
				t, err := registry.ParseTier(tierName)
				if err != nil {
					return err
				}
				filtered := models[:0]
				for _, m := range models {
					if m.Tier == t {
						filtered = append(filtered, m)
					}
				}
				models = filtered
			}

			if a.jsonOut {
				return a.writeJSON("models", models, nil)
			}
			renderModels(a, models)
			return nil
		},
	}
	cmd.Flags().StringVarP(&tierName, "tier", "t", "", "only list models in this tier")
	return cmd
}

func renderModels(a *app, models []registry.ModelMetadata) {
	fmt.Fprintln(a.out, TitleStyle.Render("Model catalog"))
	header := util.PadWidth("ID", 20) + util.PadWidth("TIER", 13) + util.PadWidth("PROVIDER", 12) +
		util.PadWidth("$/1K TOK", 10) + util.PadWidth("RATING", 8) + "USE CASES"
	fmt.Fprintln(a.out, DimStyle.Render(header))
	fmt.Fprintln(a.out, RenderSeparator(len(header)))

	for _, m := range models {
		cost := "free"
		if !m.IsFree() {
			cost = fmt.Sprintf("%.4f", m.CostPerToken*1000)
		}
		fmt.Fprintln(a.out,
			util.PadWidth(util.TruncateWidth(m.ID, 19), 20)+
				RenderTier(m.Tier)+strings.Repeat(" ", 13-len(m.Tier.String()))+
				util.PadWidth(m.Provider, 12)+
				util.PadWidth(cost, 10)+
				util.PadWidth(fmt.Sprintf("%.1f", m.PerformanceRating), 8)+
				strings.Join(m.UseCases, ", "))
	}
}
