// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-route/internal/router"
)

// routeFlags are the per-call overrides shared by route, run and chat.
type routeFlags struct {
	privacy bool
	tier    string
	useCase string
	spend   float64
}

func (f *routeFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.privacy, "privacy", "p", false, "force local-only routing")
	cmd.Flags().StringVarP(&f.tier, "tier", "t", "", "prefer a tier (fast, heavy, cloud or a full tier name)")
	cmd.Flags().StringVarP(&f.useCase, "use-case", "u", "", "route to the first model declaring this use case")
	cmd.Flags().Float64Var(&f.spend, "spend", -1, "month-to-date spend in USD (default: read from the ledger)")
}

func (f *routeFlags) options() router.Options {
	return router.Options{
		PrivacyMode: f.privacy,
		PreferTier:  f.tier,
		UseCase:     f.useCase,
	}
}

// route snapshots spend and routes task.
func (a *app) route(ctx context.Context, r *router.Router, task string, f *routeFlags) router.RoutingDecision {
	spend := f.spend
	if spend < 0 {
		spend = 0
		if ledger, err := a.openLedger(); err == nil {
			spend = a.currentSpend(ctx, ledger)
			ledger.Close()
		}
	}
	return r.Route(router.Request{Task: task, Options: f.options(), CurrentSpend: spend})
}

func newRouteCmd(a *app) *cobra.Command {
	var f routeFlags

	cmd := &cobra.Command{
		Use:   "route <task...>",
		Short: "Show which model a task would be routed to",
		Long: `Classify a task and print the routing decision without executing it.

The decision lists the selected model and tier, the stage that decided it,
the fallback chain, the cost estimate against your monthly budget and the
validator's findings.

Examples:
  rigrun-route route "write a python function to parse csv"
  rigrun-route route --privacy "summarize my medical records"
  rigrun-route route --tier cloud --json "design a distributed cache"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := a.route(cmd.Context(), a.newRouter(a.cfg), strings.Join(args, " "), &f)
			if a.jsonOut {
				return a.writeJSON("route", d, nil)
			}
			renderDecision(a.out, &d)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
