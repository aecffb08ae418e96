// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-route/internal/config"
	"github.com/jeranaias/rigrun-route/internal/executor"
	"github.com/jeranaias/rigrun-route/internal/logging"
	"github.com/jeranaias/rigrun-route/internal/router"
	"github.com/jeranaias/rigrun-route/internal/telemetry"
)

type runFlags struct {
	routeFlags
	noFallback      bool
	noLocalFallback bool
}

// runOutput is the --json payload of run.
type runOutput struct {
	Decision router.RoutingDecision `json:"decision"`
	Result   *executor.Result       `json:"result"`
}

func (f *runFlags) executorOptions(cfg *config.Config) executor.Options {
	return executor.Options{
		NoFallback:           f.noFallback || cfg.FallbackBehavior.NoFallback,
		DisableLocalFallback: f.noLocalFallback || cfg.FallbackBehavior.DisableLocalLastResort,
	}
}

// execute routes, validates, executes and records one task.
func (a *app) execute(ctx context.Context, cfg *config.Config, r *router.Router, eng *executor.Engine,
	task string, f *runFlags) (router.RoutingDecision, *executor.Result, error) {

	ledger, err := telemetry.OpenLedger(cfg.Telemetry.LedgerPath)
	if err != nil {
		logging.WithComponent("cli").Warn("ledger unavailable, spend not tracked", "error", err)
	} else {
		defer ledger.Close()
	}

	spend := f.spend
	if spend < 0 {
		spend = a.currentSpend(ctx, ledger)
	}
	d := r.Route(router.Request{Task: task, Options: f.options(), CurrentSpend: spend})
	if !d.Validation.Valid {
		return d, nil, fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(d.Validation.Errors, "; "))
	}

	res := eng.Execute(ctx, task, &d, f.executorOptions(cfg))

	if ledger != nil {
		if err := ledger.Record(ctx, telemetry.EntriesFor(&d, res, cfg, a.now())...); err != nil {
			logging.WithComponent("cli").Warn("failed to record spend", "error", err)
		}
	}
	if !res.Success {
		return d, res, ErrAllModelsFailed
	}
	return d, res, nil
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run <task...>",
		Short: "Route a task and execute it",
		Long: `Route a task, then try the selected model and its fallback chain in
order. When every model fails, one local last-resort attempt is made
through Docker Model Runner or Ollama.

Decisions with validator errors are not executed.

Examples:
  rigrun-route run "explain this stack trace"
  rigrun-route run --no-fallback --tier cloud "review this design"
  rigrun-route run --offline "summarize the release notes"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := a.newEngine(ctx, a.cfg)
			if err != nil {
				return err
			}

			d, res, err := a.execute(ctx, a.cfg, a.newRouter(a.cfg), eng, strings.Join(args, " "), &f)
			if a.jsonOut {
				return a.writeJSON("run", runOutput{Decision: d, Result: res}, err)
			}
			if res == nil {
				renderValidation(a.errOut, d.Validation)
				return err
			}

			fmt.Fprintln(a.errOut, DimStyle.Render(fmt.Sprintf("%s via %s", d.ID, d.Selection.Model)))
			renderAttempts(a.errOut, res)
			if res.Success {
				fmt.Fprintln(a.out, res.Response)
			} else {
				fmt.Fprintln(a.out, ErrorStyle.Render(res.Response))
			}
			return err
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.noFallback, "no-fallback", false, "stop after the primary model fails")
	cmd.Flags().BoolVar(&f.noLocalFallback, "no-local-fallback", false, "skip the local last resort")
	return cmd
}
