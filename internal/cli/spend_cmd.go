// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-route/internal/router"
	"github.com/jeranaias/rigrun-route/internal/telemetry"
	"github.com/jeranaias/rigrun-route/internal/util"
)

// spendReport is the --json payload of spend.
type spendReport struct {
	Month     string                `json:"month"`
	Spend     float64               `json:"spend"`
	Budget    float64               `json:"budget"`
	Remaining *float64              `json:"remaining"`
	Tiers     []telemetry.TierSpend `json:"tiers"`
	Daily     []telemetry.DailyCost `json:"daily,omitempty"`
	Pruned    int64                 `json:"pruned,omitempty"`
}

func newSpendCmd(a *app) *cobra.Command {
	var (
		days        int
		pruneBefore string
	)

	cmd := &cobra.Command{
		Use:   "spend",
		Short: "Show month-to-date spend",
		Long: `Show this month's estimated spend from the ledger, the remaining
monthly budget and a per-tier breakdown.

Examples:
  rigrun-route spend
  rigrun-route spend --days 7
  rigrun-route spend --prune-before 2025-01-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			now := a.now()

			var cutoff time.Time
			if pruneBefore != "" {
				t, err := time.ParseInLocation("2006-01-02", pruneBefore, now.Location())
				if err != nil {
					return fmt.Errorf("invalid --prune-before %q (want YYYY-MM-DD)", pruneBefore)
				}
				cutoff = t
			}

			ledger, err := a.openLedger()
			if err != nil {
				return err
			}
			defer ledger.Close()

			var pruned int64
			if !cutoff.IsZero() {
				if pruned, err = ledger.Prune(ctx, cutoff); err != nil {
					return err
				}
			}
			monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

			spend, err := ledger.MonthlySpend(ctx, now)
			if err != nil {
				return err
			}
			tiers, err := ledger.TierBreakdown(ctx, monthStart)
			if err != nil {
				return err
			}
			report := spendReport{
				Month:  now.Format("2006-01"),
				Spend:  spend,
				Budget: a.cfg.CostSettings.MonthlyBudget,
				Tiers:  tiers,
				Pruned: pruned,
			}
			if remaining, limited := router.RemainingBudget(a.cfg.CostSettings, spend); limited {
				report.Remaining = &remaining
			}
			if days > 0 {
				from := now.AddDate(0, 0, -days)
				if report.Daily, err = ledger.Daily(ctx, from, now.Add(time.Second)); err != nil {
					return err
				}
			}

			if a.jsonOut {
				return a.writeJSON("spend", report, nil)
			}
			renderSpend(a, report)
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 0, "also show a per-day breakdown for the last N days")
	cmd.Flags().StringVar(&pruneBefore, "prune-before", "", "delete ledger entries older than this date (YYYY-MM-DD)")
	return cmd
}

func renderSpend(a *app, r spendReport) {
	fmt.Fprintln(a.out, TitleStyle.Render("Spend for "+r.Month))
	if r.Pruned > 0 {
		fmt.Fprintln(a.out, RenderKV("Pruned", fmt.Sprintf("%d entries", r.Pruned)))
	}
	fmt.Fprintln(a.out, RenderKV("Month to date", fmt.Sprintf("$%.4f", r.Spend)))
	if r.Remaining == nil {
		fmt.Fprintln(a.out, RenderKV("Budget", "unlimited"))
	} else {
		fmt.Fprintln(a.out, RenderKV("Budget", fmt.Sprintf("$%.2f", r.Budget)))
		style := ValueStyle
		if *r.Remaining <= 0 {
			style = ErrorStyle
		} else if *r.Remaining < a.cfg.CostSettings.LowBudgetThreshold {
			style = WarningStyle
		}
		fmt.Fprintln(a.out, RenderLabel("Remaining")+style.Render(fmt.Sprintf("$%.4f", *r.Remaining)))
	}

	if len(r.Tiers) > 0 {
		fmt.Fprintln(a.out, SectionStyle.Render("By tier"))
		for _, t := range r.Tiers {
			fmt.Fprintln(a.out, "  "+util.PadWidth(t.Tier, 14)+
				util.PadWidth(fmt.Sprintf("%d calls", t.Calls), 12)+
				fmt.Sprintf("$%.4f", t.Cost))
		}
	}
	if len(r.Daily) > 0 {
		fmt.Fprintln(a.out, SectionStyle.Render("By day"))
		for _, d := range r.Daily {
			fmt.Fprintln(a.out, "  "+util.PadWidth(d.Date, 14)+
				util.PadWidth(fmt.Sprintf("%d calls", d.Calls), 12)+
				fmt.Sprintf("$%.4f", d.Cost))
		}
	}
}
