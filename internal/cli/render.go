// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-route/internal/executor"
	"github.com/jeranaias/rigrun-route/internal/router"
	"github.com/jeranaias/rigrun-route/internal/util"
)

// =============================================================================
// DECISION
// =============================================================================

func renderDecision(w io.Writer, d *router.RoutingDecision) {
	sel := d.Selection

	fmt.Fprintln(w, TitleStyle.Render("Routing decision")+" "+DimStyle.Render(d.ID))
	fmt.Fprintln(w, RenderSeparatorAdaptive())
	fmt.Fprintln(w, RenderKV("Task", util.TruncateWidth(util.OneLine(d.Task), 60)))
	fmt.Fprintln(w, RenderKV("Task type", fmt.Sprintf("%s (confidence %.2f)",
		d.Classification.Type, d.Classification.Confidence)))
	fmt.Fprintln(w, RenderKV("Complexity", d.Complexity.Level.String()))
	fmt.Fprintln(w, RenderLabel("Model")+HighlightStyle.Render(sel.Model)+" "+RenderTier(sel.Tier))
	fmt.Fprintln(w, RenderKV("Stage", sel.Stage.String()))
	fmt.Fprintln(w, RenderKV("Reason", sel.Reason))
	fmt.Fprintln(w, RenderKV("Confidence", fmt.Sprintf("%.2f", sel.Confidence)))
	fmt.Fprintln(w, RenderKV("Fallbacks", strings.Join(sel.Fallbacks, " -> ")))
	fmt.Fprintln(w, RenderKV("Est. cost", fmt.Sprintf("$%.4f", sel.CostEstimate)))
	if d.Loadout != "" {
		fmt.Fprintln(w, RenderKV("Loadout", d.Loadout))
	}

	var flags []string
	if sel.PrivacyProtection {
		flags = append(flags, "privacy")
	}
	if sel.BudgetProtection {
		flags = append(flags, "budget")
	}
	if len(flags) > 0 {
		fmt.Fprintln(w, RenderLabel("Protection")+SuccessStyle.Render(strings.Join(flags, ", ")))
	}

	switch d.Budget.Status {
	case router.BudgetWarning:
		fmt.Fprintln(w, RenderLabel("Budget")+WarningStyle.Render(d.Budget.Message))
	case router.BudgetInvalid:
		fmt.Fprintln(w, RenderLabel("Budget")+ErrorStyle.Render(d.Budget.Message))
	default:
		if d.Budget.Unlimited {
			fmt.Fprintln(w, RenderKV("Budget", "unlimited"))
		} else {
			fmt.Fprintln(w, RenderKV("Budget", fmt.Sprintf("$%.2f remaining", d.Budget.Remaining)))
		}
	}

	renderValidation(w, d.Validation)
}

func renderValidation(w io.Writer, v router.ValidationResult) {
	if v.Valid && len(v.Warnings) == 0 {
		fmt.Fprintln(w, RenderLabel("Validation")+RenderStatus("ok"))
		return
	}
	status := "warn"
	if !v.Valid {
		status = "fail"
	}
	fmt.Fprintln(w, RenderLabel("Validation")+RenderStatus(status))
	for _, e := range v.Errors {
		fmt.Fprintln(w, "  "+ErrorStyle.Render("error: ")+e)
	}
	for _, warn := range v.Warnings {
		fmt.Fprintln(w, "  "+WarningStyle.Render("warning: ")+warn)
	}
}

// =============================================================================
// EXECUTION
// =============================================================================

func renderAttempts(w io.Writer, res *executor.Result) {
	for i, at := range res.Attempts {
		status := "fail"
		detail := at.Error
		if at.Success {
			status = "ok"
			detail = ""
		}
		name := at.Model
		if at.IsLastResort {
			name += " (local last resort)"
		}
		line := fmt.Sprintf("%d. %s %s %s", i+1, RenderStatus(status), name,
			DimStyle.Render(fmt.Sprintf("[%s, %s]", at.Tier, at.Latency.Round(time.Millisecond))))
		if detail != "" {
			line += " " + DimStyle.Render(util.TruncateRunes(util.OneLine(detail), 80))
		}
		fmt.Fprintln(w, line)
	}
	if failed := len(res.Failed()); res.Success && failed > 0 {
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("answered by %s after %d failed attempt(s)", res.Model, failed)))
	}
}
