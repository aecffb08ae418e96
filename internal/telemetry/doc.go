// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records spend and exports metrics for rigrun-route.
//
// # Ledger
//
// Ledger is a single-connection sqlite database (modernc.org/sqlite, WAL)
// holding one row per executed attempt. The router never reads it; the CLI
// snapshots MonthlySpend before routing and records the attempts after
// execution:
//
//	spend, _ := ledger.MonthlySpend(ctx, time.Now())
//	d := r.Route(router.Request{Task: task, CurrentSpend: spend})
//	res := engine.Execute(ctx, task, d, executor.Options{})
//	_ = ledger.Record(ctx, telemetry.EntriesFor(d, res, cfg, time.Now())...)
//
// Only prompt-free data is stored: model, tier, estimated cost and outcome.
//
// # Metrics
//
// Metrics implements router.Observer and executor.Observer on a private
// Prometheus registry. WriteToTextfile dumps it for the node-exporter
// textfile collector.
package telemetry
