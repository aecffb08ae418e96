// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the rigrun-route command line.
//
// Commands:
//
//   - route:  print the routing decision and its validation
//   - run:    route, execute through the fallback chain, record spend
//   - chat:   interactive run loop with character sheet hot reload
//   - models: the model catalog
//   - spend:  month-to-date spend and per-tier breakdown
//   - config: show | init | path
//
// Every command accepts --json and prints a JSONResponse envelope.
package cli
