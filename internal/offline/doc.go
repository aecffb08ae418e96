// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline holds the process-wide offline switch.
//
// When offline mode is on, remote providers are refused before any request
// is built and provider URLs must point at a loopback address. The router
// applies the same switch to selection through config.CloudConfig.Offline,
// so offline decisions never name a remote model in the first place.
package offline
