// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the router, the CLI and
// the stores.
//
// # Key Functions
//
//   - TruncateRunes: UTF-8 safe truncation with ellipsis, used for log previews
//   - TruncateWidth, PadWidth: display-width aware layout for terminal tables
//   - AtomicWriteFile: crash-safe file writing with fsync
package util
