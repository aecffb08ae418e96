// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package localrun runs models on the local host.
//
// DockerRunner shells out to Docker Model Runner. LastResort combines it
// with the Ollama client into the executor's local last resort.
package localrun
