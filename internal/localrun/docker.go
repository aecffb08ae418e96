// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package localrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds one local generation.
const DefaultTimeout = 60 * time.Second

// ErrDockerNotFound is returned when the docker binary is not on PATH.
var ErrDockerNotFound = errors.New("docker not found")

// DockerRunner runs models through Docker Model Runner
// (`docker model run <model> <prompt>`).
type DockerRunner struct {
	binary  string
	timeout time.Duration
}

// NewDockerRunner creates a runner for the given docker binary.
func NewDockerRunner(binary string, timeout time.Duration) *DockerRunner {
	if binary == "" {
		binary = "docker"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DockerRunner{binary: binary, timeout: timeout}
}

// Available reports whether the docker binary can be found.
func (d *DockerRunner) Available() bool {
	_, err := exec.LookPath(d.binary)
	return err == nil
}

// Generate runs prompt through model and returns trimmed stdout.
func (d *DockerRunner) Generate(ctx context.Context, model, prompt string) (string, error) {
	path, err := exec.LookPath(d.binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDockerNotFound, d.binary)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "model", "run", model, prompt)
	// Children may keep the pipes open after the kill.
	cmd.WaitDelay = time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if ctx.Err() != nil {
		return "", fmt.Errorf("docker model run %s: %w", model, ctx.Err())
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("docker model run %s: %w", model, err)
		}
		return "", fmt.Errorf("docker model run %s: %w: %s", model, err, msg)
	}
	return strings.TrimSpace(string(out)), nil
}
