// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package localrun

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jeranaias/rigrun-route/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGen struct {
	answers map[string]string
	err     error
	calls   []string
}

func (f *fakeGen) Generate(ctx context.Context, model, prompt string) (string, error) {
	f.calls = append(f.calls, model)
	if f.err != nil {
		return "", f.err
	}
	return f.answers[model], nil
}

func TestTryLocalTiers_DockerFirst(t *testing.T) {
	docker := &fakeGen{answers: map[string]string{"ai/smollm3": "from docker"}}
	ollama := &fakeGen{answers: map[string]string{"llama3.2:3b": "from ollama"}}
	l := New(registry.Default(), []string{"llama3.2-3b", "smollm3-1.7b"}, WithDocker(docker), WithOllama(ollama))

	res, err := l.TryLocalTiers(context.Background(), "hi")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "from docker", res.Text)
	assert.Equal(t, "smollm3-1.7b", res.Model)
	assert.Empty(t, ollama.calls)
}

func TestTryLocalTiers_FallsBackToOllama(t *testing.T) {
	docker := &fakeGen{err: ErrDockerNotFound}
	ollama := &fakeGen{answers: map[string]string{"llama3.2:3b": "from ollama"}}
	l := New(registry.Default(), []string{"smollm3-1.7b", "llama3.2-3b"}, WithDocker(docker), WithOllama(ollama))

	res, err := l.TryLocalTiers(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "llama3.2-3b", res.Model)
	assert.Equal(t, []string{"ai/smollm3"}, docker.calls)
	assert.Equal(t, []string{"llama3.2:3b"}, ollama.calls)
}

func TestTryLocalTiers_AllFail(t *testing.T) {
	docker := &fakeGen{err: errors.New("engine stopped")}
	ollama := &fakeGen{answers: map[string]string{}}
	l := New(registry.Default(), []string{"smollm3-1.7b", "llama3.2-3b"}, WithDocker(docker), WithOllama(ollama))

	res, err := l.TryLocalTiers(context.Background(), "hi")
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine stopped")
	assert.Contains(t, err.Error(), "empty response")
}

func TestTryLocalTiers_SkipsRemoteAndUnknown(t *testing.T) {
	docker := &fakeGen{}
	ollama := &fakeGen{}
	l := New(registry.Default(), []string{"claude", "nope"}, WithDocker(docker), WithOllama(ollama))

	res, err := l.TryLocalTiers(context.Background(), "hi")
	assert.Nil(t, res)
	assert.NoError(t, err)
	assert.Empty(t, docker.calls)
	assert.Empty(t, ollama.calls)
}

// offlineDocker is a docker backend whose binary is missing.
type offlineDocker struct{ fakeGen }

func (offlineDocker) Available() bool { return false }

// listingOllama is an ollama backend that knows its installed models.
type listingOllama struct {
	fakeGen
	installed map[string]bool
	listErr   error
	checks    []string
}

func (o *listingOllama) ModelExists(ctx context.Context, model string) (bool, error) {
	o.checks = append(o.checks, model)
	if o.listErr != nil {
		return false, o.listErr
	}
	return o.installed[model], nil
}

func TestTryLocalTiers_SkipsUnavailableDocker(t *testing.T) {
	docker := &offlineDocker{}
	ollama := &fakeGen{answers: map[string]string{"llama3.2:3b": "from ollama"}}
	l := New(registry.Default(), []string{"smollm3-1.7b", "llama3.2-3b"}, WithDocker(docker), WithOllama(ollama))

	res, err := l.TryLocalTiers(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "llama3.2-3b", res.Model)
	assert.Empty(t, docker.calls, "docker never invoked")
}

func TestTryLocalTiers_SkipsModelsNotInstalled(t *testing.T) {
	reg := registry.New(
		registry.ModelMetadata{ID: "tiny", Tier: registry.TierLocalFast, Provider: registry.ProviderOllama, ProviderModel: "tiny:1b"},
		registry.ModelMetadata{ID: "small", Tier: registry.TierLocalFast, Provider: registry.ProviderOllama, ProviderModel: "small:3b"},
	)
	ollama := &listingOllama{
		fakeGen:   fakeGen{answers: map[string]string{"tiny:1b": "never", "small:3b": "from small"}},
		installed: map[string]bool{"small:3b": true},
	}
	l := New(reg, []string{"tiny", "small"}, WithOllama(ollama))

	res, err := l.TryLocalTiers(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "small", res.Model)
	assert.Equal(t, []string{"tiny:1b", "small:3b"}, ollama.checks)
	assert.Equal(t, []string{"small:3b"}, ollama.calls)
}

func TestTryLocalTiers_EverythingSkipped(t *testing.T) {
	docker := &offlineDocker{}
	ollama := &listingOllama{installed: map[string]bool{}}
	l := New(registry.Default(), []string{"smollm3-1.7b", "llama3.2-3b"}, WithDocker(docker), WithOllama(ollama))

	res, err := l.TryLocalTiers(context.Background(), "hi")
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDockerNotFound)
	assert.Contains(t, err.Error(), "not installed")
	assert.Empty(t, ollama.calls)
}

func TestTryLocalTiers_ListFailureStillTries(t *testing.T) {
	ollama := &listingOllama{
		fakeGen: fakeGen{answers: map[string]string{"llama3.2:3b": "from ollama"}},
		listErr: errors.New("connection refused"),
	}
	l := New(registry.Default(), []string{"llama3.2-3b"}, WithOllama(ollama))

	res, err := l.TryLocalTiers(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "from ollama", res.Text)
}

// writeScript creates a fake docker binary.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "docker")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestDockerRunner_Generate(t *testing.T) {
	bin := writeScript(t, `echo "  $1 $2 $3: $4  "`)
	d := NewDockerRunner(bin, time.Second)

	assert.True(t, d.Available())
	out, err := d.Generate(context.Background(), "ai/smollm3", "hello there")
	require.NoError(t, err)
	assert.Equal(t, "model run ai/smollm3: hello there", out)
}

func TestDockerRunner_Failure(t *testing.T) {
	bin := writeScript(t, `echo "model not pulled" >&2; exit 3`)
	_, err := NewDockerRunner(bin, time.Second).Generate(context.Background(), "ai/x", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not pulled")
}

func TestDockerRunner_Timeout(t *testing.T) {
	bin := writeScript(t, `exec sleep 5`)
	start := time.Now()
	_, err := NewDockerRunner(bin, 100*time.Millisecond).Generate(context.Background(), "ai/x", "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestDockerRunner_Missing(t *testing.T) {
	d := NewDockerRunner(filepath.Join(t.TempDir(), "no-such-docker"), time.Second)
	assert.False(t, d.Available())
	_, err := d.Generate(context.Background(), "m", "p")
	assert.ErrorIs(t, err, ErrDockerNotFound)
}
