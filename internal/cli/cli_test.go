// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-route/internal/config"
	"github.com/jeranaias/rigrun-route/internal/executor"
	"github.com/jeranaias/rigrun-route/internal/offline"
	"github.com/jeranaias/rigrun-route/internal/registry"
)

var testNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

// fakeCaller answers every model with reply, or fails with err.
type fakeCaller struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []string
}

func (f *fakeCaller) CallModel(ctx context.Context, prompt, model string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, model)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestApp(t *testing.T, caller executor.ModelCaller) *app {
	t.Helper()
	t.Setenv("RIGRUN_HOME", t.TempDir())
	for _, k := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY", "RIGRUN_OFFLINE"} {
		t.Setenv(k, "")
	}

	a := newApp()
	a.now = func() time.Time { return testNow }
	a.newCaller = func(context.Context, *config.Config, *registry.Registry) (executor.ModelCaller, error) {
		return caller, nil
	}
	a.newLocal = func(*config.Config, *registry.Registry) executor.LocalFallback { return nil }
	return a
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(a)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *string         `json:"error"`
	Command string          `json:"command"`
}

func decodeEnvelope(t *testing.T, out string) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	return env
}

func TestRootCommandFlags(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"config", "loadout", "json", "offline", "verbose"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "missing --%s", name)
	}

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"route", "run", "models", "spend", "config", "chat"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	for _, name := range []string{"privacy", "tier", "use-case", "spend", "no-fallback", "no-local-fallback"} {
		assert.NotNil(t, run.Flags().Lookup(name), "run missing --%s", name)
	}
}

func TestRouteCommand_JSON(t *testing.T) {
	a := newTestApp(t, &fakeCaller{reply: "unused"})

	out, err := execute(t, a, "route", "--json", "--privacy", "summarize", "my", "notes")
	require.NoError(t, err)

	env := decodeEnvelope(t, out)
	assert.True(t, env.Success)
	assert.Equal(t, "route", env.Command)

	var d struct {
		Task      string `json:"task"`
		Timestamp time.Time
		Selection struct {
			Model             string   `json:"model"`
			Tier              string   `json:"tier"`
			Fallbacks         []string `json:"fallbacks"`
			PrivacyProtection bool     `json:"privacy_protection"`
		} `json:"selection"`
		Validation struct {
			Valid bool `json:"valid"`
		} `json:"validation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.Equal(t, "summarize my notes", d.Task)
	assert.True(t, testNow.Equal(d.Timestamp))
	assert.True(t, d.Selection.PrivacyProtection)
	assert.NotEqual(t, "cloud", d.Selection.Tier)
	assert.True(t, d.Validation.Valid)
}

func TestRouteCommand_Human(t *testing.T) {
	a := newTestApp(t, &fakeCaller{})
	out, err := execute(t, a, "route", "write a python function to parse csv files")
	require.NoError(t, err)
	assert.Contains(t, out, "Routing decision")
	assert.Contains(t, out, "Fallbacks")
	assert.Contains(t, out, registry.DefaultLocalModel)
}

func TestRunCommand_RecordsSpend(t *testing.T) {
	caller := &fakeCaller{reply: "here is your answer"}
	a := newTestApp(t, caller)

	out, err := execute(t, a, "run", "--tier", "cloud", "design a globally distributed cache with strong consistency")
	require.NoError(t, err)
	assert.Contains(t, out, "here is your answer")
	require.NotEmpty(t, caller.calls)

	a = newTestApp(t, caller)
	out, err = execute(t, a, "spend", "--json")
	require.NoError(t, err)

	env := decodeEnvelope(t, out)
	var report spendReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "2025-03", report.Month)
	assert.Nil(t, report.Remaining)
}

func TestRunCommand_SpendVisibleAfterRun(t *testing.T) {
	caller := &fakeCaller{reply: "ok"}
	a := newTestApp(t, caller)

	_, err := execute(t, a, "run", "--tier", "cloud", "compare these two sorting algorithms in depth")
	require.NoError(t, err)

	out, err := execute(t, a, "spend", "--json", "--days", "1")
	require.NoError(t, err)
	var report spendReport
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, out).Data, &report))
	assert.Greater(t, report.Spend, 0.0)
	require.NotEmpty(t, report.Tiers)
	assert.Equal(t, "cloud", report.Tiers[0].Tier)
	require.Len(t, report.Daily, 1)
	assert.Equal(t, "2025-03-14", report.Daily[0].Date)
}

func TestSpendCommand_PruneBefore(t *testing.T) {
	a := newTestApp(t, &fakeCaller{reply: "ok"})

	_, err := execute(t, a, "run", "--tier", "cloud", "compare these two sorting algorithms in depth")
	require.NoError(t, err)

	out, err := execute(t, a, "spend", "--json", "--prune-before", "2025-03-01")
	require.NoError(t, err)
	var kept spendReport
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, out).Data, &kept))
	assert.Zero(t, kept.Pruned)
	assert.Greater(t, kept.Spend, 0.0)

	out, err = execute(t, a, "spend", "--json", "--prune-before", "2025-03-15")
	require.NoError(t, err)
	var pruned spendReport
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, out).Data, &pruned))
	assert.Positive(t, pruned.Pruned)
	assert.Zero(t, pruned.Spend)
	assert.Empty(t, pruned.Tiers)

	_, err = execute(t, a, "spend", "--prune-before", "last tuesday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--prune-before")
}

func TestRunCommand_AllModelsFail(t *testing.T) {
	caller := &fakeCaller{err: errors.New("connection refused")}
	a := newTestApp(t, caller)

	out, err := execute(t, a, "run", "--no-local-fallback", "hello there")
	assert.ErrorIs(t, err, ErrAllModelsFailed)
	assert.Contains(t, out, "No model could process this request")
}

func TestRunCommand_NoFallback(t *testing.T) {
	caller := &fakeCaller{err: errors.New("boom")}
	a := newTestApp(t, caller)

	out, err := execute(t, a, "run", "--json", "--no-fallback", "hello there")
	assert.ErrorIs(t, err, ErrAllModelsFailed)
	assert.Len(t, caller.calls, 1)

	env := decodeEnvelope(t, out)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
}

func TestRenderAttempts_SummarisesFailures(t *testing.T) {
	tests := []struct {
		name    string
		res     *executor.Result
		summary bool
	}{
		{"recovered", &executor.Result{Success: true, Model: "b", Attempts: []executor.Attempt{
			{Model: "a", Tier: "cloud", Error: "down"},
			{Model: "b", Tier: "local-fast", Success: true},
		}}, true},
		{"first try", &executor.Result{Success: true, Model: "a", Attempts: []executor.Attempt{
			{Model: "a", Tier: "cloud", Success: true},
		}}, false},
		{"total failure", &executor.Result{Attempts: []executor.Attempt{
			{Model: "a", Tier: "cloud", Error: "down"},
		}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			renderAttempts(&buf, tt.res)
			if tt.summary {
				assert.Contains(t, buf.String(), "answered by b after 1 failed attempt(s)")
			} else {
				assert.NotContains(t, buf.String(), "failed attempt(s)")
			}
		})
	}
}

func TestModelsCommand(t *testing.T) {
	a := newTestApp(t, &fakeCaller{})
	out, err := execute(t, a, "models")
	require.NoError(t, err)
	for _, m := range registry.Default().Models() {
		assert.Contains(t, out, m.ID)
	}

	out, err = execute(t, a, "models", "--tier", "cloud", "--json")
	require.NoError(t, err)
	var models []registry.ModelMetadata
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, out).Data, &models))
	require.NotEmpty(t, models)
	for _, m := range models {
		assert.Equal(t, registry.TierCloud, m.Tier)
	}

	_, err = execute(t, a, "models", "--tier", "quantum")
	assert.Error(t, err)
}

func TestConfigInitShowPath(t *testing.T) {
	a := newTestApp(t, &fakeCaller{})
	path := filepath.Join(t.TempDir(), "sheet", "character.toml")

	out, err := execute(t, a, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = execute(t, a, "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, a, "config", "init", "--config", path, "--force")
	require.NoError(t, err)

	out, err = execute(t, a, "config", "show", "--config", path, "--json")
	require.NoError(t, err)
	env := decodeEnvelope(t, out)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), "fallback_behavior")

	out, err = execute(t, a, "config", "path", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(out))
}

func TestConfigInit_DefaultLocation(t *testing.T) {
	a := newTestApp(t, &fakeCaller{})
	home := filepath.Join(t.TempDir(), "fresh", ".rigrun")
	t.Setenv("RIGRUN_HOME", home)

	out, err := execute(t, a, "config", "init")
	require.NoError(t, err)
	want := filepath.Join(home, "character.toml")
	assert.Contains(t, out, want)
	assert.FileExists(t, want)

	cfg, err := config.LoadFromPath(want)
	require.NoError(t, err)
	assert.Equal(t, registry.DefaultLocalModel, cfg.FallbackBehavior.Fallback)
}

func TestConfigShow_RedactsKeys(t *testing.T) {
	a := newTestApp(t, &fakeCaller{})
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-secret")

	out, err := execute(t, a, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-ant-secret")
	assert.Contains(t, out, "[REDACTED]")
}

func TestChatCommand(t *testing.T) {
	caller := &fakeCaller{reply: "chat reply"}
	a := newTestApp(t, caller)
	a.in = strings.NewReader("hello\n\n/privacy\n/route summarize this\n/bogus\n/quit\nnever sent\n")

	out, err := execute(t, a, "chat", "--no-watch")
	require.NoError(t, err)
	assert.Contains(t, out, "chat reply")
	assert.Contains(t, out, "Privacy mode")
	assert.Contains(t, out, "Routing decision")
	assert.Contains(t, out, "unknown command /bogus")
	assert.Len(t, caller.calls, 1)
}

func TestWatchConfig_ReloadKeepsFlagOverlays(t *testing.T) {
	a := newTestApp(t, &fakeCaller{reply: "ok"})
	t.Cleanup(func() { offline.SetOfflineMode(false) })

	path := filepath.Join(t.TempDir(), "character.toml")
	require.NoError(t, os.WriteFile(path, []byte("[cost_settings]\nmonthly_budget = 1.0\n"), 0600))
	a.configPath = path
	a.offline = true

	cfg, err := a.readConfig()
	require.NoError(t, err)
	eng, err := a.newEngine(context.Background(), cfg)
	require.NoError(t, err)
	sess := &chatSession{cfg: cfg, router: a.newRouter(cfg), engine: eng}

	w := a.watchConfig(context.Background(), sess)
	require.NotNil(t, w)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[cost_settings]\nmonthly_budget = 7.0\n"), 0600))
	require.Eventually(t, func() bool {
		cfg, _, _ := sess.snapshot()
		return cfg.CostSettings.MonthlyBudget == 7.0
	}, 5*time.Second, 20*time.Millisecond)

	reloaded, _, _ := sess.snapshot()
	assert.True(t, reloaded.Cloud.Offline, "--offline survives a reload")
	assert.NotSame(t, cfg, reloaded)
}
