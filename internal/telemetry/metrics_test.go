// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-route/internal/executor"
	"github.com/jeranaias/rigrun-route/internal/router"
)

func TestMetrics_Decisions(t *testing.T) {
	m := NewMetrics()
	m.ObserveDecision(&router.RoutingDecision{Selection: router.ModelSelection{
		Model: "claude", Tier: router.TierCloud, Stage: router.StageIntelligent, CostEstimate: 0.01,
	}})
	m.ObserveDecision(&router.RoutingDecision{Selection: router.ModelSelection{
		Model: "smollm3-1.7b", Tier: router.TierLocalFast, Stage: router.StagePrivacy,
	}})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("cloud", "intelligent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("local-fast", "privacy")))
	assert.InDelta(t, 0.01, testutil.ToFloat64(m.estimatedCost.WithLabelValues("cloud")), 1e-12)
}

func TestMetrics_Attempts(t *testing.T) {
	m := NewMetrics()
	m.ObserveAttempt(executor.Attempt{Model: "gpt-4", Latency: time.Second})
	m.ObserveAttempt(executor.Attempt{Model: "smollm3-1.7b", Success: true, IsLastResort: true})
	m.ObserveResult(&executor.Result{Success: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("gpt-4", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("smollm3-1.7b", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lastResort.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.executions.WithLabelValues("success")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.attemptLatency))
}

func TestMetrics_WriteToTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveResult(&executor.Result{})

	path := filepath.Join(t.TempDir(), "rigrun.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `rigrun_executor_executions_total{outcome="failure"} 1`)
}
