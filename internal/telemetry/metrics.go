// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jeranaias/rigrun-route/internal/executor"
	"github.com/jeranaias/rigrun-route/internal/router"
)

const namespace = "rigrun"

// =============================================================================
// METRICS
// =============================================================================

// Metrics counts routing decisions and execution attempts. It satisfies
// both router.Observer and executor.Observer.
type Metrics struct {
	registry *prometheus.Registry

	decisions      *prometheus.CounterVec
	estimatedCost  *prometheus.CounterVec
	attempts       *prometheus.CounterVec
	attemptLatency *prometheus.HistogramVec
	lastResort     *prometheus.CounterVec
	executions     *prometheus.CounterVec
}

var (
	_ router.Observer   = (*Metrics)(nil)
	_ executor.Observer = (*Metrics)(nil)
)

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "decisions_total",
			Help:      "Routing decisions by selected tier and deciding stage",
		},
		[]string{"tier", "stage"},
	)
	m.estimatedCost = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "estimated_cost_dollars_total",
			Help:      "Sum of decision cost estimates in USD",
		},
		[]string{"tier"},
	)
	m.attempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "attempts_total",
			Help:      "Model call attempts by model and outcome",
		},
		[]string{"model", "outcome"},
	)
	m.attemptLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "attempt_latency_seconds",
			Help:      "Model call latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)
	m.lastResort = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "last_resort_total",
			Help:      "Local last-resort attempts by outcome",
		},
		[]string{"outcome"},
	)
	m.executions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "executions_total",
			Help:      "Completed executions by outcome",
		},
		[]string{"outcome"},
	)

	m.registry.MustRegister(
		m.decisions,
		m.estimatedCost,
		m.attempts,
		m.attemptLatency,
		m.lastResort,
		m.executions,
	)
	return m
}

// Registry exposes the underlying registry for scraping or tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveDecision implements router.Observer.
func (m *Metrics) ObserveDecision(d *router.RoutingDecision) {
	tier := d.Selection.Tier.String()
	m.decisions.WithLabelValues(tier, d.Selection.Stage.String()).Inc()
	if d.Selection.CostEstimate > 0 {
		m.estimatedCost.WithLabelValues(tier).Add(d.Selection.CostEstimate)
	}
}

// ObserveAttempt implements executor.Observer.
func (m *Metrics) ObserveAttempt(a executor.Attempt) {
	outcome := outcomeLabel(a.Success)
	m.attempts.WithLabelValues(a.Model, outcome).Inc()
	m.attemptLatency.WithLabelValues(a.Model).Observe(a.Latency.Seconds())
	if a.IsLastResort {
		m.lastResort.WithLabelValues(outcome).Inc()
	}
}

// ObserveResult implements executor.Observer.
func (m *Metrics) ObserveResult(r *executor.Result) {
	m.executions.WithLabelValues(outcomeLabel(r.Success)).Inc()
}

// WriteToTextfile writes the current samples in the node-exporter textfile
// format. The write is atomic.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func outcomeLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
