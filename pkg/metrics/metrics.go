// Package metrics exposes prometheus collectors for the execution substrate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector. A nil *Metrics is safe to call.
type Metrics struct {
	ToolExecutions  *prometheus.CounterVec
	PolicyDecisions *prometheus.CounterVec
	RunningProcs    prometheus.Gauge
	ActiveSessions  prometheus.Gauge
	PrunedProfiles  prometheus.Counter
}

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ToolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quill",
			Name:      "tool_executions_total",
			Help:      "Tool executions by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		PolicyDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quill",
			Name:      "policy_decisions_total",
			Help:      "Permission and browser policy decisions.",
		}, []string{"decision"}),
		RunningProcs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quill",
			Name:      "background_processes_running",
			Help:      "Background processes currently running.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quill",
			Name:      "browser_sessions_active",
			Help:      "Open browser sessions.",
		}),
		PrunedProfiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quill",
			Name:      "browser_profiles_pruned_total",
			Help:      "Browser profiles removed by retention sweeps.",
		}),
	}
	reg.MustRegister(m.ToolExecutions, m.PolicyDecisions, m.RunningProcs, m.ActiveSessions, m.PrunedProfiles)
	return m
}

// RecordExecution counts one tool execution.
func (m *Metrics) RecordExecution(tool, outcome string) {
	if m == nil {
		return
	}
	m.ToolExecutions.WithLabelValues(tool, outcome).Inc()
}

// RecordDecision counts one policy or permission decision.
func (m *Metrics) RecordDecision(decision string) {
	if m == nil {
		return
	}
	m.PolicyDecisions.WithLabelValues(decision).Inc()
}

// ProcStarted / ProcStopped track the running-process gauge.
func (m *Metrics) ProcStarted() {
	if m != nil {
		m.RunningProcs.Inc()
	}
}

func (m *Metrics) ProcStopped() {
	if m != nil {
		m.RunningProcs.Dec()
	}
}

// SessionOpened / SessionClosed track the active-session gauge.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.ActiveSessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.ActiveSessions.Dec()
	}
}

// ProfilesPruned counts profiles removed by a sweep.
func (m *Metrics) ProfilesPruned(count int) {
	if m != nil && count > 0 {
		m.PrunedProfiles.Add(float64(count))
	}
}
