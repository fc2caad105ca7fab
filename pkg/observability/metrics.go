// Package observability wires workflow step instrumentation to
// Prometheus.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/elicit/pkg/workflow"
)

// StepMetrics records per-node execution counters and latency.
type StepMetrics struct {
	steps    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewStepMetrics creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer for the process-global registry.
func NewStepMetrics(reg prometheus.Registerer) *StepMetrics {
	m := &StepMetrics{
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "elicit_steps_total",
				Help: "Total number of workflow step executions",
			},
			[]string{"node", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "elicit_step_duration_seconds",
				Help: "Duration of workflow step executions",
			},
			[]string{"node"},
		),
	}
	reg.MustRegister(m.steps, m.duration)
	return m
}

// Hook returns a workflow.StepHook that feeds the collectors.
func (m *StepMetrics) Hook() workflow.StepHook {
	return func(sessionID, node string, elapsed time.Duration, err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		m.steps.WithLabelValues(node, outcome).Inc()
		m.duration.WithLabelValues(node).Observe(elapsed.Seconds())
	}
}
