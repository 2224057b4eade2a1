// Package observability wires tracing and metrics for the agent core: one
// span per turn and per tool call, plus Prometheus counters for tool
// executions, provider retries, and compaction passes.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns the core's tracer.
func Tracer() trace.Tracer {
	return otel.Tracer("cocode/agent")
}

// Metrics are the core's Prometheus collectors.
type Metrics struct {
	ToolExecutions  *prometheus.CounterVec
	ToolDurations   *prometheus.HistogramVec
	ProviderRetries prometheus.Counter
	Compactions     *prometheus.CounterVec
	TurnsTotal      prometheus.Counter
}

// NewMetrics creates and registers the collectors on a registry. Pass
// prometheus.DefaultRegisterer outside tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ToolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cocode_tool_executions_total",
			Help: "Tool executions by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		ToolDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cocode_tool_duration_seconds",
			Help:    "Tool execution latency.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"tool"}),
		ProviderRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cocode_provider_retries_total",
			Help: "Provider request retries.",
		}),
		Compactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cocode_compactions_total",
			Help: "Compaction passes by tier.",
		}, []string{"tier"}),
		TurnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cocode_turns_total",
			Help: "Completed model turns.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ToolExecutions, m.ToolDurations, m.ProviderRetries, m.Compactions, m.TurnsTotal)
	}
	return m
}

// NopMetrics returns unregistered collectors for tests and subagents.
func NopMetrics() *Metrics {
	return NewMetrics(nil)
}
