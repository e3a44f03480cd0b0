package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	turnsTotal    *prometheus.CounterVec
	turnDuration  *prometheus.HistogramVec
	routingsTotal *prometheus.CounterVec
	toolsTotal    *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	llmCalls      *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	compactions   *prometheus.CounterVec
	eventsEmitted *prometheus.CounterVec
	activeTurns   prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector on the default
// registry.
func NewCollector() *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer)
}

// NewCollectorWith creates a collector on the given registerer. Tests use
// a private registry to avoid duplicate registration.
func NewCollectorWith(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_turns_total",
				Help: "Total number of turns processed",
			},
			[]string{"specialist", "status"},
		),
		turnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "support_turn_duration_seconds",
				Help:    "Turn duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"specialist"},
		),
		routingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_routings_total",
				Help: "Total number of routing decisions",
			},
			[]string{"specialist", "degraded"},
		),
		toolsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool", "status"},
		),
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "support_tool_duration_seconds",
				Help:    "Tool execution duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"tool"},
		),
		llmCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_llm_calls_total",
				Help: "Total number of LLM API calls",
			},
			[]string{"op", "status"},
		),
		llmLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "support_llm_latency_seconds",
				Help:    "LLM call latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"op"},
		),
		compactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_compactions_total",
				Help: "Total number of context compaction passes",
			},
			[]string{"status"},
		),
		eventsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "support_events_emitted_total",
				Help: "Total number of turn events emitted",
			},
			[]string{"type"},
		),
		activeTurns: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "support_active_turns",
				Help: "Number of turns currently executing or queued",
			},
		),
	}
}

// RecordTurn records a completed or failed turn
func (c *Collector) RecordTurn(specialist, status string, duration time.Duration) {
	c.turnsTotal.WithLabelValues(specialist, status).Inc()
	c.turnDuration.WithLabelValues(specialist).Observe(duration.Seconds())
}

// RecordRouting records a routing decision
func (c *Collector) RecordRouting(specialist string, degraded bool) {
	c.routingsTotal.WithLabelValues(specialist, strconv.FormatBool(degraded)).Inc()
}

// RecordToolExecution records a tool invocation attempt
func (c *Collector) RecordToolExecution(tool, status string, duration time.Duration) {
	c.toolsTotal.WithLabelValues(tool, status).Inc()
	c.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordLLMCall records an LLM API call
func (c *Collector) RecordLLMCall(op, status string, duration time.Duration) {
	c.llmCalls.WithLabelValues(op, status).Inc()
	c.llmLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordCompaction records a compaction pass outcome
func (c *Collector) RecordCompaction(status string) {
	c.compactions.WithLabelValues(status).Inc()
}

// RecordEventEmitted records a delivered turn event
func (c *Collector) RecordEventEmitted(eventType string) {
	c.eventsEmitted.WithLabelValues(eventType).Inc()
}

// SetActiveTurns sets the active turn gauge
func (c *Collector) SetActiveTurns(count int) {
	c.activeTurns.Set(float64(count))
}
