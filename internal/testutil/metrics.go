package testutil

import (
	"sync"
	"time"
)

// NopMetrics implements ports.MetricsCollector while counting calls,
// so tests can assert that instrumentation paths are exercised without
// touching a Prometheus registry.
type NopMetrics struct {
	mu          sync.Mutex
	Turns       int
	Routings    int
	Degraded    int
	Tools       int
	LLMCalls    int
	Compactions map[string]int
	Events      map[string]int
	ActiveTurns int
}

// NewNopMetrics creates a counting no-op collector.
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{
		Compactions: make(map[string]int),
		Events:      make(map[string]int),
	}
}

func (n *NopMetrics) RecordTurn(specialist, status string, duration time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Turns++
}

func (n *NopMetrics) RecordRouting(specialist string, degraded bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Routings++
	if degraded {
		n.Degraded++
	}
}

func (n *NopMetrics) RecordToolExecution(tool, status string, duration time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Tools++
}

func (n *NopMetrics) RecordLLMCall(op, status string, duration time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.LLMCalls++
}

func (n *NopMetrics) RecordCompaction(status string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Compactions[status]++
}

func (n *NopMetrics) RecordEventEmitted(eventType string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Events[eventType]++
}

func (n *NopMetrics) SetActiveTurns(count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ActiveTurns = count
}

// EventCount returns how many events of the given type were recorded.
func (n *NopMetrics) EventCount(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Events[eventType]
}
