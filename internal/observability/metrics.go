package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// PipelineMetrics collects processing outcomes. Implementations must be safe
// for concurrent use; the pipeline records each message's outcome exactly once.
type PipelineMetrics interface {
	RecordProcessed(latency time.Duration)
	RecordFailed()
	RecordRetried()
	RecordDeadLettered()
	RecordLost()
	Snapshot() MetricsSnapshot
}

// MetricsSnapshot is a point-in-time view of the counters.
type MetricsSnapshot struct {
	Processed    int64         `json:"processed"`
	Failed       int64         `json:"failed"`
	Retried      int64         `json:"retried"`
	DeadLettered int64         `json:"dead_lettered"`
	Lost         int64         `json:"lost"`
	AvgLatency   time.Duration `json:"avg_latency_ns"`
}

// InMemoryMetrics is the default atomic-counter implementation. The average
// latency is total processing time divided by processed count.
type InMemoryMetrics struct {
	processed    atomic.Int64
	failed       atomic.Int64
	retried      atomic.Int64
	deadLettered atomic.Int64
	lost         atomic.Int64

	mu           sync.Mutex
	totalLatency time.Duration
}

// NewInMemoryMetrics creates a zeroed collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{}
}

func (m *InMemoryMetrics) RecordProcessed(latency time.Duration) {
	m.processed.Add(1)
	m.mu.Lock()
	m.totalLatency += latency
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordFailed() {
	m.failed.Add(1)
}

func (m *InMemoryMetrics) RecordRetried() {
	m.retried.Add(1)
}

func (m *InMemoryMetrics) RecordDeadLettered() {
	m.deadLettered.Add(1)
}

func (m *InMemoryMetrics) RecordLost() {
	m.lost.Add(1)
}

func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	processed := m.processed.Load()

	m.mu.Lock()
	total := m.totalLatency
	m.mu.Unlock()

	var avg time.Duration
	if processed > 0 {
		avg = total / time.Duration(processed)
	}
	return MetricsSnapshot{
		Processed:    processed,
		Failed:       m.failed.Load(),
		Retried:      m.retried.Load(),
		DeadLettered: m.deadLettered.Load(),
		Lost:         m.lost.Load(),
		AvgLatency:   avg,
	}
}
