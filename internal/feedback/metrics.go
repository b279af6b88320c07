// Package feedback implements a per-run metrics collector and
// baseline-diffing workflow: per-run node metrics, a JSON metrics file,
// and a diff against a prior run's baseline. Grounded in mbflow's
// MetricsCollector (internal/infrastructure/monitoring/metrics.go),
// generalized from per-node-type/AI-specific counters to the generic
// per-node-id duration/outcome metrics this core's NodeResult carries.
package feedback

import (
	"sync"
	"time"

	"github.com/wfcore/wfcore/internal/domain"
)

// NodeMetrics aggregates one node's outcomes across however many times it
// ran in a single execution (retries count as separate attempts within
// the same node's totals, mirroring the teacher's isRetry counter).
type NodeMetrics struct {
	NodeID          string        `json:"nodeId"`
	ExecutionCount  int           `json:"executionCount"`
	SuccessCount    int           `json:"successCount"`
	FailureCount    int           `json:"failureCount"`
	RetryCount      int           `json:"retryCount"`
	TotalDuration   time.Duration `json:"totalDuration"`
	AverageDuration time.Duration `json:"averageDuration"`
	MinDuration     time.Duration `json:"minDuration"`
	MaxDuration     time.Duration `json:"maxDuration"`
}

// RunMetrics is the metrics file written after a run: one NodeMetrics per
// node ID observed, plus the run's overall outcome.
type RunMetrics struct {
	WorkflowID  string                  `json:"workflowId"`
	RunID       string                  `json:"runId"`
	Status      domain.Status           `json:"status"`
	StartedAt   time.Time               `json:"startedAt"`
	CompletedAt time.Time               `json:"completedAt"`
	Duration    time.Duration           `json:"duration"`
	Nodes       map[string]*NodeMetrics `json:"nodes"`
}

// Collector accumulates per-node metrics during a run via its Observer
// adapter (observer.go), safe for the same concurrent access pattern the
// executor's wave fan-out requires.
type Collector struct {
	mu    sync.Mutex
	nodes map[string]*NodeMetrics
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{nodes: map[string]*NodeMetrics{}}
}

// RecordNode folds one node execution's outcome into its running totals.
func (c *Collector) RecordNode(nodeID string, duration time.Duration, success bool, isRetry bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.nodes[nodeID]
	if !ok {
		m = &NodeMetrics{NodeID: nodeID, MinDuration: duration, MaxDuration: duration}
		c.nodes[nodeID] = m
	}

	m.ExecutionCount++
	if success {
		m.SuccessCount++
	} else {
		m.FailureCount++
	}
	if isRetry {
		m.RetryCount++
	}

	m.TotalDuration += duration
	m.AverageDuration = m.TotalDuration / time.Duration(m.ExecutionCount)
	if duration < m.MinDuration {
		m.MinDuration = duration
	}
	if duration > m.MaxDuration {
		m.MaxDuration = duration
	}
}

// RecordRetry notes that a node is about to be retried, without touching
// the execution/success/failure counters an actual attempt's outcome
// updates — a retry signal precedes the attempt, it isn't one.
func (c *Collector) RecordRetry(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.nodes[nodeID]
	if !ok {
		m = &NodeMetrics{NodeID: nodeID}
		c.nodes[nodeID] = m
	}
	m.RetryCount++
}

// Snapshot builds a RunMetrics document from the collector's current
// totals plus the run-level fields the caller supplies.
func (c *Collector) Snapshot(workflowID, runID string, status domain.Status, startedAt, completedAt time.Time) RunMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	nodes := make(map[string]*NodeMetrics, len(c.nodes))
	for id, m := range c.nodes {
		cp := *m
		nodes[id] = &cp
	}

	return RunMetrics{
		WorkflowID:  workflowID,
		RunID:       runID,
		Status:      status,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    completedAt.Sub(startedAt),
		Nodes:       nodes,
	}
}
