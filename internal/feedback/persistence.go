package feedback

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// WriteMetrics serializes m to <workflowID>.metrics.json in dir.
func WriteMetrics(dir string, m RunMetrics) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("feedback: marshal metrics: %w", err)
	}
	path := metricsPath(dir, m.WorkflowID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("feedback: write metrics: %w", err)
	}
	return nil
}

// LoadBaseline reads <workflowID>.baseline.json from dir. A missing file
// is not an error — callers get (nil, nil) and skip diffing, since a
// workflow's first run has nothing to compare against yet.
func LoadBaseline(dir, workflowID string) (*RunMetrics, error) {
	data, err := os.ReadFile(baselinePath(dir, workflowID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("feedback: read baseline: %w", err)
	}
	var m RunMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("feedback: parse baseline: %w", err)
	}
	return &m, nil
}

// PromoteBaseline copies the just-written metrics file into
// <workflowID>.baseline.json, so the next run has something to diff
// against. Callers typically do this only after a successful run.
func PromoteBaseline(dir string, m RunMetrics) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("feedback: marshal baseline: %w", err)
	}
	if err := os.WriteFile(baselinePath(dir, m.WorkflowID), data, 0o644); err != nil {
		return fmt.Errorf("feedback: write baseline: %w", err)
	}
	return nil
}

func metricsPath(dir, workflowID string) string {
	return filepath.Join(dir, workflowID+".metrics.json")
}

func baselinePath(dir, workflowID string) string {
	return filepath.Join(dir, workflowID+".baseline.json")
}

func feedbackPath(dir, workflowID string) string {
	return filepath.Join(dir, workflowID+".feedback.json")
}

// NodeDiff compares one node's metrics across a baseline and the current
// run.
type NodeDiff struct {
	NodeID          string        `json:"nodeId"`
	BaselineAvg     time.Duration `json:"baselineAverageDuration"`
	CurrentAvg      time.Duration `json:"currentAverageDuration"`
	DeltaPct        float64       `json:"deltaPercent"`
	NewFailure      bool          `json:"newFailure"`
	ResolvedFailure bool          `json:"resolvedFailure"`
}

// Feedback is the diff document written after comparing a run's metrics
// to its baseline.
type Feedback struct {
	WorkflowID string     `json:"workflowId"`
	Nodes      []NodeDiff `json:"nodes"`
}

// Diff compares current against baseline, producing one NodeDiff per node
// ID present in either. Nodes present only in current (new since the
// baseline) get a zero BaselineAvg and no percentage delta.
func Diff(baseline, current RunMetrics) Feedback {
	ids := map[string]bool{}
	for id := range baseline.Nodes {
		ids[id] = true
	}
	for id := range current.Nodes {
		ids[id] = true
	}

	fb := Feedback{WorkflowID: current.WorkflowID}
	for id := range ids {
		base := baseline.Nodes[id]
		cur := current.Nodes[id]

		d := NodeDiff{NodeID: id}
		if base != nil {
			d.BaselineAvg = base.AverageDuration
		}
		if cur != nil {
			d.CurrentAvg = cur.AverageDuration
		}
		if base != nil && base.AverageDuration > 0 && cur != nil {
			d.DeltaPct = (float64(cur.AverageDuration) - float64(base.AverageDuration)) / float64(base.AverageDuration) * 100
		}
		baseFailed := base != nil && base.FailureCount > 0 && base.SuccessCount == 0
		curFailed := cur != nil && cur.FailureCount > 0 && cur.SuccessCount == 0
		d.NewFailure = curFailed && !baseFailed
		d.ResolvedFailure = baseFailed && !curFailed

		fb.Nodes = append(fb.Nodes, d)
	}
	sort.Slice(fb.Nodes, func(i, j int) bool { return fb.Nodes[i].NodeID < fb.Nodes[j].NodeID })
	return fb
}

// WriteFeedback serializes fb to <workflowID>.feedback.json in dir.
func WriteFeedback(dir string, fb Feedback) error {
	data, err := json.MarshalIndent(fb, "", "  ")
	if err != nil {
		return fmt.Errorf("feedback: marshal feedback: %w", err)
	}
	if err := os.WriteFile(feedbackPath(dir, fb.WorkflowID), data, 0o644); err != nil {
		return fmt.Errorf("feedback: write feedback: %w", err)
	}
	return nil
}
