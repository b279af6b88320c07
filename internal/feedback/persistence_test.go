package feedback_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfcore/wfcore/internal/domain"
	"github.com/wfcore/wfcore/internal/feedback"
)

func sampleMetrics(workflowID string, avg time.Duration) feedback.RunMetrics {
	return feedback.RunMetrics{
		WorkflowID: workflowID,
		RunID:      "run1",
		Status:     domain.StatusCompleted,
		Nodes: map[string]*feedback.NodeMetrics{
			"a": {NodeID: "a", ExecutionCount: 1, SuccessCount: 1, AverageDuration: avg},
		},
	}
}

func TestWriteAndLoadBaselineRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := sampleMetrics("wf1", 100*time.Millisecond)

	require.NoError(t, feedback.PromoteBaseline(dir, m))

	loaded, err := feedback.LoadBaseline(dir, "wf1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, m.WorkflowID, loaded.WorkflowID)
	assert.Equal(t, 100*time.Millisecond, loaded.Nodes["a"].AverageDuration)
}

func TestLoadBaselineMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	loaded, err := feedback.LoadBaseline(dir, "never-run-before")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestWriteMetricsProducesReadableFile(t *testing.T) {
	dir := t.TempDir()
	m := sampleMetrics("wf1", 50*time.Millisecond)
	require.NoError(t, feedback.WriteMetrics(dir, m))
}

func TestDiffFlagsNewAndResolvedFailures(t *testing.T) {
	baseline := feedback.RunMetrics{
		WorkflowID: "wf1",
		Nodes: map[string]*feedback.NodeMetrics{
			"flaky":  {NodeID: "flaky", FailureCount: 1, SuccessCount: 0},
			"steady": {NodeID: "steady", SuccessCount: 1, AverageDuration: 100 * time.Millisecond},
		},
	}
	current := feedback.RunMetrics{
		WorkflowID: "wf1",
		Nodes: map[string]*feedback.NodeMetrics{
			"flaky":  {NodeID: "flaky", SuccessCount: 1},
			"steady": {NodeID: "steady", SuccessCount: 1, AverageDuration: 150 * time.Millisecond},
			"new":    {NodeID: "new", FailureCount: 1},
		},
	}

	fb := feedback.Diff(baseline, current)
	byID := map[string]feedback.NodeDiff{}
	for _, d := range fb.Nodes {
		byID[d.NodeID] = d
	}

	assert.True(t, byID["flaky"].ResolvedFailure)
	assert.False(t, byID["flaky"].NewFailure)
	assert.True(t, byID["new"].NewFailure)
	assert.InDelta(t, 50.0, byID["steady"].DeltaPct, 0.01)
}

func TestWriteFeedbackProducesReadableFile(t *testing.T) {
	dir := t.TempDir()
	fb := feedback.Feedback{WorkflowID: "wf1", Nodes: []feedback.NodeDiff{{NodeID: "a"}}}
	require.NoError(t, feedback.WriteFeedback(dir, fb))
}
