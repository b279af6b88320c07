package feedback_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfcore/wfcore/internal/domain"
	"github.com/wfcore/wfcore/internal/feedback"
)

func TestCollectorObserverRecordsCompletionsAndFailures(t *testing.T) {
	c := feedback.NewCollector()
	o := feedback.NewCollectorObserver(c)

	o.OnNodeCompleted("run1", "a", "output", 50*time.Millisecond)
	o.OnNodeFailed("run1", "b", fmt.Errorf("boom"), 75*time.Millisecond, false)
	o.OnNodeRetrying("run1", "b", 2, time.Second)

	snap := c.Snapshot("wf", "run1", domain.StatusCompleted, time.Now(), time.Now())

	a, ok := snap.Nodes["a"]
	require.True(t, ok)
	assert.Equal(t, 1, a.SuccessCount)

	b, ok := snap.Nodes["b"]
	require.True(t, ok)
	assert.Equal(t, 1, b.FailureCount)
	assert.Equal(t, 1, b.RetryCount)
}

func TestCollectorObserverIgnoresWaveAndCheckpointEvents(t *testing.T) {
	c := feedback.NewCollector()
	o := feedback.NewCollectorObserver(c)

	o.OnWaveStarted("run1", 0, []string{"a"})
	o.OnNodeStarted("run1", "a", 1)
	o.OnCheckpoint("run1", "/tmp/x.json", 0, nil)

	snap := c.Snapshot("wf", "run1", domain.StatusRunning, time.Now(), time.Now())
	assert.Empty(t, snap.Nodes)
}
