package feedback

import (
	"time"

	"github.com/wfcore/wfcore/internal/monitoring"
)

// CollectorObserver adapts Collector to monitoring.Observer so it can be
// registered alongside any other observer in executor.Options.Observers.
type CollectorObserver struct {
	collector *Collector
}

// NewCollectorObserver wraps c as a monitoring.Observer.
func NewCollectorObserver(c *Collector) *CollectorObserver {
	return &CollectorObserver{collector: c}
}

func (o *CollectorObserver) OnWaveStarted(runID string, waveNumber int, nodeIDs []string) {}

func (o *CollectorObserver) OnNodeStarted(runID, nodeID string, attempt int) {}

func (o *CollectorObserver) OnNodeCompleted(runID, nodeID string, output any, duration time.Duration) {
	o.collector.RecordNode(nodeID, duration, true, false)
}

func (o *CollectorObserver) OnNodeFailed(runID, nodeID string, err error, duration time.Duration, willRetry bool) {
	o.collector.RecordNode(nodeID, duration, false, false)
}

func (o *CollectorObserver) OnNodeRetrying(runID, nodeID string, attempt int, delay time.Duration) {
	o.collector.RecordRetry(nodeID)
}

func (o *CollectorObserver) OnCheckpoint(runID, path string, waveNumber int, err error) {}

var _ monitoring.Observer = (*CollectorObserver)(nil)
