// Package monitoring implements the execution-observer fan-out, grounded
// in mbflow's ObserverManager / ExecutionObserver
// (internal/infrastructure/monitoring/observer.go), generalized from that
// teacher's workflow/execution/variable event set down to the six events the
// executor core actually raises: wave transitions, node lifecycle, and
// checkpoint persistence.
package monitoring

import (
	"sync"
	"time"
)

// Observer receives execution lifecycle events. Implementations must not
// block meaningfully — the executor calls observers synchronously on the
// hot path.
type Observer interface {
	OnWaveStarted(runID string, waveNumber int, nodeIDs []string)
	OnNodeStarted(runID, nodeID string, attempt int)
	OnNodeCompleted(runID, nodeID string, output any, duration time.Duration)
	OnNodeFailed(runID, nodeID string, err error, duration time.Duration, willRetry bool)
	OnNodeRetrying(runID, nodeID string, attempt int, delay time.Duration)
	OnCheckpoint(runID, path string, waveNumber int, err error)
}

// Manager fans events out to a set of observers, swallowing no information
// (every registered observer always sees every event) but never letting one
// observer's work block registration of another.
type Manager struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewManager creates a Manager wrapping the given observers.
func NewManager(observers ...Observer) *Manager {
	m := &Manager{}
	for _, o := range observers {
		if o != nil {
			m.observers = append(m.observers, o)
		}
	}
	return m
}

func (m *Manager) snapshot() []Observer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Observer, len(m.observers))
	copy(out, m.observers)
	return out
}

func (m *Manager) WaveStarted(runID string, waveNumber int, nodeIDs []string) {
	for _, o := range m.snapshot() {
		o.OnWaveStarted(runID, waveNumber, nodeIDs)
	}
}

func (m *Manager) NodeStarted(runID, nodeID string, attempt int) {
	for _, o := range m.snapshot() {
		o.OnNodeStarted(runID, nodeID, attempt)
	}
}

func (m *Manager) NodeCompleted(runID, nodeID string, output any, duration time.Duration) {
	for _, o := range m.snapshot() {
		o.OnNodeCompleted(runID, nodeID, output, duration)
	}
}

func (m *Manager) NodeFailed(runID, nodeID string, err error, duration time.Duration, willRetry bool) {
	for _, o := range m.snapshot() {
		o.OnNodeFailed(runID, nodeID, err, duration, willRetry)
	}
}

func (m *Manager) NodeRetrying(runID, nodeID string, attempt int, delay time.Duration) {
	for _, o := range m.snapshot() {
		o.OnNodeRetrying(runID, nodeID, attempt, delay)
	}
}

func (m *Manager) Checkpoint(runID, path string, waveNumber int, err error) {
	for _, o := range m.snapshot() {
		o.OnCheckpoint(runID, path, waveNumber, err)
	}
}
