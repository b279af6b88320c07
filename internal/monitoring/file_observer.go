package monitoring

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// FileObserver appends one JSON line per event to a file, implementing the
// executor core's `logPath` best-effort audit sink:
// write failures are recorded on LastError and never returned to the caller,
// since a broken audit sink must not fail a workflow run.
type FileObserver struct {
	mu        sync.Mutex
	path      string
	f         *os.File
	LastError error
}

type logLine struct {
	Time    time.Time `json:"time"`
	Event   string    `json:"event"`
	RunID   string    `json:"runId"`
	NodeID  string    `json:"nodeId,omitempty"`
	Wave    *int      `json:"wave,omitempty"`
	Attempt *int      `json:"attempt,omitempty"`
	Delay   string    `json:"delay,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// NewFileObserver opens (creating/appending) the file at path.
func NewFileObserver(path string) *FileObserver {
	fo := &FileObserver{path: path}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fo.LastError = err
		return fo
	}
	fo.f = f
	return fo
}

func (fo *FileObserver) write(l logLine) {
	fo.mu.Lock()
	defer fo.mu.Unlock()
	if fo.f == nil {
		return
	}
	l.Time = time.Now()
	data, err := json.Marshal(l)
	if err != nil {
		fo.LastError = err
		return
	}
	data = append(data, '\n')
	if _, err := fo.f.Write(data); err != nil {
		fo.LastError = err
	}
}

func (fo *FileObserver) OnWaveStarted(runID string, waveNumber int, nodeIDs []string) {
	w := waveNumber
	fo.write(logLine{Event: "wave_started", RunID: runID, Wave: &w})
}

func (fo *FileObserver) OnNodeStarted(runID, nodeID string, attempt int) {
	a := attempt
	fo.write(logLine{Event: "node_started", RunID: runID, NodeID: nodeID, Attempt: &a})
}

func (fo *FileObserver) OnNodeCompleted(runID, nodeID string, output any, duration time.Duration) {
	fo.write(logLine{Event: "node_completed", RunID: runID, NodeID: nodeID})
}

func (fo *FileObserver) OnNodeFailed(runID, nodeID string, err error, duration time.Duration, willRetry bool) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	fo.write(logLine{Event: "node_failed", RunID: runID, NodeID: nodeID, Error: msg})
}

func (fo *FileObserver) OnNodeRetrying(runID, nodeID string, attempt int, delay time.Duration) {
	a := attempt
	fo.write(logLine{Event: "node_retrying", RunID: runID, NodeID: nodeID, Attempt: &a, Delay: delay.String()})
}

func (fo *FileObserver) OnCheckpoint(runID, path string, waveNumber int, err error) {
	w := waveNumber
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	fo.write(logLine{Event: "checkpoint", RunID: runID, Wave: &w, Error: msg})
}

// Close releases the underlying file handle.
func (fo *FileObserver) Close() error {
	fo.mu.Lock()
	defer fo.mu.Unlock()
	if fo.f == nil {
		return nil
	}
	return fo.f.Close()
}
