package monitoring

import (
	"time"

	"github.com/rs/zerolog"
)

// ZerologObserver logs every event through a zerolog.Logger at the level
// appropriate to its severity, grounded in mbflow's LogObserver
// (internal/infrastructure/monitoring/log_observer.go) adapted from that
// teacher's ExecutionLogger indirection straight onto zerolog, the way
// factory.go and node_executors.go use it directly.
type ZerologObserver struct {
	log zerolog.Logger
}

// NewZerologObserver wraps a zerolog.Logger as an Observer.
func NewZerologObserver(log zerolog.Logger) *ZerologObserver {
	return &ZerologObserver{log: log}
}

func (z *ZerologObserver) OnWaveStarted(runID string, waveNumber int, nodeIDs []string) {
	z.log.Debug().Str("runId", runID).Int("wave", waveNumber).Strs("nodes", nodeIDs).Msg("wave started")
}

func (z *ZerologObserver) OnNodeStarted(runID, nodeID string, attempt int) {
	z.log.Debug().Str("runId", runID).Str("nodeId", nodeID).Int("attempt", attempt).Msg("node started")
}

func (z *ZerologObserver) OnNodeCompleted(runID, nodeID string, output any, duration time.Duration) {
	z.log.Info().Str("runId", runID).Str("nodeId", nodeID).Dur("duration", duration).Msg("node completed")
}

func (z *ZerologObserver) OnNodeFailed(runID, nodeID string, err error, duration time.Duration, willRetry bool) {
	z.log.Warn().Str("runId", runID).Str("nodeId", nodeID).Dur("duration", duration).
		Bool("willRetry", willRetry).Err(err).Msg("node failed")
}

func (z *ZerologObserver) OnNodeRetrying(runID, nodeID string, attempt int, delay time.Duration) {
	z.log.Warn().Str("runId", runID).Str("nodeId", nodeID).Int("attempt", attempt).
		Dur("delay", delay).Msg("node retrying")
}

func (z *ZerologObserver) OnCheckpoint(runID, path string, waveNumber int, err error) {
	ev := z.log.Debug()
	if err != nil {
		ev = z.log.Warn().Err(err)
	}
	ev.Str("runId", runID).Str("path", path).Int("wave", waveNumber).Msg("checkpoint persisted")
}
