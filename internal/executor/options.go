package executor

import (
	"time"

	"github.com/wfcore/wfcore/internal/monitoring"
	"github.com/wfcore/wfcore/internal/retry"
	"github.com/wfcore/wfcore/internal/runtime"
)

// Options configures a top-level Execute call. Grounded in mbflow's
// ExecutorConfig/EngineConfig (internal/application/executor/factory.go):
// a plain struct, not a generic config loader, since the core has no
// config files of its own.
type Options struct {
	// Registry resolves runtime keys for data-flow, checkpoint, and
	// composition nodes. The four control kinds (parallel/foreach/loop/
	// timeout) are dispatched natively and never consult the registry.
	Registry *runtime.Registry

	MaxConcurrency     int // default 10
	Timeout            time.Duration
	PersistencePath    string
	ErrorHandler       func(error)
	DefaultRetryConfig retry.Config
	LogPath            string

	Observers     []monitoring.Observer
	BreakerConfig BreakerConfig
	RunIDOverride string // for resume: reuse the persisted run's ID
}

func (o Options) maxConcurrency() int {
	if o.MaxConcurrency > 0 {
		return o.MaxConcurrency
	}
	return 10
}
