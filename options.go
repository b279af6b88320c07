package wfcore

import (
	"time"

	"github.com/wfcore/wfcore/internal/executor"
	"github.com/wfcore/wfcore/internal/monitoring"
	"github.com/wfcore/wfcore/internal/retry"
	"github.com/wfcore/wfcore/internal/runtime"
)

// Runtime is the plug-in interface a caller implements to handle a node
// kind's registry key. Register instances on a *Registry built with
// NewRegistry and pass it to Run/Resume via Options.Registry.
type Runtime = runtime.Runtime

// RuntimeFunc adapts a plain function to the Runtime interface.
type RuntimeFunc = runtime.RuntimeFunc

// Request is the per-invocation payload a Runtime receives: the node's
// resolved input and config, plus the live evaluation state.
type Request = runtime.Request

// Registry is the keyed runtime lookup table.
type Registry = runtime.Registry

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry { return runtime.NewRegistry() }

// RetryConfig is a node's effective retry/backoff/fallback policy.
type RetryConfig = retry.Config

// BreakerConfig configures the per-runtime-key circuit breaker.
type BreakerConfig = executor.BreakerConfig

// DefaultBreakerConfig returns the package's default breaker thresholds.
func DefaultBreakerConfig() BreakerConfig { return executor.DefaultBreakerConfig() }

// Options configures a Run or Resume call: the runtime registry, the global
// concurrency cap and timeout, a checkpoint path, an error-handling
// callback, the default retry policy for nodes that don't declare their
// own, an optional audit log path, execution observers, and circuit-breaker
// thresholds.
type Options struct {
	Registry           *Registry
	MaxConcurrency     int
	Timeout            time.Duration
	PersistencePath    string
	ErrorHandler       func(error)
	DefaultRetryConfig RetryConfig
	LogPath            string
	Observers          []Observer
	BreakerConfig      BreakerConfig
	RunIDOverride      string
}

func (o Options) toInternal() executor.Options {
	return executor.Options{
		Registry:           o.Registry,
		MaxConcurrency:     o.MaxConcurrency,
		Timeout:            o.Timeout,
		PersistencePath:    o.PersistencePath,
		ErrorHandler:       o.ErrorHandler,
		DefaultRetryConfig: o.DefaultRetryConfig,
		LogPath:            o.LogPath,
		Observers:          append([]monitoring.Observer{}, o.Observers...),
		BreakerConfig:      o.BreakerConfig,
		RunIDOverride:      o.RunIDOverride,
	}
}
