package executor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wfcore/wfcore/internal/domain"
	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
	"github.com/wfcore/wfcore/internal/monitoring"
	"github.com/wfcore/wfcore/internal/runtime"
	"github.com/wfcore/wfcore/internal/state"
)

// Execute drives plan to completion (or failure) against state. It is the
// sole entry point both fresh runs and Resume funnel through.
func Execute(ctx context.Context, plan *domain.ExecutionPlan, st *state.Container, opts Options) error {
	reg := opts.Registry
	if reg == nil {
		reg = runtime.NewRegistry()
	}
	breakerCfg := opts.BreakerConfig
	if breakerCfg.FailureThreshold == 0 {
		breakerCfg = DefaultBreakerConfig()
	}

	runID := opts.RunIDOverride
	if runID == "" {
		runID = st.RunID
	}
	if runID == "" {
		runID = uuid.NewString()
		st.RunID = runID
	}

	observers := append([]monitoring.Observer{}, opts.Observers...)
	var fileObs *monitoring.FileObserver
	if opts.LogPath != "" {
		fileObs = monitoring.NewFileObserver(opts.LogPath)
		observers = append(observers, fileObs)
	}
	obs := monitoring.NewManager(observers...)

	rc := &runCtx{
		runID:          runID,
		plan:           plan,
		breakers:       NewCircuitBreakers(reg, breakerCfg),
		obs:            obs,
		defaultRetry:   opts.DefaultRetryConfig,
		maxConcurrency: opts.maxConcurrency(),
	}

	runCtxGo, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.Timeout > 0 {
		var timeoutCancel context.CancelFunc
		runCtxGo, timeoutCancel = context.WithTimeout(runCtxGo, opts.Timeout)
		defer timeoutCancel()
	}

	st.SetStatus(domain.StatusRunning)

	runErr := runWaves(runCtxGo, rc, plan, st, opts)

	if runErr == nil {
		st.SetStatus(domain.StatusCompleted)
		persist(rc, st, opts.PersistencePath, -1)
	} else {
		st.SetStatus(domain.StatusFailed)
		persist(rc, st, opts.PersistencePath, -1)
		if opts.ErrorHandler != nil {
			if handlerErr := safeCall(opts.ErrorHandler, runErr); handlerErr != nil {
				log.Error().Err(handlerErr).Msg("errorHandler panicked or misbehaved; original failure still propagates")
			}
		}
	}

	if fileObs != nil {
		if cerr := fileObs.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("logPath", opts.LogPath).Msg("failed to close execution log")
		}
	}

	return runErr
}

// safeCall invokes h, converting a panic into an error so it can be logged
// without masking runErr (a best-effort observer callback must never
// itself crash the run).
func safeCall(h func(error), err error) (rerr error) {
	defer func() {
		if r := recover(); r != nil {
			rerr = fmt.Errorf("errorHandler panic: %v", r)
		}
	}()
	h(err)
	return nil
}

func runWaves(ctx context.Context, rc *runCtx, plan *domain.ExecutionPlan, st *state.Container, opts Options) error {
	for _, wave := range plan.Waves {
		select {
		case <-ctx.Done():
			return timeoutErr(ctx)
		default:
		}

		st.SetCurrentWave(wave.WaveNumber)

		if err := executeWave(ctx, rc, st, wave); err != nil {
			return err
		}

		if opts.PersistencePath != "" {
			persist(rc, st, opts.PersistencePath, wave.WaveNumber)
		}
	}
	return nil
}

func persist(rc *runCtx, st *state.Container, path string, waveNumber int) {
	if path == "" {
		return
	}
	data, err := st.Serialize()
	if err != nil {
		rc.obs.Checkpoint(rc.runID, path, waveNumber, err)
		return
	}
	err = writeFileAtomic(path, data)
	rc.obs.Checkpoint(rc.runID, path, waveNumber, err)
}

func timeoutErr(ctx context.Context) error {
	return domainerrors.NewTimeout(fmt.Sprintf("execution cancelled: %v", ctx.Err()))
}
