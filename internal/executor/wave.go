package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/wfcore/wfcore/internal/concurrency"
	"github.com/wfcore/wfcore/internal/domain"
	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
	"github.com/wfcore/wfcore/internal/state"
)

// aggregateError joins multiple node failures raised within one wave.
type aggregateError struct {
	errs []error
}

func (a *aggregateError) Error() string {
	msgs := make([]string, len(a.errs))
	for i, e := range a.errs {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d node(s) failed: %v", len(a.errs), msgs)
}

func (a *aggregateError) Unwrap() []error { return a.errs }

// executeWave starts every node in the wave concurrently under a semaphore,
// waits for all of them, records each result into parent, and applies
// fail-fast-at-the-wave-boundary semantics: all started tasks always
// finish before any error is raised.
func executeWave(ctx context.Context, rc *runCtx, parent *state.Container, wave domain.Wave) error {
	rc.obs.WaveStarted(rc.runID, wave.WaveNumber, wave.NodeIDs)

	sem := concurrency.New(rc.maxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, id := range wave.NodeIDs {
		node := rc.plan.Nodes[id]
		if node == nil {
			mu.Lock()
			errs = append(errs, domainerrors.NewValidation(fmt.Sprintf("wave %d: unknown node %q", wave.WaveNumber, id)))
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(n *domain.Node) {
			defer wg.Done()

			if err := sem.Acquire(ctx); err != nil {
				mu.Lock()
				errs = append(errs, domainerrors.NewTimeout(fmt.Sprintf("node %s: %v", n.ID, err)).WithNode(n.ID))
				mu.Unlock()
				return
			}
			defer sem.Release()

			result := executeNode(ctx, rc, parent, n)
			parent.RecordResult(n.ID, result)
			if result.Status == domain.NodeFailed {
				mu.Lock()
				errs = append(errs, domainerrors.NewRuntime(result.Error, nil).WithNode(n.ID))
				mu.Unlock()
			}
		}(node)
	}

	wg.Wait()

	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return &aggregateError{errs: errs}
}
