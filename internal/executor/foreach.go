package executor

import (
	"context"
	"errors"
	"sync"

	"github.com/wfcore/wfcore/internal/concurrency"
	"github.com/wfcore/wfcore/internal/domain"
	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
	"github.com/wfcore/wfcore/internal/state"
)

// runForeach executes a control:foreach node's body once per collection
// item. Sequential (MaxConcurrency<=1, the default): a
// break signal from any iteration stops the loop and iterations after the
// break never run. Concurrent (MaxConcurrency>1): all iterations start,
// each under its own state.Branch(); a break signal only aborts the
// iteration that raised it, others still run to completion, and any
// non-break error is re-raised after every iteration has finished.
func runForeach(ctx context.Context, rc *runCtx, parent *state.Container, node *domain.Node, d ForeachDescriptor) (any, error) {
	n := len(d.Collection)
	outputs := make([]any, n)
	if n == 0 {
		return outputs, nil
	}

	if d.MaxConcurrency <= 1 {
		for i, item := range d.Collection {
			out, err := runForeachIteration(ctx, rc, parent, d, i, item)
			if err != nil {
				if brk, ok := asBreakSignal(err); ok {
					outputs[i] = out
					if brk.TargetLoopID != "" && brk.TargetLoopID != node.ID {
						return outputs, err
					}
					break
				}
				return outputs, err
			}
			outputs[i] = out
		}
		return outputs, nil
	}

	sem := concurrency.New(d.MaxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, item := range d.Collection {
		wg.Add(1)
		go func(idx int, it any) {
			defer wg.Done()
			if err := sem.Acquire(ctx); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			defer sem.Release()

			out, err := runForeachIteration(ctx, rc, parent, d, idx, it)
			mu.Lock()
			outputs[idx] = out
			mu.Unlock()
			if err != nil {
				if brk, ok := asBreakSignal(err); ok && (brk.TargetLoopID == "" || brk.TargetLoopID == node.ID) {
					return
				}
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
		}(i, item)
	}
	wg.Wait()

	if firstErr != nil {
		return outputs, firstErr
	}
	return outputs, nil
}

func runForeachIteration(ctx context.Context, rc *runCtx, parent *state.Container, d ForeachDescriptor, idx int, item any) (any, error) {
	branchState := parent.Branch()
	branchState.SetNode(d.ItemVar, item)
	branchState.SetNode(d.IndexVar, idx)

	out, err := runChain(ctx, rc, branchState, d.BodyNodeIDs)
	if err == nil || isBreakSignal(err) {
		parent.MergeResultsFrom(branchState)
	}
	return out, err
}

func isBreakSignal(err error) bool {
	_, ok := asBreakSignal(err)
	return ok
}

func asBreakSignal(err error) (*domainerrors.BreakSignal, bool) {
	var brk *domainerrors.BreakSignal
	if errors.As(err, &brk) {
		return brk, true
	}
	return nil, false
}
