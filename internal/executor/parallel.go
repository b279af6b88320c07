package executor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/wfcore/wfcore/internal/concurrency"
	"github.com/wfcore/wfcore/internal/domain"
	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
	"github.com/wfcore/wfcore/internal/expr"
	"github.com/wfcore/wfcore/internal/state"
)

// waitStrategy is the parsed form of a parallel node's `wait` field:
// "all" (default), "any" (first success wins), or "n(K)" (the Kth
// success wins).
type waitStrategy struct {
	threshold int // branches whose success satisfies the wait; "all" is the branch count
}

func parseWait(s string, branchCount int) waitStrategy {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == "all":
		return waitStrategy{threshold: branchCount}
	case s == "any":
		return waitStrategy{threshold: 1}
	case strings.HasPrefix(s, "n(") && strings.HasSuffix(s, ")"):
		inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "n("), ")"))
		if k, err := strconv.Atoi(inner); err == nil && k > 0 {
			return waitStrategy{threshold: k}
		}
		return waitStrategy{threshold: branchCount}
	default:
		return waitStrategy{threshold: branchCount}
	}
}

type branchOutcome struct {
	output any
	err    error
}

// runParallel executes each branch of a control:parallel node concurrently
// under a semaphore, each branch against its own state.Branch() to keep
// writes isolated, merging successful branches' results back into parent
// once they complete. It returns once the wait threshold is satisfied (or
// becomes unreachable), without blocking on branches still running — those
// continue to completion in the background and still merge their results,
// but no longer influence this node's output.
func runParallel(ctx context.Context, rc *runCtx, parent *state.Container, node *domain.Node, d ParallelDescriptor) (any, error) {
	n := len(d.Branches)
	if n == 0 {
		return []any{}, nil
	}

	limit := d.MaxConcurrency
	if limit <= 0 {
		limit = rc.maxConcurrency
	}
	sem := concurrency.New(limit)
	ws := parseWait(d.Wait, n)
	if ws.threshold > n {
		return nil, domainerrors.NewValidation(fmt.Sprintf("parallel %s: wait target %d exceeds %d branches", node.ID, ws.threshold, n))
	}

	results := make([]branchOutcome, n)
	done := make(chan int, n)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, ids := range d.Branches {
		wg.Add(1)
		go func(idx int, nodeIDs []string) {
			defer wg.Done()
			if err := sem.Acquire(ctx); err != nil {
				mu.Lock()
				results[idx] = branchOutcome{err: err}
				mu.Unlock()
				done <- idx
				return
			}
			defer sem.Release()

			branchState := parent.Branch()
			branchState.SetNode("$branch", idx)

			out, err := runChain(ctx, rc, branchState, nodeIDs)
			if err == nil {
				parent.MergeResultsFrom(branchState)
			}
			mu.Lock()
			results[idx] = branchOutcome{output: out, err: err}
			mu.Unlock()
			done <- idx
		}(i, ids)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	var order []int
	successes, failures := 0, 0
	for idx := range done {
		order = append(order, idx)
		if results[idx].err == nil {
			successes++
		} else {
			failures++
		}
		if successes >= ws.threshold {
			break
		}
		if failures > n-ws.threshold {
			break
		}
	}

	if successes < ws.threshold {
		return nil, domainerrors.NewRuntime(fmt.Sprintf("parallel %s: only %d/%d branches succeeded, needed %d", node.ID, successes, n, ws.threshold), nil)
	}

	var ordered []any
	if ws.threshold == n {
		ordered = make([]any, 0, n)
		for i := 0; i < n; i++ {
			// With threshold==n, reaching this point means every branch
			// has already reported success on done.
			mu.Lock()
			out := results[i]
			mu.Unlock()
			if out.err != nil {
				return nil, out.err
			}
			ordered = append(ordered, out.output)
		}
	} else {
		ordered = make([]any, 0, ws.threshold)
		for _, idx := range order {
			mu.Lock()
			out := results[idx]
			mu.Unlock()
			if out.err == nil {
				ordered = append(ordered, out.output)
			}
		}
	}

	merged, err := mergeBranchResults(d.Merge, ordered, parent)
	if err != nil {
		return ordered, nil
	}
	return merged, nil
}

// mergeBranchResults implements its merge strategies: "array"
// (default, ordered list of branch outputs), "concat" (flatten one level),
// "object" (shallow-merge map outputs), or a free expression evaluated
// with $branches bound to the ordered outputs.
func mergeBranchResults(merge string, ordered []any, parent *state.Container) (any, error) {
	switch strings.TrimSpace(merge) {
	case "", "array":
		return ordered, nil
	case "concat":
		out := make([]any, 0, len(ordered))
		for _, v := range ordered {
			if arr, ok := v.([]any); ok {
				out = append(out, arr...)
			} else {
				out = append(out, v)
			}
		}
		return out, nil
	case "object":
		out := map[string]any{}
		for _, v := range ordered {
			if m, ok := v.(map[string]any); ok {
				for k, vv := range m {
					out[k] = vv
				}
			}
		}
		return out, nil
	default:
		ec := buildExprContext(parent, nil, false)
		ec.Variables["$branches"] = ordered
		val, err := expr.Evaluate(merge, ec)
		if err != nil {
			return ordered, nil
		}
		return val, nil
	}
}
