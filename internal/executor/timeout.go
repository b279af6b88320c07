package executor

import (
	"context"
	"time"

	"github.com/wfcore/wfcore/internal/domain"
	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
	"github.com/wfcore/wfcore/internal/state"
)

// runTimeout executes a control:timeout node's children sequentially under
// a local deadline derived from ctx. If the children
// complete first, their last output is returned unchanged. If the deadline
// trips first and OnTimeout names a node in the plan, that node runs under
// the parent's (non-expired) context as a fallback and its output is
// returned; otherwise a timeout error is raised. Errors unrelated to
// expiry propagate unchanged.
func runTimeout(ctx context.Context, rc *runCtx, parent *state.Container, node *domain.Node, d TimeoutDescriptor) (any, error) {
	childCtx, cancel := context.WithTimeout(ctx, time.Duration(d.DurationMs)*time.Millisecond)
	defer cancel()

	type outcome struct {
		out any
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := runChain(childCtx, rc, parent, d.ChildNodeIDs)
		done <- outcome{out, err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-childCtx.Done():
		if d.OnTimeout == "" {
			return nil, domainerrors.NewTimeout("node " + node.ID + ": timed out after " + time.Duration(d.DurationMs*int64(time.Millisecond)).String()).WithNode(node.ID)
		}
		fb := rc.plan.Nodes[d.OnTimeout]
		if fb == nil {
			return nil, domainerrors.NewValidation("timeout " + node.ID + ": onTimeout node " + d.OnTimeout + " not found in plan")
		}
		result, err := runChild(ctx, rc, parent, fb)
		parent.RecordResult(fb.ID, result)
		if err != nil {
			return nil, err
		}
		return result.Output, nil
	}
}
