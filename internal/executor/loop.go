package executor

import (
	"context"

	"github.com/wfcore/wfcore/internal/domain"
	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
	"github.com/wfcore/wfcore/internal/expr"
	"github.com/wfcore/wfcore/internal/state"
)

// runLoop executes a control:loop node's body sequentially against parent
// (no branch isolation — a loop is a single thread of control), up to
// MaxIterations times. Before each iteration, Condition (if
// set) is evaluated as a continue-while guard; after each iteration,
// BreakCondition (if set) is evaluated and, if truthy, stops the loop. A
// BreakCondition that fails to evaluate is treated as "keep looping", not
// as a fatal error. A body break signal also stops the loop: if it names a
// TargetLoopID other than this node, it is re-raised so an enclosing
// loop/foreach can consume it instead.
func runLoop(ctx context.Context, rc *runCtx, parent *state.Container, node *domain.Node, d LoopDescriptor) (any, error) {
	var last any

	maxIter := d.MaxIterations
	if maxIter <= 0 {
		maxIter = 1
	}

	for i := 0; i < maxIter; i++ {
		parent.SetNode("$iteration", i)

		if d.Condition != "" {
			ec := buildExprContext(parent, nil, false)
			keepGoing, err := expr.Evaluate(d.Condition, ec)
			if err != nil {
				return last, domainerrors.NewExpression(err.Error(), d.Condition, err).WithNode(node.ID)
			}
			if !truthyValue(keepGoing) {
				break
			}
		}

		out, err := runChain(ctx, rc, parent, d.BodyNodeIDs)
		if err != nil {
			if brk, ok := asBreakSignal(err); ok {
				last = out
				if brk.TargetLoopID != "" && brk.TargetLoopID != node.ID {
					return last, err
				}
				break
			}
			return last, err
		}
		last = out

		if d.BreakCondition != "" {
			ec := buildExprContext(parent, nil, false)
			stop, err := expr.Evaluate(d.BreakCondition, ec)
			// An unevaluatable break condition doesn't stop the loop — it
			// can't tell us to break, so we keep iterating rather than
			// treating a bad expression as a fatal error.
			if err == nil && truthyValue(stop) {
				break
			}
		}
	}

	return last, nil
}
