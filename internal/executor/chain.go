package executor

import (
	"context"
	"fmt"

	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
	"github.com/wfcore/wfcore/internal/state"
)

// runChain runs a sequence of node IDs against st in order, recording each
// result into st as it completes and stopping at the first error. It is the
// shared primitive behind parallel branches, foreach iterations, and loop
// bodies — all three are "run these nodes in order against an isolated
// state" with different surrounding fan-out/repeat logic.
func runChain(ctx context.Context, rc *runCtx, st *state.Container, nodeIDs []string) (any, error) {
	var last any
	for _, id := range nodeIDs {
		node := rc.plan.Nodes[id]
		if node == nil {
			return last, domainerrors.NewValidation(fmt.Sprintf("node %q referenced by control flow not found in plan", id))
		}

		result, err := runChild(ctx, rc, st, node)
		st.RecordResult(id, result)
		if err != nil {
			return last, err
		}
		last = result.Output
	}
	return last, nil
}
