package builtin

import (
	"context"
	"strconv"
	"time"

	"github.com/wfcore/wfcore/internal/runtime"
)

// Responder collects a human decision for a checkpoint node. Interactive
// implementations prompt a terminal or wait on an external signal;
// non-interactive ones (the default) never get called at all — the
// checkpoint short-circuits to defaultAction first.
type Responder interface {
	Respond(ctx context.Context, nodeID string, config map[string]any) (action string, input any, err error)
}

// CheckpointRuntime implements a human-in-the-loop checkpoint node: it pauses
// for a human decision, subject to a pre-flight `condition` skip and (when
// Responder is nil, the non-interactive case) immediate return of
// `defaultAction`. The core treats the result opaquely — routing on `goto` is
// the workflow author's concern, not this runtime's.
type CheckpointRuntime struct {
	Responder Responder
}

func NewCheckpointRuntime(responder Responder) *CheckpointRuntime {
	return &CheckpointRuntime{Responder: responder}
}

// Execute's `condition` field, if set, is expected to arrive already
// template-rendered to a "true"/"false" string by the executor's config
// resolution step. It is not a free-form boolean expression evaluated here —
// this runtime only ever sees resolved config, never the execution state or
// the expression evaluator, which keeps every runtime on the same plug-in
// boundary regardless of what the node's condition expression referenced.
func (r *CheckpointRuntime) Execute(ctx context.Context, req runtime.Request) (any, error) {
	if cond, ok := req.Config["condition"].(string); ok && cond != "" {
		if keepGoing, err := strconv.ParseBool(cond); err == nil && !keepGoing {
			return map[string]any{"action": "approve", "skipped": true}, nil
		}
	}

	defaultAction, _ := req.Config["defaultAction"].(string)

	if r.Responder == nil {
		if defaultAction == "" {
			defaultAction = "approve"
		}
		return map[string]any{
			"action":      defaultAction,
			"timedOut":    false,
			"respondedAt": time.Now().UTC(),
		}, nil
	}

	action, input, err := r.Responder.Respond(ctx, req.NodeID, req.Config)
	if err != nil {
		if defaultAction == "" {
			defaultAction = "approve"
		}
		return map[string]any{
			"action":      defaultAction,
			"timedOut":    true,
			"respondedAt": time.Now().UTC(),
		}, nil
	}

	return map[string]any{
		"action":      action,
		"input":       input,
		"timedOut":    false,
		"respondedAt": time.Now().UTC(),
	}, nil
}
