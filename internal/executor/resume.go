package executor

import (
	"context"
	"fmt"
	"os"

	"github.com/wfcore/wfcore/internal/domain"
	"github.com/wfcore/wfcore/internal/state"
)

// CanResume reports whether path names a persisted checkpoint whose status
// allows a resume: it exists and its recorded status is failed or
// cancelled.
func CanResume(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	st, err := state.Deserialize(data)
	if err != nil {
		return false
	}
	return st.Status == domain.StatusFailed || st.Status == domain.StatusCancelled
}

// Resume loads a checkpoint from path, trims plan to the unfinished tail of
// waves, and drives it through the normal Execute loop. Config/secret
// overrides are applied before execution resumes.
func Resume(ctx context.Context, plan *domain.ExecutionPlan, path string, configOverrides map[string]any, secretOverrides map[string]string, opts Options) (*state.Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("executor: resume: read checkpoint: %w", err)
	}
	st, err := state.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("executor: resume: %w", err)
	}
	st.ApplyOverrides(configOverrides, secretOverrides)
	st.SetStatus(domain.StatusRunning)

	trimmed := trimPlanForResume(plan, st)

	opts.PersistencePath = path
	if err := Execute(ctx, trimmed, st, opts); err != nil {
		return st, err
	}
	return st, nil
}

// trimPlanForResume keeps only waves at or past the checkpoint's current
// wave, and within the first retained wave drops node IDs whose result is
// already a success (dropping the wave entirely if that empties it).
func trimPlanForResume(plan *domain.ExecutionPlan, st *state.Container) *domain.ExecutionPlan {
	var waves []domain.Wave
	for _, w := range plan.Waves {
		if w.WaveNumber >= st.CurrentWave {
			waves = append(waves, w)
		}
	}
	if len(waves) > 0 {
		first := waves[0]
		remaining := make([]string, 0, len(first.NodeIDs))
		for _, id := range first.NodeIDs {
			if r, ok := st.Result(id); ok && r.Status == domain.NodeSuccess {
				continue
			}
			remaining = append(remaining, id)
		}
		if len(remaining) == 0 {
			waves = waves[1:]
		} else {
			first.NodeIDs = remaining
			waves[0] = first
		}
	}

	return &domain.ExecutionPlan{
		WorkflowID: plan.WorkflowID,
		TotalNodes: plan.TotalNodes,
		Waves:      waves,
		Nodes:      plan.Nodes,
	}
}
