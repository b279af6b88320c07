package executor

import (
	"github.com/wfcore/wfcore/internal/domain"
	"github.com/wfcore/wfcore/internal/monitoring"
	"github.com/wfcore/wfcore/internal/retry"
	"github.com/wfcore/wfcore/internal/runtime"
)

// newTestRunCtx builds a runCtx wired to reg, sufficient for exercising
// the control-flow handlers (runChain/runParallel/runForeach/runLoop/
// runTimeout) without going through Execute's wave loop.
func newTestRunCtx(reg *runtime.Registry, nodes map[string]*domain.Node) *runCtx {
	return &runCtx{
		runID:          "test-run",
		plan:           &domain.ExecutionPlan{WorkflowID: "wf", Nodes: nodes},
		breakers:       NewCircuitBreakers(reg, DefaultBreakerConfig()),
		obs:            monitoring.NewManager(),
		defaultRetry:   retry.Config{},
		maxConcurrency: 4,
	}
}

func nodeMap(nodes ...*domain.Node) map[string]*domain.Node {
	m := make(map[string]*domain.Node, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	return m
}
