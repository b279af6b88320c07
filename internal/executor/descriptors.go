// Package executor drives the plan produced by internal/plan: the wave
// loop, per-node dispatch, control-flow interpretation, retry/fallback, and
// checkpoint persistence. Grounded in mbflow's internal/application/executor
// tree (executor.go, node_executors.go, planner.go) — the richer of the
// teacher's two coexisting executor revisions (see DESIGN.md).
package executor

// The four control-flow descriptor shapes a control-flow node's resolved
// config maps onto. Duck-typed in a markdown-authored workflow (no static
// types there); here they are the disciplined tagged-sum Go favors — a
// type switch in isControlDescriptor stands in for the field-presence check.

// ParallelDescriptor fans execution out across independent branches.
type ParallelDescriptor struct {
	Branches       [][]string
	MaxConcurrency int // 0 means "use the executor's configured default"
	Wait           string
	Merge          string
}

// ForeachDescriptor iterates a collection, running body nodes per item.
type ForeachDescriptor struct {
	Collection     []any
	ItemVar        string
	IndexVar       string
	MaxConcurrency int
	BodyNodeIDs    []string
}

// LoopDescriptor repeats body nodes up to MaxIterations times.
type LoopDescriptor struct {
	MaxIterations  int
	BodyNodeIDs    []string
	Condition      string // optional pre-iteration continue check
	BreakCondition string
}

// TimeoutDescriptor races child execution against a local deadline.
type TimeoutDescriptor struct {
	DurationMs   int64
	ChildNodeIDs []string
	OnTimeout    string
}

// isControlDescriptor reports whether output is one of the four descriptor
// shapes.
// Kept as a predicate (rather than an interface marker) because the
// descriptor types are plain structs constructed directly by node.go for
// the four core-native control kinds — there is no virtual dispatch to
// preserve.
func isControlDescriptor(output any) bool {
	switch output.(type) {
	case ParallelDescriptor, ForeachDescriptor, LoopDescriptor, TimeoutDescriptor:
		return true
	default:
		return false
	}
}
