package domain

import "time"

// Status is the execution-wide status enum.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// NodeResultStatus is the per-node result status enum.
type NodeResultStatus string

const (
	NodeSuccess NodeResultStatus = "success"
	NodeFailed  NodeResultStatus = "failed"
	NodeSkipped NodeResultStatus = "skipped"
)

// NodeResult records the outcome of one node's execution.
type NodeResult struct {
	Status      NodeResultStatus
	Output      any
	Error       string
	Duration    time.Duration
	StartedAt   time.Time
	CompletedAt time.Time
}

// ExecutionPlan is the scheduler's output: the workflow's node table
// partitioned into topologically ordered waves.
type ExecutionPlan struct {
	WorkflowID string
	TotalNodes int
	Waves      []Wave
	Nodes      map[string]*Node
}

// Wave is a maximal set of nodes with no mutual dependency, executable
// concurrently after all earlier waves complete.
type Wave struct {
	WaveNumber int
	NodeIDs    []string
}
