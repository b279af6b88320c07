// Package domain defines the workflow AST and execution-state data model
// that the core consumes, grounded on mbflow's internal/domain package
// (Node, Workflow, ExecutionState) and generalized to the node taxonomy in
// the workflow definition (data-flow, control, temporal, checkpoint).
package domain

// NodeKind distinguishes the tagged-union variants a Node may take.
type NodeKind string

const (
	KindSource      NodeKind = "source"
	KindTransform   NodeKind = "transform"
	KindSink        NodeKind = "sink"
	KindBranch      NodeKind = "branch" // if/switch-style control
	KindLoop        NodeKind = "loop"
	KindForeach     NodeKind = "foreach"
	KindParallel    NodeKind = "parallel"
	KindTimeout     NodeKind = "timeout"
	KindCheckpoint  NodeKind = "checkpoint"
	KindComposition NodeKind = "composition"
)

// SourceLoc pinpoints a node's position in the originating document, used
// only for diagnostics.
type SourceLoc struct {
	Line   int
	Column int
}

// ErrorConfig is the per-node retry/fallback configuration.
type ErrorConfig struct {
	MaxRetries     int
	BackoffBase    int64 // milliseconds
	BackoffKind    BackoffKind
	FallbackNodeID string
}

// BackoffKind enumerates the supported backoff shapes.
type BackoffKind string

const (
	BackoffFixed       BackoffKind = "fixed"
	BackoffLinear      BackoffKind = "linear"
	BackoffExponential BackoffKind = "exponential"
)

// Case is a single branch of a control:branch node.
type Case struct {
	Condition string
	NodeIDs   []string
}

// Node is the tagged union every workflow AST node satisfies. Every node
// has ID/Type/Loc/Input/ErrorConfig; data-flow nodes additionally carry
// Config; control nodes carry the structured sub-fields below. Rather than
// a Go union (the language has none), unused fields for a given Kind are
// simply left zero — NodeAST is assembled by the (out-of-core) parser,
// which the core trusts per the validated-AST invariant.
type Node struct {
	ID          string
	Kind        NodeKind
	Type        string // concrete runtime key suffix, e.g. "http", "template"
	Loc         SourceLoc
	Input       string // referenced predecessor node ID, if any
	ErrorConfig *ErrorConfig

	// Data-flow nodes (source/transform/sink).
	Config map[string]any

	// control:branch
	Cases []Case
	Else  []string

	// control:loop / control:while
	Body           []string
	Condition      string
	MaxIterations  int
	BreakCondition string

	// control:foreach
	Collection string
	ItemVar    string
	IndexVar   string

	// control:parallel
	Branches [][]string
	Wait     string
	Merge    string

	// temporal:timeout
	DurationMs int64
	Children   []string
	OnTimeout  string

	// checkpoint
	DefaultAction string
}

// Metadata captures workflow-level frontmatter: name, version, declared
// config fields, and declared secret names.
type Metadata struct {
	Name         string
	Version      string
	Description  string
	ConfigFields []string
	SecretNames  []string
}

// SourceMap maps node IDs back to their location for diagnostics.
type SourceMap map[string]SourceLoc

// WorkflowAST is the validated input contract the core assumes: metadata
// plus an ordered list of top-level nodes and a source map.
type WorkflowAST struct {
	Metadata  Metadata
	Nodes     []*Node
	SourceMap SourceMap
}

// NodeByID returns the node with the given ID, or nil if absent. The core
// may assume node IDs are unique (an external-validator invariant) so the
// first match is authoritative.
func (w *WorkflowAST) NodeByID(id string) *Node {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
