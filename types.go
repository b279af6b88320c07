package wfcore

import (
	"github.com/wfcore/wfcore/internal/domain"
	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
	"github.com/wfcore/wfcore/internal/monitoring"
)

// Node is the tagged-union workflow AST node the core executes.
type Node = domain.Node

// NodeKind distinguishes a Node's tagged-union variant.
type NodeKind = domain.NodeKind

// Node kind constants, re-exported for callers assembling a WorkflowAST.
const (
	KindSource      = domain.KindSource
	KindTransform   = domain.KindTransform
	KindSink        = domain.KindSink
	KindBranch      = domain.KindBranch
	KindLoop        = domain.KindLoop
	KindForeach     = domain.KindForeach
	KindParallel    = domain.KindParallel
	KindTimeout     = domain.KindTimeout
	KindCheckpoint  = domain.KindCheckpoint
	KindComposition = domain.KindComposition
)

// BackoffKind enumerates the supported retry backoff shapes.
type BackoffKind = domain.BackoffKind

const (
	BackoffFixed       = domain.BackoffFixed
	BackoffLinear      = domain.BackoffLinear
	BackoffExponential = domain.BackoffExponential
)

// ErrorConfig is a node's retry/fallback policy.
type ErrorConfig = domain.ErrorConfig

// Case is one branch of a control:branch node.
type Case = domain.Case

// Metadata is a workflow's frontmatter (name, version, declared config
// fields and secret names).
type Metadata = domain.Metadata

// WorkflowAST is the validated input contract Run/Resume consume.
type WorkflowAST = domain.WorkflowAST

// SourceMap maps node IDs to their source location, for diagnostics.
type SourceMap = domain.SourceMap

// SourceLoc pinpoints a node's position in its originating document.
type SourceLoc = domain.SourceLoc

// Status is the execution-wide status enum.
type Status = domain.Status

const (
	StatusPending   = domain.StatusPending
	StatusRunning   = domain.StatusRunning
	StatusCompleted = domain.StatusCompleted
	StatusFailed    = domain.StatusFailed
	StatusCancelled = domain.StatusCancelled
)

// NodeResult records one node's execution outcome.
type NodeResult = domain.NodeResult

// NodeResultStatus enumerates a NodeResult's status.
type NodeResultStatus = domain.NodeResultStatus

const (
	NodeSuccess = domain.NodeSuccess
	NodeFailed  = domain.NodeFailed
	NodeSkipped = domain.NodeSkipped
)

// ExecutionPlan is the scheduler's output: nodes partitioned into waves.
type ExecutionPlan = domain.ExecutionPlan

// Wave is one set of nodes with no mutual dependency.
type Wave = domain.Wave

// Observer receives execution lifecycle events (wave/node start, complete,
// fail, retry, checkpoint) for logging, metrics, or UI streaming.
type Observer = monitoring.Observer

// ErrorKind classifies a *Error by its error-handling taxonomy.
type ErrorKind = domainerrors.Kind

const (
	ErrorKindExpression     = domainerrors.KindExpression
	ErrorKindUnknownRuntime = domainerrors.KindUnknownRuntime
	ErrorKindRuntime        = domainerrors.KindRuntime
	ErrorKindTimeout        = domainerrors.KindTimeout
	ErrorKindBreak          = domainerrors.KindBreak
	ErrorKindCycle          = domainerrors.KindCycle
	ErrorKindValidation     = domainerrors.KindValidation
)

// Error is the core's error type; use errors.As to recover one from an
// error returned by Run/Resume and inspect its Kind.
type Error = domainerrors.CoreError

// BreakSignal is the control-flow break value a loop/foreach body may
// raise; it is not a true failure (see Error's KindBreak).
type BreakSignal = domainerrors.BreakSignal
