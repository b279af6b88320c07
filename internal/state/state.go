// Package state implements the mutable execution state container and its
// checkpoint persistence codec, grounded in mbflow's ExecutionState
// (internal/application/executor/state.go) generalized
// from a single flat Variables map to this package's three-tier layered
// context tables plus config/secrets.
package state

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wfcore/wfcore/internal/domain"
)

// Container is the execution state threaded through a run. All mutating
// methods are safe for concurrent use; Branch returns an isolated copy
// for control-flow handlers that fan out (parallel branches, foreach
// iterations) "copy-on-branch" discipline.
type Container struct {
	mu sync.RWMutex

	WorkflowID  string
	RunID       string
	Status      domain.Status
	CurrentWave int
	StartedAt   time.Time
	CompletedAt *time.Time

	NodeResults map[string]domain.NodeResult

	GlobalContext map[string]any
	PhaseContext  map[string]any
	NodeContext   map[string]any

	Config  map[string]any
	Secrets map[string]string
}

// New creates a pending Container for a fresh run.
func New(workflowID, runID string) *Container {
	return &Container{
		WorkflowID:    workflowID,
		RunID:         runID,
		Status:        domain.StatusPending,
		NodeResults:   map[string]domain.NodeResult{},
		GlobalContext: map[string]any{},
		PhaseContext:  map[string]any{},
		NodeContext:   map[string]any{},
		Config:        map[string]any{},
		Secrets:       map[string]string{},
	}
}

func (c *Container) SetStatus(s domain.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Status = s
	if s == domain.StatusCompleted || s == domain.StatusFailed || s == domain.StatusCancelled {
		now := time.Now()
		c.CompletedAt = &now
	}
}

func (c *Container) GetStatus() domain.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Status
}

func (c *Container) SetCurrentWave(w int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w > c.CurrentWave {
		c.CurrentWave = w
	}
}

func (c *Container) GetCurrentWave() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.CurrentWave
}

// RecordResult publishes a node's result atomically. Per , writes
// to NodeResults from concurrent tasks are safe in practice because each
// node ID is written by exactly one task; the lock here is the
// Go-idiomatic belt for this package's "must protect this map" clause.
func (c *Container) RecordResult(nodeID string, result domain.NodeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.NodeResults[nodeID] = result
	if result.Status == domain.NodeSuccess {
		c.NodeContext[nodeID] = map[string]any{"output": result.Output}
	}
}

// Result returns a node's recorded result and whether one exists.
func (c *Container) Result(nodeID string) (domain.NodeResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.NodeResults[nodeID]
	return r, ok
}

// AllResults returns a shallow copy of the node-results map.
func (c *Container) AllResults() map[string]domain.NodeResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]domain.NodeResult, len(c.NodeResults))
	for k, v := range c.NodeResults {
		out[k] = v
	}
	return out
}

// SetGlobal, SetPhase, SetNode write into the respective context layer.
func (c *Container) SetGlobal(key string, v any) { c.setLayer(c.lockedGlobal, key, v) }
func (c *Container) SetPhase(key string, v any)  { c.setLayer(c.lockedPhase, key, v) }
func (c *Container) SetNode(key string, v any)   { c.setLayer(c.lockedNode, key, v) }

func (c *Container) lockedGlobal() map[string]any { return c.GlobalContext }
func (c *Container) lockedPhase() map[string]any  { return c.PhaseContext }
func (c *Container) lockedNode() map[string]any   { return c.NodeContext }

func (c *Container) setLayer(layer func() map[string]any, key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	layer()[key] = v
}

// Layers returns copies of the three context tables for building an
// expr.Context (evalctx.Builder.Build takes ownership of these copies —
// this is the "copy-on-branch" boundary).
func (c *Container) Layers() (global, phase, node map[string]any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyMap(c.GlobalContext), copyMap(c.PhaseContext), copyMap(c.NodeContext)
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Branch returns an isolated deep-enough copy for a sub-execution
// (parallel branch, foreach iteration). NodeResults is
// shared by reference with the parent's map is NOT done here — branches
// get their own map and the caller is responsible for merging results
// back per the explicit result-merge protocol.
func (c *Container) Branch() *Container {
	c.mu.RLock()
	defer c.mu.RUnlock()

	nb := &Container{
		WorkflowID:    c.WorkflowID,
		RunID:         c.RunID,
		Status:        c.Status,
		CurrentWave:   c.CurrentWave,
		StartedAt:     c.StartedAt,
		NodeResults:   make(map[string]domain.NodeResult, len(c.NodeResults)),
		GlobalContext: copyMap(c.GlobalContext),
		PhaseContext:  copyMap(c.PhaseContext),
		NodeContext:   copyMap(c.NodeContext),
		Config:        copyMap(c.Config),
		Secrets:       make(map[string]string, len(c.Secrets)),
	}
	for k, v := range c.NodeResults {
		nb.NodeResults[k] = v
	}
	for k, v := range c.Secrets {
		nb.Secrets[k] = v
	}
	return nb
}

// MergeResultsFrom copies a branch's node results back into the parent —
// the explicit merge step isolation requires, since Branch gives each
// sub-execution its own map rather than sharing the parent's.
func (c *Container) MergeResultsFrom(branch *Container) {
	branch.mu.RLock()
	results := make(map[string]domain.NodeResult, len(branch.NodeResults))
	for k, v := range branch.NodeResults {
		results[k] = v
	}
	branch.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range results {
		c.NodeResults[k] = v
	}
}

// persistedDoc is the wire shape for checkpoint files:
// NodeResults serializes as an ordered array of [id, result] pairs, and
// Secrets is never included.
type persistedDoc struct {
	WorkflowID    string                `json:"workflowId"`
	RunID         string                `json:"runId"`
	Status        domain.Status         `json:"status"`
	CurrentWave   int                   `json:"currentWave"`
	StartedAt     time.Time             `json:"startedAt"`
	CompletedAt   *time.Time            `json:"completedAt,omitempty"`
	NodeResults   []nodeResultPair      `json:"nodeResults"`
	GlobalContext map[string]any        `json:"globalContext"`
	PhaseContext  map[string]any        `json:"phaseContext"`
	NodeContext   map[string]any        `json:"nodeContext"`
	Config        map[string]any        `json:"config"`
}

type nodeResultPair struct {
	ID     string            `json:"id"`
	Result domain.NodeResult `json:"result"`
}

// Serialize encodes the container to its persisted JSON form, omitting
// Secrets entirely (secrets are never persisted).
func (c *Container) Serialize() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pairs := make([]nodeResultPair, 0, len(c.NodeResults))
	for id, r := range c.NodeResults {
		pairs = append(pairs, nodeResultPair{ID: id, Result: r})
	}

	doc := persistedDoc{
		WorkflowID:    c.WorkflowID,
		RunID:         c.RunID,
		Status:        c.Status,
		CurrentWave:   c.CurrentWave,
		StartedAt:     c.StartedAt,
		CompletedAt:   c.CompletedAt,
		NodeResults:   pairs,
		GlobalContext: c.GlobalContext,
		PhaseContext:  c.PhaseContext,
		NodeContext:   c.NodeContext,
		Config:        c.Config,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Deserialize reconstructs a Container from persisted bytes. Config and
// Secrets may be overridden by the caller after loading; this function
// leaves Secrets empty — the loader's job is to then apply
// overrides and "strip any ambient secrets from the document" (there
// are none, by construction of Serialize).
func Deserialize(data []byte) (*Container, error) {
	var doc persistedDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("state: deserialize: %w", err)
	}

	c := &Container{
		WorkflowID:    doc.WorkflowID,
		RunID:         doc.RunID,
		Status:        doc.Status,
		CurrentWave:   doc.CurrentWave,
		StartedAt:     doc.StartedAt,
		CompletedAt:   doc.CompletedAt,
		NodeResults:   make(map[string]domain.NodeResult, len(doc.NodeResults)),
		GlobalContext: doc.GlobalContext,
		PhaseContext:  doc.PhaseContext,
		NodeContext:   doc.NodeContext,
		Config:        doc.Config,
		Secrets:       map[string]string{},
	}
	if c.GlobalContext == nil {
		c.GlobalContext = map[string]any{}
	}
	if c.PhaseContext == nil {
		c.PhaseContext = map[string]any{}
	}
	if c.NodeContext == nil {
		c.NodeContext = map[string]any{}
	}
	if c.Config == nil {
		c.Config = map[string]any{}
	}
	for _, p := range doc.NodeResults {
		c.NodeResults[p.ID] = p.Result
	}
	return c, nil
}

// ApplyOverrides merges caller-supplied config/secret overrides into a
// loaded container "config and secrets may be overridden at
// load time".
func (c *Container) ApplyOverrides(config map[string]any, secrets map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range config {
		c.Config[k] = v
	}
	for k, v := range secrets {
		c.Secrets[k] = v
	}
}
