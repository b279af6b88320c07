// Package wfcore is the public entry point for the workflow execution
// core: it re-exports the AST/state data types and drives a parsed
// WorkflowAST through planning and execution, the way mbflow's root
// package wraps its internal/application/executor behind a small facade.
package wfcore

import (
	"context"

	"github.com/wfcore/wfcore/internal/domain"
	"github.com/wfcore/wfcore/internal/executor"
	"github.com/wfcore/wfcore/internal/plan"
	"github.com/wfcore/wfcore/internal/state"
)

// Run plans ast and drives it to completion (or failure) under opts,
// returning the final state container. A fresh RunID is generated unless
// opts.RunIDOverride is set.
func Run(ctx context.Context, ast *domain.WorkflowAST, config map[string]any, secrets map[string]string, opts Options) (*state.Container, error) {
	p, err := plan.BuildPlan(ast.Metadata.Name, ast.Nodes)
	if err != nil {
		return nil, err
	}

	st := state.New(ast.Metadata.Name, opts.RunIDOverride)
	st.Config = config
	if st.Config == nil {
		st.Config = map[string]any{}
	}
	st.Secrets = secrets
	if st.Secrets == nil {
		st.Secrets = map[string]string{}
	}

	err = executor.Execute(ctx, p, st, opts.toInternal())
	return st, err
}

// Resume loads a checkpoint at path, trims the re-planned DAG to its
// unfinished tail, and drives it to completion under opts.
func Resume(ctx context.Context, ast *domain.WorkflowAST, path string, configOverrides map[string]any, secretOverrides map[string]string, opts Options) (*state.Container, error) {
	p, err := plan.BuildPlan(ast.Metadata.Name, ast.Nodes)
	if err != nil {
		return nil, err
	}
	return executor.Resume(ctx, p, path, configOverrides, secretOverrides, opts.toInternal())
}

// CanResume reports whether path names a checkpoint eligible for Resume:
// it exists and its persisted status is failed or cancelled.
func CanResume(path string) bool {
	return executor.CanResume(path)
}

// BuildPlan exposes the dependency analyzer and wave planner directly, for
// callers that want to inspect a workflow's execution plan (e.g. for
// visualization or dry-run validation) without running it.
func BuildPlan(workflowID string, nodes []*Node) (*ExecutionPlan, error) {
	return plan.BuildPlan(workflowID, nodes)
}
