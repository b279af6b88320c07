package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/wfcore/wfcore/internal/domain"
	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
	"github.com/wfcore/wfcore/internal/evalctx"
	"github.com/wfcore/wfcore/internal/expr"
	"github.com/wfcore/wfcore/internal/monitoring"
	"github.com/wfcore/wfcore/internal/retry"
	"github.com/wfcore/wfcore/internal/runtime"
	"github.com/wfcore/wfcore/internal/state"
)

// runCtx bundles the plan-wide collaborators executeNode and the
// control-flow handlers need, threaded explicitly rather than stashed on a
// receiver; handlers read it and never modify it (per-node overrides such as
// a parallel node's maxConcurrency are held in handler locals).
type runCtx struct {
	runID          string
	plan           *domain.ExecutionPlan
	breakers       *CircuitBreakers
	obs            *monitoring.Manager
	defaultRetry   retry.Config
	maxConcurrency int
}

// runtimeKey derives the registry key a node's kind/type resolves to.
func runtimeKey(n *domain.Node) string {
	switch n.Kind {
	case domain.KindSource:
		return n.Type + ":source"
	case domain.KindSink:
		return n.Type + ":sink"
	case domain.KindTransform:
		return "transform:" + n.Type
	case domain.KindBranch:
		return "control:" + orDefault(n.Type, "branch")
	case domain.KindLoop:
		return "control:" + orDefault(n.Type, "loop")
	case domain.KindForeach:
		return "control:foreach"
	case domain.KindParallel:
		return "control:parallel"
	case domain.KindTimeout:
		return "temporal:timeout"
	case domain.KindCheckpoint:
		return "checkpoint"
	case domain.KindComposition:
		return "composition:" + orDefault(n.Type, "include")
	default:
		return n.Type
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// isCoreNative reports whether a node kind's control-flow semantics are
// fully implemented by the executor itself rather than delegated to a
// registered runtime. Recorded in DESIGN.md: a deliberate scoping
// decision, since these four kinds are the only ones with a complete,
// core-owned execution algorithm (fan-out, iteration, repetition, and
// deadline racing all need direct access to the scheduler's internals).
func isCoreNative(k domain.NodeKind) bool {
	switch k {
	case domain.KindParallel, domain.KindForeach, domain.KindLoop, domain.KindTimeout:
		return true
	default:
		return false
	}
}

// buildExprContext assembles an expr.Context from parent state plus an
// optional `input` override layered into the node tier, inserted before
// config resolution so a node's own config can reference its input.
func buildExprContext(parent *state.Container, input any, hasInput bool) *expr.Context {
	global, phase, node := parent.Layers()
	if hasInput {
		node["input"] = input
	}

	results := map[string]evalctx.NodeOutput{}
	for id, r := range parent.AllResults() {
		if r.Status == domain.NodeSuccess {
			results[id] = evalctx.NodeOutput{Output: r.Output}
		}
	}

	b := &evalctx.Builder{
		Config:      copyAny(parent.Config),
		Secrets:     copyStr(parent.Secrets),
		NodeResults: results,
	}
	return b.Build(evalctx.Layers{Global: global, Phase: phase, Node: node})
}

func copyAny(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStr(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// resolveInput returns the recorded output of node.Input, or (nil, false)
// if unset or not yet recorded successfully.
func resolveInput(parent *state.Container, node *domain.Node) (any, bool) {
	if node.Input == "" {
		return nil, false
	}
	r, ok := parent.Result(node.Input)
	if !ok || r.Status != domain.NodeSuccess {
		return nil, false
	}
	return r.Output, true
}

// resolveConfig template-evaluates every string leaf of a config map
// against ec, recursing through nested maps and arrays.
func resolveConfig(raw map[string]any, ec *expr.Context) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		rv, err := resolveValue(v, ec)
		if err != nil {
			return nil, err
		}
		out[k] = rv
	}
	return out, nil
}

func resolveValue(v any, ec *expr.Context) (any, error) {
	switch x := v.(type) {
	case string:
		return expr.RenderTemplate(x, ec)
	case map[string]any:
		return resolveConfig(x, ec)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			rv, err := resolveValue(item, ec)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}

// retryConfigFor selects the node's own error config, falling back to the
// executor's default when the node declares none.
func retryConfigFor(n *domain.Node, def retry.Config) retry.Config {
	if n.ErrorConfig == nil {
		return def
	}
	return retry.Config{
		MaxRetries:     n.ErrorConfig.MaxRetries,
		BackoffBase:    time.Duration(n.ErrorConfig.BackoffBase) * time.Millisecond,
		BackoffKind:    n.ErrorConfig.BackoffKind,
		FallbackNodeID: n.ErrorConfig.FallbackNodeID,
	}
}

// executeNode runs a single node to completion and returns only its
// recorded result, for wave.go's dispatch where a raised BreakSignal (one
// never wired to a loop/foreach context) degrades to a plain failure.
func executeNode(ctx context.Context, rc *runCtx, parent *state.Container, node *domain.Node) domain.NodeResult {
	result, _ := runChild(ctx, rc, parent, node)
	return result
}

// runChild runs a single node to completion (including any retry, fallback,
// and control-flow sub-execution it triggers), returning both its recorded
// result and the raw error (if any) so control-flow handlers can detect a
// *domainerrors.BreakSignal with errors.As. A break signal bypasses retry
// and fallback entirely: it is control flow, not a failure.
func runChild(ctx context.Context, rc *runCtx, parent *state.Container, node *domain.Node) (domain.NodeResult, error) {
	started := time.Now()
	input, hasInput := resolveInput(parent, node)
	key := runtimeKey(node)
	cfg := retryConfigFor(node, rc.defaultRetry)

	attempt := 0
	body := func(ctx context.Context) (any, error) {
		attempt++
		if attempt > 1 {
			rc.obs.NodeRetrying(rc.runID, node.ID, attempt, retry.Delay(cfg, attempt-1))
		}
		rc.obs.NodeStarted(rc.runID, node.ID, attempt)

		ec := buildExprContext(parent, input, hasInput)
		resolvedConfig, err := resolveConfig(node.Config, ec)
		if err != nil {
			return nil, err
		}

		out, err := invoke(ctx, rc, parent, node, key, input, resolvedConfig, ec)
		return out, err
	}

	var fallback retry.FallbackInvoker
	if cfg.FallbackNodeID != "" {
		fallback = func(ctx context.Context, primaryErr error) (any, error) {
			fb := rc.plan.Nodes[cfg.FallbackNodeID]
			if fb == nil {
				return nil, domainerrors.NewValidation(fmt.Sprintf("fallback node %q not found in plan", cfg.FallbackNodeID))
			}
			ec := buildExprContext(parent, input, hasInput)
			ec.Variables["$primaryError"] = primaryErr.Error()
			ec.Variables["$primaryInput"] = input

			resolvedConfig, err := resolveConfig(fb.Config, ec)
			if err != nil {
				return nil, err
			}
			return invoke(ctx, rc, parent, fb, runtimeKey(fb), input, resolvedConfig, ec)
		}
	}

	res, err := retry.RunWithGuard(ctx, cfg, body, fallback, isBreakSignal)
	completed := time.Now()
	duration := completed.Sub(started)

	if err != nil {
		if !isBreakSignal(err) {
			rc.obs.NodeFailed(rc.runID, node.ID, err, duration, false)
		}
		return domain.NodeResult{
			Status: domain.NodeFailed, Error: err.Error(),
			Duration: duration, StartedAt: started, CompletedAt: completed,
		}, err
	}

	rc.obs.NodeCompleted(rc.runID, node.ID, res.Value, duration)
	return domain.NodeResult{
		Status: domain.NodeSuccess, Output: res.Value,
		Duration: duration, StartedAt: started, CompletedAt: completed,
	}, nil
}

// invoke dispatches a single (already config-resolved) node body: the four
// core-native control kinds build their descriptor directly and interpret
// it via the matching handler; everything else goes through the registry.
func invoke(ctx context.Context, rc *runCtx, parent *state.Container, node *domain.Node, key string, input any, cfg map[string]any, ec *expr.Context) (any, error) {
	if isCoreNative(node.Kind) {
		desc, err := buildDescriptor(node, ec)
		if err != nil {
			return nil, err
		}
		return dispatchControl(ctx, rc, parent, node, desc)
	}

	if node.Kind == domain.KindBranch {
		return evaluateBranch(node, ec)
	}

	req := runtime.Request{NodeID: node.ID, Input: input, Config: cfg, State: parent, Signal: ctx}
	out, err := rc.breakers.Execute(ctx, key, req)
	if err != nil {
		return nil, err
	}
	if isControlDescriptor(out) {
		return dispatchControl(ctx, rc, parent, node, out)
	}
	return out, nil
}

// evaluateBranch selects the first case whose condition is truthy, falling
// back to Else. It does not recursively execute the selected node IDs —
// those are ordinary plan nodes whose own `input`/template dependencies
// make them run (or not) based on this node's output, keeping branch
// selection a pure, inspectable value rather than a side-effecting call.
func evaluateBranch(node *domain.Node, ec *expr.Context) (any, error) {
	for _, c := range node.Cases {
		val, err := expr.Evaluate(c.Condition, ec)
		if err != nil {
			return nil, domainerrors.NewExpression(err.Error(), c.Condition, err).WithNode(node.ID)
		}
		if truthyValue(val) {
			return map[string]any{"matched": c.Condition, "nodeIds": c.NodeIDs}, nil
		}
	}
	return map[string]any{"matched": "else", "nodeIds": node.Else}, nil
}

func truthyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

// buildDescriptor constructs the typed control-flow descriptor for a
// core-native node, evaluating its one dynamic field (foreach's
// `collection` expression) against ec.
func buildDescriptor(node *domain.Node, ec *expr.Context) (any, error) {
	switch node.Kind {
	case domain.KindParallel:
		return ParallelDescriptor{
			Branches:       node.Branches,
			MaxConcurrency: intFromConfig(node.Config, "maxConcurrency", 0),
			Wait:           node.Wait,
			Merge:          node.Merge,
		}, nil
	case domain.KindForeach:
		val, err := expr.Evaluate(node.Collection, ec)
		if err != nil {
			return nil, domainerrors.NewExpression(err.Error(), node.Collection, err).WithNode(node.ID)
		}
		items, err := toSlice(val)
		if err != nil {
			return nil, domainerrors.NewValidation(fmt.Sprintf("foreach %s: collection did not evaluate to an array: %v", node.ID, err))
		}
		return ForeachDescriptor{
			Collection:     items,
			ItemVar:        orDefault(node.ItemVar, "item"),
			IndexVar:       orDefault(node.IndexVar, "index"),
			MaxConcurrency: intFromConfig(node.Config, "maxConcurrency", 1),
			BodyNodeIDs:    node.Body,
		}, nil
	case domain.KindLoop:
		return LoopDescriptor{
			MaxIterations:  node.MaxIterations,
			BodyNodeIDs:    node.Body,
			Condition:      node.Condition,
			BreakCondition: node.BreakCondition,
		}, nil
	case domain.KindTimeout:
		return TimeoutDescriptor{
			DurationMs:   node.DurationMs,
			ChildNodeIDs: node.Children,
			OnTimeout:    node.OnTimeout,
		}, nil
	default:
		return nil, domainerrors.NewValidation(fmt.Sprintf("node %s: not a core-native control kind", node.ID))
	}
}

func toSlice(v any) ([]any, error) {
	switch x := v.(type) {
	case []any:
		return x, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected array, got %T", v)
	}
}

func intFromConfig(cfg map[string]any, key string, def int) int {
	if cfg == nil {
		return def
	}
	v, ok := cfg[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}

// dispatchControl routes a built descriptor to its handler.
func dispatchControl(ctx context.Context, rc *runCtx, parent *state.Container, node *domain.Node, desc any) (any, error) {
	switch d := desc.(type) {
	case ParallelDescriptor:
		return runParallel(ctx, rc, parent, node, d)
	case ForeachDescriptor:
		return runForeach(ctx, rc, parent, node, d)
	case LoopDescriptor:
		return runLoop(ctx, rc, parent, node, d)
	case TimeoutDescriptor:
		return runTimeout(ctx, rc, parent, node, d)
	default:
		return nil, domainerrors.NewValidation(fmt.Sprintf("node %s: unrecognized control descriptor %T", node.ID, desc))
	}
}
