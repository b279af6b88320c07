package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfcore/wfcore/internal/domain"
	"github.com/wfcore/wfcore/internal/runtime"
	"github.com/wfcore/wfcore/internal/state"
)

func TestParseWait(t *testing.T) {
	assert.Equal(t, waitStrategy{threshold: 3}, parseWait("", 3))
	assert.Equal(t, waitStrategy{threshold: 3}, parseWait("all", 3))
	assert.Equal(t, waitStrategy{threshold: 1}, parseWait("any", 3))
	assert.Equal(t, waitStrategy{threshold: 2}, parseWait("n(2)", 3))
	assert.Equal(t, waitStrategy{threshold: 3}, parseWait("n(0)", 3), "non-positive K falls back to requiring all branches")
	assert.Equal(t, waitStrategy{threshold: 3}, parseWait("garbage", 3), "unrecognized strategies fall back to requiring all branches")
}

func TestMergeBranchResultsStrategies(t *testing.T) {
	ordered := []any{[]any{"a"}, []any{"b", "c"}}

	out, err := mergeBranchResults("", ordered, nil)
	require.NoError(t, err)
	assert.Equal(t, ordered, out)

	out, err = mergeBranchResults("concat", ordered, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, out)

	objOrdered := []any{map[string]any{"x": 1}, map[string]any{"y": 2}}
	out, err = mergeBranchResults("object", objOrdered, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1, "y": 2}, out)
}

func TestRunParallelWaitAllFailsIfAnyBranchFails(t *testing.T) {
	reg := runtime.NewRegistry()
	reg.Register("transform:ok", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		return req.NodeID, nil
	}))
	reg.Register("transform:bad", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		return nil, fmt.Errorf("boom")
	}))

	ok := &domain.Node{ID: "ok", Kind: domain.KindTransform, Type: "ok"}
	bad := &domain.Node{ID: "bad", Kind: domain.KindTransform, Type: "bad"}
	rc := newTestRunCtx(reg, nodeMap(ok, bad))
	st := state.New("wf", "run1")

	node := &domain.Node{ID: "fanout", Kind: domain.KindParallel}
	d := ParallelDescriptor{Branches: [][]string{{"ok"}, {"bad"}}, Wait: "all"}

	_, err := runParallel(context.Background(), rc, st, node, d)
	require.Error(t, err)
}

func TestRunParallelEmptyBranchesReturnsEmptySlice(t *testing.T) {
	reg := runtime.NewRegistry()
	rc := newTestRunCtx(reg, nodeMap())
	st := state.New("wf", "run1")
	node := &domain.Node{ID: "fanout", Kind: domain.KindParallel}

	out, err := runParallel(context.Background(), rc, st, node, ParallelDescriptor{})
	require.NoError(t, err)
	assert.Equal(t, []any{}, out)
}

func TestRunParallelWaitThresholdExceedingBranchesIsValidationError(t *testing.T) {
	reg := runtime.NewRegistry()
	reg.Register("transform:ok", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		return req.NodeID, nil
	}))
	ok := &domain.Node{ID: "ok", Kind: domain.KindTransform, Type: "ok"}
	rc := newTestRunCtx(reg, nodeMap(ok))
	st := state.New("wf", "run1")
	node := &domain.Node{ID: "fanout", Kind: domain.KindParallel}

	_, err := runParallel(context.Background(), rc, st, node, ParallelDescriptor{
		Branches: [][]string{{"ok"}}, Wait: "n(2)",
	})
	require.Error(t, err)
}
