package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfcore/wfcore/internal/domain"
	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
	"github.com/wfcore/wfcore/internal/runtime"
	"github.com/wfcore/wfcore/internal/state"
)

func TestRunForeachSequentialStopsOnBreak(t *testing.T) {
	var seen []any
	reg := runtime.NewRegistry()
	reg.Register("transform:visit", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		item := req.Config["item"]
		seen = append(seen, item)
		if item == "b" {
			return nil, &domainerrors.BreakSignal{}
		}
		return item, nil
	}))

	visit := &domain.Node{ID: "visit", Kind: domain.KindTransform, Type: "visit", Config: map[string]any{"item": "{{ item }}"}}
	rc := newTestRunCtx(reg, nodeMap(visit))
	st := state.New("wf", "run1")

	node := &domain.Node{ID: "each", Kind: domain.KindForeach}
	d := ForeachDescriptor{
		Collection: []any{"a", "b", "c"}, ItemVar: "item", IndexVar: "idx",
		BodyNodeIDs: []string{"visit"},
	}

	out, err := runForeach(context.Background(), rc, st, node, d)
	require.NoError(t, err, "a break consumed by the foreach itself is not an error")
	assert.Equal(t, []any{"a", nil, nil}, out)
	assert.Equal(t, []any{"a", "b"}, seen, "iteration c never runs after the break")
}

func TestRunForeachSequentialPropagatesNonBreakError(t *testing.T) {
	reg := runtime.NewRegistry()
	reg.Register("transform:visit", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		return nil, fmt.Errorf("boom")
	}))
	visit := &domain.Node{ID: "visit", Kind: domain.KindTransform, Type: "visit"}
	rc := newTestRunCtx(reg, nodeMap(visit))
	st := state.New("wf", "run1")

	node := &domain.Node{ID: "each", Kind: domain.KindForeach}
	d := ForeachDescriptor{Collection: []any{"a"}, ItemVar: "item", IndexVar: "idx", BodyNodeIDs: []string{"visit"}}

	_, err := runForeach(context.Background(), rc, st, node, d)
	require.Error(t, err)
	assert.False(t, isBreakSignal(err))
}

func TestRunForeachConcurrentRunsAllIterations(t *testing.T) {
	reg := runtime.NewRegistry()
	reg.Register("transform:visit", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		return req.Config["item"], nil
	}))
	visit := &domain.Node{ID: "visit", Kind: domain.KindTransform, Type: "visit", Config: map[string]any{"item": "{{ item }}"}}
	rc := newTestRunCtx(reg, nodeMap(visit))
	st := state.New("wf", "run1")

	node := &domain.Node{ID: "each", Kind: domain.KindForeach}
	d := ForeachDescriptor{
		Collection: []any{"a", "b", "c"}, ItemVar: "item", IndexVar: "idx",
		MaxConcurrency: 3, BodyNodeIDs: []string{"visit"},
	}

	out, err := runForeach(context.Background(), rc, st, node, d)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestRunForeachEmptyCollectionReturnsEmptySlice(t *testing.T) {
	reg := runtime.NewRegistry()
	rc := newTestRunCtx(reg, nodeMap())
	st := state.New("wf", "run1")
	node := &domain.Node{ID: "each", Kind: domain.KindForeach}

	out, err := runForeach(context.Background(), rc, st, node, ForeachDescriptor{})
	require.NoError(t, err)
	assert.Equal(t, []any{}, out)
}
