package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfcore/wfcore/internal/domain"
	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
	"github.com/wfcore/wfcore/internal/runtime"
	"github.com/wfcore/wfcore/internal/state"
)

func TestRunLoopStopsOnBreakCondition(t *testing.T) {
	var runs int
	reg := runtime.NewRegistry()
	reg.Register("transform:tick", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		runs++
		return runs, nil
	}))
	tick := &domain.Node{ID: "tick", Kind: domain.KindTransform, Type: "tick"}
	rc := newTestRunCtx(reg, nodeMap(tick))
	st := state.New("wf", "run1")

	node := &domain.Node{ID: "loop", Kind: domain.KindLoop}
	d := LoopDescriptor{MaxIterations: 10, BodyNodeIDs: []string{"tick"}, BreakCondition: "$iteration >= 2"}

	out, err := runLoop(context.Background(), rc, st, node, d)
	require.NoError(t, err)
	assert.Equal(t, 3, out, "iterations 0, 1, 2 run before the break condition (checked after iteration 2) stops the loop")
	assert.Equal(t, 3, runs)
}

func TestRunLoopIgnoresUnevaluatableBreakCondition(t *testing.T) {
	var runs int
	reg := runtime.NewRegistry()
	reg.Register("transform:tick", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		runs++
		return runs, nil
	}))
	tick := &domain.Node{ID: "tick", Kind: domain.KindTransform, Type: "tick"}
	rc := newTestRunCtx(reg, nodeMap(tick))
	st := state.New("wf", "run1")

	node := &domain.Node{ID: "loop", Kind: domain.KindLoop}
	d := LoopDescriptor{MaxIterations: 3, BodyNodeIDs: []string{"tick"}, BreakCondition: "$undefined.("}

	out, err := runLoop(context.Background(), rc, st, node, d)
	require.NoError(t, err, "a break condition that can't be evaluated must not abort the loop")
	assert.Equal(t, 3, out)
	assert.Equal(t, 3, runs, "all iterations run since the unevaluatable condition never stops the loop")
}

func TestRunLoopConditionSkipsBodyEntirely(t *testing.T) {
	reg := runtime.NewRegistry()
	rc := newTestRunCtx(reg, nodeMap())
	st := state.New("wf", "run1")
	st.SetGlobal("keepGoing", false)

	node := &domain.Node{ID: "loop", Kind: domain.KindLoop}
	d := LoopDescriptor{MaxIterations: 5, Condition: "keepGoing"}

	out, err := runLoop(context.Background(), rc, st, node, d)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestRunLoopDefaultsToOneIterationWhenUnset(t *testing.T) {
	var runs int
	reg := runtime.NewRegistry()
	reg.Register("transform:tick", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		runs++
		return runs, nil
	}))
	tick := &domain.Node{ID: "tick", Kind: domain.KindTransform, Type: "tick"}
	rc := newTestRunCtx(reg, nodeMap(tick))
	st := state.New("wf", "run1")

	node := &domain.Node{ID: "loop", Kind: domain.KindLoop}
	_, err := runLoop(context.Background(), rc, st, node, LoopDescriptor{BodyNodeIDs: []string{"tick"}})
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}

func TestRunLoopReraisesBreakSignalTargetingOuterLoop(t *testing.T) {
	reg := runtime.NewRegistry()
	reg.Register("transform:tick", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		return nil, &domainerrors.BreakSignal{TargetLoopID: "outer"}
	}))
	tick := &domain.Node{ID: "tick", Kind: domain.KindTransform, Type: "tick"}
	rc := newTestRunCtx(reg, nodeMap(tick))
	st := state.New("wf", "run1")

	node := &domain.Node{ID: "inner", Kind: domain.KindLoop}
	d := LoopDescriptor{MaxIterations: 3, BodyNodeIDs: []string{"tick"}}

	_, err := runLoop(context.Background(), rc, st, node, d)
	require.Error(t, err, "a break naming a different loop must propagate rather than be consumed here")
	brk, ok := asBreakSignal(err)
	require.True(t, ok)
	assert.Equal(t, "outer", brk.TargetLoopID)
}
