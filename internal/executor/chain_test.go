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

func TestRunChainStopsAtFirstError(t *testing.T) {
	var ran []string
	reg := runtime.NewRegistry()
	reg.Register("transform:ok", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		ran = append(ran, req.NodeID)
		return req.NodeID, nil
	}))
	reg.Register("transform:bad", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		ran = append(ran, req.NodeID)
		return nil, fmt.Errorf("boom")
	}))

	a := &domain.Node{ID: "a", Kind: domain.KindTransform, Type: "ok"}
	b := &domain.Node{ID: "b", Kind: domain.KindTransform, Type: "bad"}
	c := &domain.Node{ID: "c", Kind: domain.KindTransform, Type: "ok"}
	rc := newTestRunCtx(reg, nodeMap(a, b, c))

	st := state.New("wf", "run1")
	_, err := runChain(context.Background(), rc, st, []string{"a", "b", "c"})
	require.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, ran, "c must not run after b fails")

	_, ok := st.Result("a")
	assert.True(t, ok, "a's result is recorded before the chain fails")
	_, ok = st.Result("c")
	assert.False(t, ok, "c never ran so it has no recorded result")
}

func TestRunChainMissingNodeIsValidationError(t *testing.T) {
	reg := runtime.NewRegistry()
	rc := newTestRunCtx(reg, nodeMap())
	st := state.New("wf", "run1")

	_, err := runChain(context.Background(), rc, st, []string{"ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}
