package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfcore/wfcore/internal/domain"
	"github.com/wfcore/wfcore/internal/runtime"
	"github.com/wfcore/wfcore/internal/state"
)

func TestRunTimeoutReturnsChildOutputWhenFast(t *testing.T) {
	reg := runtime.NewRegistry()
	reg.Register("transform:fast", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		return "done", nil
	}))
	fast := &domain.Node{ID: "fast", Kind: domain.KindTransform, Type: "fast"}
	rc := newTestRunCtx(reg, nodeMap(fast))
	st := state.New("wf", "run1")

	node := &domain.Node{ID: "tm", Kind: domain.KindTimeout}
	d := TimeoutDescriptor{DurationMs: 5000, ChildNodeIDs: []string{"fast"}}

	out, err := runTimeout(context.Background(), rc, st, node, d)
	require.NoError(t, err)
	assert.Equal(t, "done", out)
}

func TestRunTimeoutRunsFallbackOnExpiry(t *testing.T) {
	reg := runtime.NewRegistry()
	reg.Register("transform:slow", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	reg.Register("transform:rescue", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		return "rescued", nil
	}))
	slow := &domain.Node{ID: "slow", Kind: domain.KindTransform, Type: "slow"}
	rescue := &domain.Node{ID: "rescue", Kind: domain.KindTransform, Type: "rescue"}
	rc := newTestRunCtx(reg, nodeMap(slow, rescue))
	st := state.New("wf", "run1")

	node := &domain.Node{ID: "tm", Kind: domain.KindTimeout}
	d := TimeoutDescriptor{DurationMs: 20, ChildNodeIDs: []string{"slow"}, OnTimeout: "rescue"}

	out, err := runTimeout(context.Background(), rc, st, node, d)
	require.NoError(t, err)
	assert.Equal(t, "rescued", out)

	r, ok := st.Result("rescue")
	require.True(t, ok)
	assert.Equal(t, "rescued", r.Output)
}

func TestRunTimeoutReturnsTimeoutErrorWithoutFallback(t *testing.T) {
	reg := runtime.NewRegistry()
	reg.Register("transform:slow", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	slow := &domain.Node{ID: "slow", Kind: domain.KindTransform, Type: "slow"}
	rc := newTestRunCtx(reg, nodeMap(slow))
	st := state.New("wf", "run1")

	node := &domain.Node{ID: "tm", Kind: domain.KindTimeout}
	d := TimeoutDescriptor{DurationMs: 20, ChildNodeIDs: []string{"slow"}}

	start := time.Now()
	_, err := runTimeout(context.Background(), rc, st, node, d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 2*time.Second)
}
