package builtin_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfcore/wfcore/internal/runtime"
	"github.com/wfcore/wfcore/internal/runtime/builtin"
)

type stubResponder struct {
	action string
	input  any
	err    error
}

func (s stubResponder) Respond(ctx context.Context, nodeID string, config map[string]any) (string, any, error) {
	return s.action, s.input, s.err
}

func TestCheckpointRuntimeNonInteractiveUsesDefaultAction(t *testing.T) {
	r := builtin.NewCheckpointRuntime(nil)
	out, err := r.Execute(context.Background(), runtime.Request{
		NodeID: "gate",
		Config: map[string]any{"defaultAction": "reject"},
	})
	require.NoError(t, err)
	m := out.(map[string]any)
	assert.Equal(t, "reject", m["action"])
	assert.Equal(t, false, m["timedOut"])
}

func TestCheckpointRuntimeSkipsWhenConditionFalse(t *testing.T) {
	r := builtin.NewCheckpointRuntime(stubResponder{action: "approve"})
	out, err := r.Execute(context.Background(), runtime.Request{
		NodeID: "gate",
		Config: map[string]any{"condition": "false"},
	})
	require.NoError(t, err)
	m := out.(map[string]any)
	assert.Equal(t, "approve", m["action"])
	assert.Equal(t, true, m["skipped"])
}

func TestCheckpointRuntimeUsesResponderDecision(t *testing.T) {
	r := builtin.NewCheckpointRuntime(stubResponder{action: "reject", input: "not today"})
	out, err := r.Execute(context.Background(), runtime.Request{NodeID: "gate", Config: map[string]any{}})
	require.NoError(t, err)
	m := out.(map[string]any)
	assert.Equal(t, "reject", m["action"])
	assert.Equal(t, "not today", m["input"])
	assert.Equal(t, false, m["timedOut"])
}

func TestCheckpointRuntimeResponderErrorFallsBackToDefault(t *testing.T) {
	r := builtin.NewCheckpointRuntime(stubResponder{err: fmt.Errorf("no response")})
	out, err := r.Execute(context.Background(), runtime.Request{
		NodeID: "gate",
		Config: map[string]any{"defaultAction": "approve"},
	})
	require.NoError(t, err)
	m := out.(map[string]any)
	assert.Equal(t, "approve", m["action"])
	assert.Equal(t, true, m["timedOut"])
}
