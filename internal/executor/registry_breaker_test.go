package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfcore/wfcore/internal/runtime"
)

func TestCircuitBreakersOpensAfterThreshold(t *testing.T) {
	reg := runtime.NewRegistry()
	reg.Register("flaky", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		return nil, fmt.Errorf("boom")
	}))
	cb := NewCircuitBreakers(reg, BreakerConfig{FailureThreshold: 2, CooldownWindow: time.Hour})

	_, err := cb.Execute(context.Background(), "flaky", runtime.Request{})
	require.Error(t, err)
	_, err = cb.Execute(context.Background(), "flaky", runtime.Request{})
	require.Error(t, err)

	_, err = cb.Execute(context.Background(), "flaky", runtime.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
}

func TestCircuitBreakersSuccessResetsFailureCount(t *testing.T) {
	reg := runtime.NewRegistry()
	fail := true
	reg.Register("sometimes", runtime.RuntimeFunc(func(ctx context.Context, req runtime.Request) (any, error) {
		if fail {
			return nil, fmt.Errorf("boom")
		}
		return "ok", nil
	}))
	cb := NewCircuitBreakers(reg, BreakerConfig{FailureThreshold: 2, CooldownWindow: time.Hour})

	_, err := cb.Execute(context.Background(), "sometimes", runtime.Request{})
	require.Error(t, err)

	fail = false
	out, err := cb.Execute(context.Background(), "sometimes", runtime.Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	fail = true
	_, err = cb.Execute(context.Background(), "sometimes", runtime.Request{})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "circuit open", "a single post-success failure must not trip an already-reset breaker")
}

func TestCircuitBreakersUnknownKeyPropagatesRegistryError(t *testing.T) {
	reg := runtime.NewRegistry()
	cb := NewCircuitBreakers(reg, DefaultBreakerConfig())

	_, err := cb.Execute(context.Background(), "missing", runtime.Request{})
	require.Error(t, err)
}

func TestNewCircuitBreakersDefaultsInvalidThreshold(t *testing.T) {
	cb := NewCircuitBreakers(runtime.NewRegistry(), BreakerConfig{})
	assert.Equal(t, DefaultBreakerConfig().FailureThreshold, cb.cfg.FailureThreshold)
}
