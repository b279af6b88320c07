package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfcore/wfcore/internal/domain"
	"github.com/wfcore/wfcore/internal/retry"
)

func TestDelaySchedules(t *testing.T) {
	base := 10 * time.Millisecond
	fixed := retry.Config{BackoffBase: base, BackoffKind: domain.BackoffFixed}
	assert.Equal(t, base, retry.Delay(fixed, 1))
	assert.Equal(t, base, retry.Delay(fixed, 3))

	linear := retry.Config{BackoffBase: base, BackoffKind: domain.BackoffLinear}
	assert.Equal(t, base*2, retry.Delay(linear, 2))

	exp := retry.Config{BackoffBase: base, BackoffKind: domain.BackoffExponential}
	assert.Equal(t, base, retry.Delay(exp, 1))
	assert.Equal(t, base*2, retry.Delay(exp, 2))
	assert.Equal(t, base*4, retry.Delay(exp, 3))
}

func TestRunSucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	cfg := retry.Config{MaxRetries: 2, BackoffBase: time.Millisecond, BackoffKind: domain.BackoffFixed}
	res, err := retry.Run(context.Background(), cfg, func(ctx context.Context) (any, error) {
		calls++
		return "ok", nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Value)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, res.PrimaryAttempts)
}

func TestRunRetriesThenFallback(t *testing.T) {
	primaryCalls := 0
	fallbackCalls := 0
	cfg := retry.Config{
		MaxRetries:     2,
		BackoffBase:    time.Millisecond,
		BackoffKind:    domain.BackoffExponential,
		FallbackNodeID: "FB",
	}

	res, err := retry.Run(context.Background(), cfg,
		func(ctx context.Context) (any, error) {
			primaryCalls++
			return nil, errors.New("boom")
		},
		func(ctx context.Context, primaryErr error) (any, error) {
			fallbackCalls++
			assert.EqualError(t, primaryErr, "boom")
			return "fallback-output", nil
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "fallback-output", res.Value)
	assert.Equal(t, 3, primaryCalls)
	assert.Equal(t, 1, fallbackCalls)
	assert.True(t, res.UsedFallback)
}

func TestRunNoFallbackPropagatesLastError(t *testing.T) {
	cfg := retry.Config{MaxRetries: 1, BackoffBase: time.Millisecond, BackoffKind: domain.BackoffFixed}
	_, err := retry.Run(context.Background(), cfg, func(ctx context.Context) (any, error) {
		return nil, errors.New("always fails")
	}, nil)
	require.Error(t, err)
	assert.EqualError(t, err, "always fails")
}

func TestRunRespectsContextCancellationDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := retry.Config{MaxRetries: 3, BackoffBase: 50 * time.Millisecond, BackoffKind: domain.BackoffFixed}

	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := retry.Run(ctx, cfg, func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("fail")
	}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
