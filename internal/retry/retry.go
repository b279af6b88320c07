// Package retry implements its retry/backoff/fallback policy,
// grounded in mbflow's RetryExecutor and RetryConfig
// (internal/application/executor/retry.go), generalized from that
// teacher's attempt-count-plus-jitter loop to this package's exact
// base*{1,attempt,2^(attempt-1)} delay schedule and primary/fallback
// split (the teacher's version folds fallback into a commented-out
// WithRetry helper; this implementation completes it).
package retry

import (
	"context"
	"time"

	"github.com/wfcore/wfcore/internal/domain"
)

// Config is the per-node retry configuration.
type Config struct {
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffKind    domain.BackoffKind
	FallbackNodeID string
}

// Delay computes delay(attempt) = base * {1, attempt, 2^(attempt-1)}
// depending on BackoffKind, for attempt >= 1.
func Delay(cfg Config, attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	switch cfg.BackoffKind {
	case domain.BackoffLinear:
		return cfg.BackoffBase * time.Duration(attempt)
	case domain.BackoffExponential:
		mult := int64(1) << uint(attempt-1)
		return cfg.BackoffBase * time.Duration(mult)
	default: // fixed
		return cfg.BackoffBase
	}
}

// Invoker executes a node body once.
type Invoker func(ctx context.Context) (any, error)

// FallbackInvoker executes the fallback node, given the primary's last
// error. The caller is responsible for injecting $primaryError and
// $primaryInput into the fallback's evaluation context before calling
// this.
type FallbackInvoker func(ctx context.Context, primaryErr error) (any, error)

// Result reports how many attempts the primary and (if any) fallback
// invocation consumed, for observability and this package's testable
// property "total attempts on primary = 3; on fallback = 1".
type Result struct {
	Value            any
	PrimaryAttempts  int
	FallbackAttempts int
	UsedFallback     bool
}

// Run executes body with retry/backoff per cfg, falling back to fallback
// (invoked exactly once, without its own retry wrapper, to prevent
// fallback-of-fallback loops) if all primary attempts are exhausted and
// cfg.FallbackNodeID is set.
func Run(ctx context.Context, cfg Config, body Invoker, fallback FallbackInvoker) (Result, error) {
	return RunWithGuard(ctx, cfg, body, fallback, nil)
}

// RunWithGuard is Run with an escape hatch: if nonRetryable(err) reports
// true for a body error, that error propagates immediately with no further
// attempts and no fallback invocation. Used by the executor to let a break
// signal (control flow, not a true failure) skip the retry machinery
// entirely rather than being retried or routed to a fallback node.
func RunWithGuard(ctx context.Context, cfg Config, body Invoker, fallback FallbackInvoker, nonRetryable func(error) bool) (Result, error) {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{PrimaryAttempts: attempt}, ctx.Err()
			case <-time.After(Delay(cfg, attempt)):
			}
		}

		val, err := body(ctx)
		if err == nil {
			return Result{Value: val, PrimaryAttempts: attempt + 1}, nil
		}
		lastErr = err
		if nonRetryable != nil && nonRetryable(err) {
			return Result{PrimaryAttempts: attempt + 1}, err
		}
	}

	primaryAttempts := cfg.MaxRetries + 1

	if cfg.FallbackNodeID != "" && fallback != nil {
		val, err := fallback(ctx, lastErr)
		if err != nil {
			return Result{PrimaryAttempts: primaryAttempts, FallbackAttempts: 1, UsedFallback: true}, err
		}
		return Result{Value: val, PrimaryAttempts: primaryAttempts, FallbackAttempts: 1, UsedFallback: true}, nil
	}

	return Result{PrimaryAttempts: primaryAttempts}, lastErr
}
