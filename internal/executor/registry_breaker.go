package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
	"github.com/wfcore/wfcore/internal/runtime"
)

// BreakerConfig configures the per-runtime-key circuit breaker, grounded in
// mbflow's CircuitBreakerConfig (internal/application/executor/
// circuit_breaker.go), simplified from that teacher's closed/open/half-open
// three-state machine to closed/open with a single cooldown-then-probe
// step — this breaker is a guard against hammering a dead runtime, not a
// full production SRE primitive, so the half-open concurrency-limited
// probing state is dropped; the first call after cooldown is the probe.
type BreakerConfig struct {
	FailureThreshold int
	CooldownWindow   time.Duration
}

// DefaultBreakerConfig returns the package's default thresholds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, CooldownWindow: 30 * time.Second}
}

type breakerState struct {
	mu                  sync.Mutex
	consecutiveFailures int
	openUntil           time.Time
}

// CircuitBreakers wraps runtime.Registry lookups, tripping per-key after
// cfg.FailureThreshold consecutive failures and short-circuiting dispatch to
// that key for cfg.CooldownWindow.
type CircuitBreakers struct {
	registry *runtime.Registry
	cfg      BreakerConfig

	mu       sync.Mutex
	breakers map[string]*breakerState
}

// NewCircuitBreakers wraps reg with circuit-breaker protection per key.
func NewCircuitBreakers(reg *runtime.Registry, cfg BreakerConfig) *CircuitBreakers {
	if cfg.FailureThreshold <= 0 {
		cfg = DefaultBreakerConfig()
	}
	return &CircuitBreakers{registry: reg, cfg: cfg, breakers: map[string]*breakerState{}}
}

func (cb *CircuitBreakers) stateFor(key string) *breakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	st, ok := cb.breakers[key]
	if !ok {
		st = &breakerState{}
		cb.breakers[key] = st
	}
	return st
}

// Execute looks up key in the wrapped registry and invokes it, unless the
// key's breaker is currently open.
func (cb *CircuitBreakers) Execute(ctx context.Context, key string, req runtime.Request) (any, error) {
	rt, err := cb.registry.Lookup(key)
	if err != nil {
		return nil, err
	}

	st := cb.stateFor(key)

	st.mu.Lock()
	if !st.openUntil.IsZero() && time.Now().Before(st.openUntil) {
		remaining := time.Until(st.openUntil)
		st.mu.Unlock()
		return nil, domainerrors.NewRuntime(
			fmt.Sprintf("circuit open for runtime %q, retry in %s", key, remaining.Round(time.Millisecond)), nil)
	}
	st.mu.Unlock()

	out, execErr := rt.Execute(ctx, req)

	st.mu.Lock()
	if execErr != nil {
		st.consecutiveFailures++
		if st.consecutiveFailures >= cb.cfg.FailureThreshold {
			st.openUntil = time.Now().Add(cb.cfg.CooldownWindow)
		}
	} else {
		st.consecutiveFailures = 0
		st.openUntil = time.Time{}
	}
	st.mu.Unlock()

	return out, execErr
}
