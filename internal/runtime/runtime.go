// Package runtime defines the pluggable node-runtime contract: a keyed
// registry of handlers, each exposing execute(params) -> output. Grounded
// in mbflow's NodeExecutor registry
// (internal/application/executor/node_types.go, node_executors.go),
// generalized from mbflow's fixed OpenAI/HTTP/router node set to an open
// key scheme (`<kind>:source`, `transform:<kind>`, `control:<kind>`,
// `checkpoint`, `temporal:*`, `composition:*`).
package runtime

import (
	"context"

	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
)

// Request bundles everything a runtime needs to execute one node
// invocation.
type Request struct {
	NodeID string
	Input  any
	Config map[string]any
	// State is an opaque handle back to the execution state container;
	// runtimes that need it type-assert it to their expected concrete
	// type, keeping this package free of an internal/state import cycle.
	// None of the builtin runtimes read it.
	State  any
	Signal context.Context
}

// Runtime is the plug-in contract: execute(params) -> output.
type Runtime interface {
	Execute(ctx context.Context, req Request) (any, error)
}

// RuntimeFunc adapts a plain function to the Runtime interface.
type RuntimeFunc func(ctx context.Context, req Request) (any, error)

func (f RuntimeFunc) Execute(ctx context.Context, req Request) (any, error) { return f(ctx, req) }

// Registry is a keyed lookup of runtimes.
type Registry struct {
	runtimes map[string]Runtime
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runtimes: map[string]Runtime{}}
}

// Register binds a runtime to a key, overwriting any previous binding.
func (r *Registry) Register(key string, rt Runtime) {
	r.runtimes[key] = rt
}

// Lookup returns the runtime bound to key, or an unknown-runtime
// CoreError if no runtime is registered under it.
func (r *Registry) Lookup(key string) (Runtime, error) {
	rt, ok := r.runtimes[key]
	if !ok {
		return nil, domainerrors.NewUnknownRuntime(key)
	}
	return rt, nil
}

// Keys returns every registered key, for diagnostics.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.runtimes))
	for k := range r.runtimes {
		keys = append(keys, k)
	}
	return keys
}
