// Package evalctx assembles expr.Context values from execution state per
// : layering globalContext < phaseContext < nodeContext,
// binding reserved names ($config, $secrets, $context, $env), binding
// per-node outputs, and installing the builtin function whitelist.
//
// Grounded in mbflow's ConditionEvaluator/TemplateProcessor variable
// plumbing (internal/application/executor/{conditions,template}.go),
// generalized from a single flat map to the three-tier layering the workflow definition
// requires.
package evalctx

import (
	"os"
	"strings"

	"github.com/wfcore/wfcore/internal/expr"
)

// Layers holds the three-tier variable tables.
type Layers struct {
	Global map[string]any
	Phase  map[string]any
	Node   map[string]any
}

// NodeOutput is bound into the flat variable table as `nodeID.output`-style
// access (`{output: value}` at the top level keyed by node ID).
type NodeOutput struct {
	Output any
}

// Builder assembles evaluation contexts from execution state.
type Builder struct {
	Config      map[string]any
	Secrets     map[string]string
	NodeResults map[string]NodeOutput
}

// Build flattens the three layers (later layers win), binds reserved
// names, binds per-node outputs, and installs the builtin functions.
func (b *Builder) Build(layers Layers) *expr.Context {
	vars := map[string]any{}
	for k, v := range layers.Global {
		vars[k] = v
	}
	for k, v := range layers.Phase {
		vars[k] = v
	}
	for k, v := range layers.Node {
		vars[k] = v
	}

	merged := map[string]any{}
	for k, v := range layers.Global {
		merged[k] = v
	}
	for k, v := range layers.Phase {
		merged[k] = v
	}
	for k, v := range layers.Node {
		merged[k] = v
	}

	vars["$config"] = b.Config
	vars["$secrets"] = secretsAsAny(b.Secrets)
	vars["$context"] = merged
	vars["$env"] = envAsMap()

	for nodeID, out := range b.NodeResults {
		vars[nodeID] = map[string]any{"output": out.Output}
	}

	return &expr.Context{Variables: vars, Functions: Builtins()}
}

// Redacted returns a copy of vars with $secrets values replaced by
// "[REDACTED]". Used whenever a context must be embedded in an error or
// log line.
func Redacted(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		if k == "$secrets" {
			if m, ok := v.(map[string]any); ok {
				redacted := make(map[string]any, len(m))
				for sk := range m {
					redacted[sk] = "[REDACTED]"
				}
				out[k] = redacted
				continue
			}
		}
		out[k] = v
	}
	return out
}

func secretsAsAny(secrets map[string]string) map[string]any {
	out := make(map[string]any, len(secrets))
	for k, v := range secrets {
		out[k] = v
	}
	return out
}

func envAsMap() map[string]any {
	out := map[string]any{}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			out[parts[0]] = parts[1]
		}
	}
	return out
}
