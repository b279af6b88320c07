package wfcore

import (
	"github.com/wfcore/wfcore/internal/runtime/builtin"
)

// CheckpointResponder collects a human decision for a checkpoint node.
type CheckpointResponder = builtin.Responder

// BuiltinConfig selects which illustrative runtimes RegisterBuiltins wires
// into a Registry, and their construction parameters.
type BuiltinConfig struct {
	// HTTP registers the "http:source" and "http:sink" keys when true.
	HTTP bool
	// AICompletionAPIKey, if non-empty, registers "ai:completion" with this
	// as the default OpenAI API key (a node's own config.apiKey still wins).
	AICompletionAPIKey string
	// Checkpoint registers "checkpoint" when true. CheckpointResponder, if
	// non-nil, makes that checkpoint interactive; if nil, a non-interactive
	// checkpoint (always returns defaultAction) is used.
	Checkpoint          bool
	CheckpointResponder CheckpointResponder
}

// RegisterBuiltins wires the requested illustrative runtimes into reg,
// mirroring the teacher's factory.go pattern of registering concrete node
// executors onto a fresh engine at construction time.
func RegisterBuiltins(reg *Registry, cfg BuiltinConfig) {
	if cfg.HTTP {
		http := builtin.NewHTTPRuntime()
		reg.Register("http:source", http)
		reg.Register("http:sink", http)
	}
	if cfg.AICompletionAPIKey != "" {
		reg.Register("ai:completion", builtin.NewAIRuntime(cfg.AICompletionAPIKey))
	}
	if cfg.Checkpoint {
		reg.Register("checkpoint", builtin.NewCheckpointRuntime(cfg.CheckpointResponder))
	}
}
