package builtin

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
	"github.com/wfcore/wfcore/internal/runtime"
)

// AIRuntime executes an `ai:completion` node via the OpenAI chat completion
// API, grounded in the teacher's OpenAICompletionExecutor
// (internal/application/executor/node_executors.go). Config: `prompt`
// (required, already template-resolved by the caller), `model` (default
// gpt-4o), `maxTokens`, `temperature`. The API key comes from req.Config
// ("apiKey") or the runtime's default, in that priority order — the
// teacher's config > context > default chain, minus the context tier
// (the core has no ambient env lookup of its own).
type AIRuntime struct {
	DefaultAPIKey string
	newClient     func(apiKey string) *openai.Client
}

// NewAIRuntime builds an AIRuntime, falling back to defaultAPIKey when a
// node's config omits "apiKey".
func NewAIRuntime(defaultAPIKey string) *AIRuntime {
	return &AIRuntime{DefaultAPIKey: defaultAPIKey}
}

func (r *AIRuntime) client(apiKey string) *openai.Client {
	if r.newClient != nil {
		return r.newClient(apiKey)
	}
	return openai.NewClient(apiKey)
}

func (r *AIRuntime) Execute(ctx context.Context, req runtime.Request) (any, error) {
	prompt, _ := req.Config["prompt"].(string)
	if prompt == "" {
		return nil, domainerrors.NewValidation(fmt.Sprintf("ai runtime: node %s: missing required config 'prompt'", req.NodeID))
	}

	apiKey, _ := req.Config["apiKey"].(string)
	if apiKey == "" {
		apiKey = r.DefaultAPIKey
	}
	if apiKey == "" {
		return nil, domainerrors.NewValidation(fmt.Sprintf("ai runtime: node %s: no API key in config or runtime default", req.NodeID))
	}

	model, _ := req.Config["model"].(string)
	if model == "" {
		model = "gpt-4o"
	}
	maxTokens := intFromAny(req.Config["maxTokens"], 0)
	temperature := float32(floatFromAny(req.Config["temperature"], 1))

	client := r.client(apiKey)
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               model,
		MaxCompletionTokens: maxTokens,
		Temperature:         temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, domainerrors.NewRuntime(fmt.Sprintf("ai runtime: node %s: completion request failed: %v", req.NodeID, err), err).WithNode(req.NodeID)
	}
	if len(resp.Choices) == 0 {
		return nil, domainerrors.NewRuntime(fmt.Sprintf("ai runtime: node %s: empty response", req.NodeID), nil).WithNode(req.NodeID)
	}

	return map[string]any{
		"text":         resp.Choices[0].Message.Content,
		"model":        resp.Model,
		"finishReason": string(resp.Choices[0].FinishReason),
		"usage": map[string]any{
			"promptTokens":     resp.Usage.PromptTokens,
			"completionTokens": resp.Usage.CompletionTokens,
			"totalTokens":      resp.Usage.TotalTokens,
		},
	}, nil
}

func intFromAny(v any, def int) int {
	switch x := v.(type) {
	case int:
		return x
	case float64:
		return int(x)
	default:
		return def
	}
}

func floatFromAny(v any, def float64) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	default:
		return def
	}
}
