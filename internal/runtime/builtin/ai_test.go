package builtin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfcore/wfcore/internal/runtime"
)

func fakeOpenAIServer(t *testing.T, reply openai.ChatCompletionResponse) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func withFakeClient(r *AIRuntime, srv *httptest.Server) {
	r.newClient = func(apiKey string) *openai.Client {
		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = srv.URL + "/v1"
		return openai.NewClientWithConfig(cfg)
	}
}

func TestAIRuntimeMissingPromptIsValidationError(t *testing.T) {
	r := NewAIRuntime("sk-default")
	_, err := r.Execute(context.Background(), runtime.Request{NodeID: "n1", Config: map[string]any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt")
}

func TestAIRuntimeMissingAPIKeyIsValidationError(t *testing.T) {
	r := NewAIRuntime("")
	_, err := r.Execute(context.Background(), runtime.Request{NodeID: "n1", Config: map[string]any{"prompt": "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestAIRuntimeReturnsCompletionText(t *testing.T) {
	srv := fakeOpenAIServer(t, openai.ChatCompletionResponse{
		Model: "gpt-4o",
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "hello there"}, FinishReason: openai.FinishReasonStop},
		},
		Usage: openai.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
	})
	r := NewAIRuntime("sk-default")
	withFakeClient(r, srv)

	out, err := r.Execute(context.Background(), runtime.Request{
		NodeID: "n1",
		Config: map[string]any{"prompt": "say hi"},
	})
	require.NoError(t, err)

	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello there", m["text"])
	assert.Equal(t, "gpt-4o", m["model"])
}

func TestAIRuntimeConfigAPIKeyOverridesDefault(t *testing.T) {
	srv := fakeOpenAIServer(t, openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
	})
	r := NewAIRuntime("sk-default")
	withFakeClient(r, srv)

	out, err := r.Execute(context.Background(), runtime.Request{
		NodeID: "n1",
		Config: map[string]any{"prompt": "hi", "apiKey": "sk-node-specific"},
	})
	require.NoError(t, err)
	assert.NotNil(t, out)
}
