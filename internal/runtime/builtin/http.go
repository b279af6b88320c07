// Package builtin collects illustrative runtime.Runtime implementations —
// http, ai:completion, and checkpoint — demonstrating the plug-in contract
// for node kinds like `http:source`/`http:sink` and `ai:completion`. They
// are reference wiring, not the core's business: callers
// assemble their own runtime.Registry and register whichever of these (or
// their own) they need.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domainerrors "github.com/wfcore/wfcore/internal/domain/errors"
	"github.com/wfcore/wfcore/internal/runtime"
)

// HTTPRuntime executes an HTTP request per the node's resolved config:
// `url` (required), `method` (default GET), `headers` (map[string]any;
// only string values are sent), `body` (a string sent as-is, or a
// map[string]any that is JSON-encoded). It
// serves both `http:source` and `http:sink` registry keys — the two
// differ only in where the workflow definition expects them in the DAG, not in behavior.
type HTTPRuntime struct {
	Client *http.Client
}

// NewHTTPRuntime builds an HTTPRuntime with a bounded default client,
// grounded in the teacher's OpenAI provider's 120s client timeout
// convention scaled down for a generic request.
func NewHTTPRuntime() *HTTPRuntime {
	return &HTTPRuntime{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (r *HTTPRuntime) Execute(ctx context.Context, req runtime.Request) (any, error) {
	url, _ := req.Config["url"].(string)
	if url == "" {
		return nil, domainerrors.NewValidation(fmt.Sprintf("http runtime: node %s: missing required config 'url'", req.NodeID))
	}
	method, _ := req.Config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	switch body := req.Config["body"].(type) {
	case string:
		if body != "" {
			bodyReader = strings.NewReader(body)
		}
	case map[string]any:
		encoded, err := bodyFromJSON(body)
		if err != nil {
			return nil, domainerrors.NewRuntime(fmt.Sprintf("http runtime: encode body: %v", err), err).WithNode(req.NodeID)
		}
		bodyReader = strings.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, bodyReader)
	if err != nil {
		return nil, domainerrors.NewRuntime(fmt.Sprintf("http runtime: build request: %v", err), err).WithNode(req.NodeID)
	}
	if headers, ok := req.Config["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				httpReq.Header.Set(k, s)
			}
		}
	}
	if bodyReader != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client().Do(httpReq)
	if err != nil {
		return nil, domainerrors.NewRuntime(fmt.Sprintf("http runtime: request failed: %v", err), err).WithNode(req.NodeID)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domainerrors.NewRuntime(fmt.Sprintf("http runtime: read response: %v", err), err).WithNode(req.NodeID)
	}

	out := map[string]any{
		"status":  resp.StatusCode,
		"headers": flattenHeader(resp.Header),
		"body":    string(respBody),
	}
	var parsed any
	if json.Unmarshal(respBody, &parsed) == nil {
		out["json"] = parsed
	}

	if resp.StatusCode >= 400 {
		return out, domainerrors.NewRuntime(fmt.Sprintf("http runtime: node %s: status %d", req.NodeID, resp.StatusCode), nil).WithNode(req.NodeID)
	}
	return out, nil
}

func (r *HTTPRuntime) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return http.DefaultClient
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// bodyFromJSON lets a `body` config supplied as a structured map (rather
// than a pre-rendered string) pass through to the request unchanged.
func bodyFromJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
