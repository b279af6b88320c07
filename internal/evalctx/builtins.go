package evalctx

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wfcore/wfcore/internal/expr"
)

// Builtins returns the minimal whitelist of expression functions named in
// : json_encode, json_decode, length, concat, now, upper, lower.
// All are pure except now, which is documented as impure. None can reveal
// the secrets table or process state beyond $env.
func Builtins() map[string]expr.Func {
	return map[string]expr.Func{
		"json_encode": builtinJSONEncode,
		"json_decode": builtinJSONDecode,
		"length":      builtinLength,
		"concat":      builtinConcat,
		"now":         builtinNow,
		"upper":       builtinUpper,
		"lower":       builtinLower,
	}
}

func builtinJSONEncode(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("json_encode: expected 1 argument, got %d", len(args))
	}
	b, err := json.Marshal(args[0])
	if err != nil {
		return nil, fmt.Errorf("json_encode: %w", err)
	}
	return string(b), nil
}

func builtinJSONDecode(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("json_decode: expected 1 argument, got %d", len(args))
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("json_decode: argument must be a string")
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("json_decode: %w", err)
	}
	return normalizeJSON(out), nil
}

// normalizeJSON converts encoding/json's float64/map[string]any/[]any
// output into the same shapes the evaluator expects (it already matches,
// this exists to make the contract explicit and to recurse defensively).
func normalizeJSON(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalizeJSON(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalizeJSON(val)
		}
		return out
	default:
		return x
	}
}

func builtinLength(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("length: expected 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case string:
		return float64(len(v)), nil
	case []any:
		return float64(len(v)), nil
	case map[string]any:
		return float64(len(v)), nil
	case nil:
		return 0.0, nil
	default:
		return nil, fmt.Errorf("length: unsupported type %T", v)
	}
}

func builtinConcat(args []any) (any, error) {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(stringify(a))
	}
	return sb.String(), nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func builtinNow(args []any) (any, error) {
	return time.Now().UTC().Format(time.RFC3339), nil
}

func builtinUpper(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("upper: expected 1 argument, got %d", len(args))
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("upper: argument must be a string")
	}
	return strings.ToUpper(s), nil
}

func builtinLower(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("lower: expected 1 argument, got %d", len(args))
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("lower: argument must be a string")
	}
	return strings.ToLower(s), nil
}
