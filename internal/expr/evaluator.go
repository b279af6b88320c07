package expr

import (
	"fmt"
	"math"
	"strconv"
)

// Func is a whitelisted built-in function. Functions are never fetched
// from Variables — the grammar forbids method calls, so the only way to
// invoke behavior is a bare-identifier CallExpression resolved here.
type Func func(args []any) (any, error)

// Context is an evaluation context: a flat variable table plus the
// whitelisted function table. evalctx.Builder.Build assembles one of these from
// execution state.
type Context struct {
	Variables map[string]any
	Functions map[string]Func
}

// reserved property names that would otherwise reach into host-language
// reflection; accessing one as a member property (dotted or computed) is
// rejected with a message containing "security".
var forbiddenNames = map[string]bool{
	"__proto__":   true,
	"constructor": true,
	"prototype":   true,
}

// Eval walks the AST depth-first and produces a value. Absent values
// (missing identifiers, null-safe member chains) evaluate to nil without
// raising an error.
func Eval(node Node, ctx *Context) (any, error) {
	switch n := node.(type) {
	case *Literal:
		return n.Value, nil

	case *ThisExpression:
		return nil, fmt.Errorf("expr: 'this' is not allowed in sandboxed expressions")

	case *Identifier:
		v, ok := ctx.Variables[n.Name]
		if !ok {
			return nil, nil // absent, not an error
		}
		return v, nil

	case *MemberExpression:
		return evalMember(n, ctx)

	case *ArrayExpression:
		out := make([]any, len(n.Elements))
		for i, el := range n.Elements {
			v, err := Eval(el, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case *UnaryExpression:
		return evalUnary(n, ctx)

	case *BinaryExpression:
		return evalBinary(n, ctx)

	case *ConditionalExpression:
		test, err := Eval(n.Test, ctx)
		if err != nil {
			return nil, err
		}
		if truthy(test) {
			return Eval(n.Consequent, ctx)
		}
		return Eval(n.Alternate, ctx)

	case *CallExpression:
		return evalCall(n, ctx)

	case *Compound:
		var last any
		for _, e := range n.Expressions {
			v, err := Eval(e, ctx)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil

	default:
		return nil, fmt.Errorf("expr: unsupported node type %T", node)
	}
}

func evalMember(n *MemberExpression, ctx *Context) (any, error) {
	obj, err := Eval(n.Object, ctx)
	if err != nil {
		return nil, err
	}

	var propName string
	if n.Computed {
		propVal, err := Eval(n.Property, ctx)
		if err != nil {
			return nil, err
		}
		propName = toStringCoerce(propVal)
	} else {
		propName = n.Property.(*Identifier).Name
	}

	if forbiddenNames[propName] {
		return nil, fmt.Errorf("expr: security violation: access to %q is not allowed", propName)
	}

	if obj == nil {
		return nil, nil // null-safe chain
	}

	switch o := obj.(type) {
	case map[string]any:
		return o[propName], nil
	case []any:
		idx, err := strconv.Atoi(propName)
		if err != nil || idx < 0 || idx >= len(o) {
			return nil, nil
		}
		return o[idx], nil
	default:
		return nil, nil
	}
}

func evalUnary(n *UnaryExpression, ctx *Context) (any, error) {
	v, err := Eval(n.Operand, ctx)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case UnaryNot:
		return !truthy(v), nil
	case UnaryMinus:
		return -toNumber(v), nil
	case UnaryPlus:
		return toNumber(v), nil
	default:
		return nil, fmt.Errorf("expr: unknown unary operator %q", n.Op)
	}
}

func evalBinary(n *BinaryExpression, ctx *Context) (any, error) {
	// Short-circuit operators evaluate the right side only when needed.
	switch n.Op {
	case OpAnd:
		left, err := Eval(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		if !truthy(left) {
			return left, nil
		}
		return Eval(n.Right, ctx)
	case OpOr:
		left, err := Eval(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		if truthy(left) {
			return left, nil
		}
		return Eval(n.Right, ctx)
	case OpNullish:
		left, err := Eval(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		if left != nil {
			return left, nil
		}
		return Eval(n.Right, ctx)
	}

	left, err := Eval(n.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := Eval(n.Right, ctx)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case OpAdd:
		ls, lok := left.(string)
		rs, rok := right.(string)
		if lok && rok {
			return ls + rs, nil
		}
		if lok || rok {
			// JS-like concat when either side is a string.
			return toStringCoerce(left) + toStringCoerce(right), nil
		}
		return toNumber(left) + toNumber(right), nil
	case OpSub:
		return toNumber(left) - toNumber(right), nil
	case OpMul:
		return toNumber(left) * toNumber(right), nil
	case OpDiv:
		return toNumber(left) / toNumber(right), nil
	case OpMod:
		return math.Mod(toNumber(left), toNumber(right)), nil
	case OpStrictEq:
		return strictEquals(left, right), nil
	case OpStrictNeq:
		return !strictEquals(left, right), nil
	case OpEq:
		return looseEquals(left, right), nil
	case OpNotEq:
		return !looseEquals(left, right), nil
	case OpLt:
		return compare(left, right) < 0, nil
	case OpGt:
		return compare(left, right) > 0, nil
	case OpLte:
		return compare(left, right) <= 0, nil
	case OpGte:
		return compare(left, right) >= 0, nil
	default:
		return nil, fmt.Errorf("expr: unknown binary operator %q", n.Op)
	}
}

func evalCall(n *CallExpression, ctx *Context) (any, error) {
	ident, ok := n.Callee.(*Identifier)
	if !ok {
		return nil, fmt.Errorf("expr: direct function calls only: method-style calls are not allowed")
	}

	fn, ok := ctx.Functions[ident.Name]
	if !ok {
		return nil, fmt.Errorf("expr: function %q is not defined", ident.Name)
	}

	args := make([]any, len(n.Arguments))
	for i, a := range n.Arguments {
		v, err := Eval(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return fn(args)
}

// truthy applies JS-like truthiness: nil, false, 0, "", NaN are falsy.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	case string:
		return x != ""
	case []any:
		return true
	case map[string]any:
		return true
	default:
		return true
	}
}

func toNumber(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return x
	case int:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func toStringCoerce(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func strictEquals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af == bf
	}
	as, asok := a.(string)
	bs, bsok := b.(string)
	if asok && bsok {
		return as == bs
	}
	ab, abok := a.(bool)
	bb, bbok := b.(bool)
	if abok && bbok {
		return ab == bb
	}
	return false
}

// looseEquals coerces operands ECMAScript-`==`-style: number/string pairs
// compare numerically, bool operands coerce to number first.
func looseEquals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if strictEquals(a, b) {
		return true
	}
	_, aIsBool := a.(bool)
	_, bIsBool := b.(bool)
	if aIsBool || bIsBool {
		return toNumber(a) == toNumber(b)
	}
	_, aIsStr := a.(string)
	_, bIsStr := b.(string)
	_, aIsNum := a.(float64)
	_, bIsNum := b.(float64)
	if (aIsStr && bIsNum) || (aIsNum && bIsStr) {
		return toNumber(a) == toNumber(b)
	}
	return false
}

func compare(a, b any) int {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}
	af, bf := toNumber(a), toNumber(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}
