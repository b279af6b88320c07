package expr

import (
	"encoding/json"
	"fmt"
)

// SegmentKind distinguishes literal text from an embedded expression in a
// template string.
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentExpression
)

// Segment is one piece of a segmented template, with byte-offset source
// positions into the original string for error reporting.
type Segment struct {
	Kind  SegmentKind
	Value string // raw text, or the expression source (without braces)
	Start int
	End   int
}

// Segment scans a template string into an ordered sequence of text and
// expression segments. `\{{` is a literal `{{` and never
// opens an expression. Scanning skips over quoted string literals inside
// an opened expression so that `}}` within a quoted value does not
// prematurely close it. An opening `{{` with no matching `}}` yields a
// single trailing text segment. Adjacent literal text, including an
// escaped `{{`, is merged into one text segment.
func Segment(input string) []Segment {
	var segs []Segment
	i := 0
	textStart := 0
	n := len(input)

	appendText := func(s Segment) {
		if k := len(segs) - 1; k >= 0 && segs[k].Kind == SegmentText && segs[k].End == s.Start {
			segs[k].Value += s.Value
			segs[k].End = s.End
			return
		}
		segs = append(segs, s)
	}
	flushText := func(end int) {
		if end > textStart {
			appendText(Segment{Kind: SegmentText, Value: input[textStart:end], Start: textStart, End: end})
		}
	}

	for i < n {
		if input[i] == '\\' && i+2 < n && input[i+1] == '{' && input[i+2] == '{' {
			// \{{ -> literal {{. Flush preceding text including the
			// escaped braces as literal content, skipping the backslash.
			flushText(i)
			appendText(Segment{Kind: SegmentText, Value: "{{", Start: i, End: i + 3})
			i += 3
			textStart = i
			continue
		}

		if i+1 < n && input[i] == '{' && input[i+1] == '{' {
			openStart := i
			exprStart := i + 2
			j := exprStart
			closed := -1
			for j < n {
				c := input[j]
				if c == '\'' || c == '"' {
					quote := c
					j++
					for j < n && input[j] != quote {
						if input[j] == '\\' && j+1 < n {
							j += 2
							continue
						}
						j++
					}
					if j < n {
						j++ // consume closing quote
					}
					continue
				}
				if c == '}' && j+1 < n && input[j+1] == '}' {
					closed = j
					break
				}
				j++
			}

			if closed == -1 {
				// Unterminated expression: remainder becomes one text segment.
				flushText(openStart)
				appendText(Segment{Kind: SegmentText, Value: input[openStart:], Start: openStart, End: n})
				return segs
			}

			flushText(openStart)
			segs = append(segs, Segment{
				Kind:  SegmentExpression,
				Value: input[exprStart:closed],
				Start: openStart,
				End:   closed + 2,
			})
			i = closed + 2
			textStart = i
			continue
		}

		i++
	}

	flushText(n)
	return segs
}

// RenderTemplate renders a template by concatenating segment renderings.
// Absent values render as empty string; non-primitive values render as
// canonical JSON; primitives render via string coercion. Evaluation
// errors are re-raised carrying the full template and the failing
// segment's position span.
func RenderTemplate(template string, ctx *Context) (string, error) {
	segs := Segment(template)
	var out []byte

	for _, seg := range segs {
		switch seg.Kind {
		case SegmentText:
			out = append(out, seg.Value...)
		case SegmentExpression:
			node, err := Parse(seg.Value)
			if err != nil {
				return "", withTemplateContext(err, seg, template)
			}
			val, err := Eval(node, ctx)
			if err != nil {
				return "", withTemplateContext(err, seg, template)
			}
			out = append(out, renderValue(val)...)
		}
	}
	return string(out), nil
}

func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64, bool:
		return toStringCoerce(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// TemplateError decorates an evaluation or parse error with the template
// position span "re-raised with added template context".
type TemplateError struct {
	Cause    error
	Template string
	Expr     string
	Start    int
	End      int
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("expr template error at [%d:%d] in %q: %v", e.Start, e.End, e.Template, e.Cause)
}

func (e *TemplateError) Unwrap() error { return e.Cause }

func withTemplateContext(err error, seg Segment, template string) error {
	return &TemplateError{Cause: err, Template: template, Expr: seg.Value, Start: seg.Start, End: seg.End}
}

// Evaluate is a convenience wrapper parsing and evaluating a single bare
// expression (used for predicates: conditions, break conditions, merge
// expressions) rather than a whole template.
func Evaluate(expression string, ctx *Context) (any, error) {
	node, err := Parse(expression)
	if err != nil {
		return nil, err
	}
	return Eval(node, ctx)
}
