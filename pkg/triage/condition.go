// Package triage implements the incident triage rule engine: a restricted
// boolean condition language evaluated against a flat context, plus the
// staged severity/escalation/drift/root-cause suggestion algorithm.
//
// The condition grammar is deliberately closed: boolean combinators (and,
// or), comparisons (==, !=, >, >=, <, <=), membership (in, not in), literal
// numbers, strings, booleans, tuples of literals, and context variable
// references. Nothing else parses; malformed rules are rejected at load
// time rather than silently skipped.
package triage

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
)

// Context is the flat variable mapping a condition is evaluated against.
// Values are strings, numbers, or booleans.
type Context map[string]any

var conditionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `'[^']*'|"[^"]*"`},
	{Name: "Number", Pattern: `[-+]?\d+(?:\.\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Operator", Pattern: `==|!=|>=|<=|>|<`},
	{Name: "Punct", Pattern: `[(),]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var conditionParser = participle.MustBuild[exprNode](
	participle.Lexer(conditionLexer),
	participle.Elide("Whitespace"),
)

// exprNode is a disjunction of conjunctions.
type exprNode struct {
	Or []*andNode `parser:"@@ ( 'or' @@ )*"`
}

type andNode struct {
	And []*comparisonNode `parser:"@@ ( 'and' @@ )*"`
}

// comparisonNode is either a bare operand (evaluated for truthiness) or an
// operand compared against another operand.
type comparisonNode struct {
	Left *operandNode `parser:"@@"`
	Rest *compRest    `parser:"@@?"`
}

type compRest struct {
	Op    *compOp      `parser:"@@"`
	Right *operandNode `parser:"@@"`
}

type compOp struct {
	NotIn bool   `parser:"  @('not' 'in')"`
	In    bool   `parser:"| @'in'"`
	Op    string `parser:"| @Operator"`
}

type operandNode struct {
	Number *float64       `parser:"  @Number"`
	Str    *string        `parser:"| @String"`
	Bool   *string        `parser:"| @('true' | 'false' | 'True' | 'False')"`
	Var    *string        `parser:"| @Ident"`
	Tuple  []*operandNode `parser:"| '(' @@ ( ',' @@ )* ','? ')'"`
}

// Condition is a parsed, reusable boolean expression.
type Condition struct {
	source string
	root   *exprNode
}

// ParseCondition parses expr into a Condition. Syntax outside the closed
// grammar fails with an UnsupportedCondition error.
func ParseCondition(expr string) (*Condition, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, apierrors.UnsupportedCondition(expr, "empty condition")
	}
	root, err := conditionParser.ParseString("", trimmed)
	if err != nil {
		return nil, apierrors.UnsupportedCondition(expr, err.Error())
	}
	return &Condition{source: trimmed, root: root}, nil
}

// String returns the original expression text.
func (c *Condition) String() string { return c.source }

// Eval evaluates the condition against ctx. A type mismatch (for example an
// ordering comparison between a string and a number, or membership against
// a non-tuple) is treated as an unsupported condition, never silently false.
func (c *Condition) Eval(ctx Context) (bool, error) {
	result, err := c.evalExpr(c.root, ctx)
	if err != nil {
		return false, err
	}
	return result, nil
}

func (c *Condition) evalExpr(node *exprNode, ctx Context) (bool, error) {
	for _, and := range node.Or {
		matched, err := c.evalAnd(and, ctx)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

func (c *Condition) evalAnd(node *andNode, ctx Context) (bool, error) {
	for _, cmp := range node.And {
		matched, err := c.evalComparison(cmp, ctx)
		if err != nil {
			return false, err
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

func (c *Condition) evalComparison(node *comparisonNode, ctx Context) (bool, error) {
	left, err := c.evalOperand(node.Left, ctx)
	if err != nil {
		return false, err
	}

	if node.Rest == nil {
		return truthy(left), nil
	}

	right, err := c.evalOperand(node.Rest.Right, ctx)
	if err != nil {
		return false, err
	}

	op := node.Rest.Op
	switch {
	case op.NotIn:
		contained, err := c.contains(left, right)
		return !contained, err
	case op.In:
		return c.contains(left, right)
	}

	switch op.Op {
	case "==":
		return looseEqual(left, right), nil
	case "!=":
		return !looseEqual(left, right), nil
	case ">", ">=", "<", "<=":
		return c.ordered(op.Op, left, right)
	}
	return false, apierrors.UnsupportedCondition(c.source, fmt.Sprintf("operator %q", op.Op))
}

func (c *Condition) evalOperand(node *operandNode, ctx Context) (any, error) {
	switch {
	case node.Number != nil:
		return *node.Number, nil
	case node.Str != nil:
		return unquote(*node.Str), nil
	case node.Bool != nil:
		return strings.EqualFold(*node.Bool, "true"), nil
	case node.Var != nil:
		// Missing variables evaluate as absent (nil), matching nothing.
		return normalize(ctx[*node.Var]), nil
	case node.Tuple != nil:
		items := make([]any, 0, len(node.Tuple))
		for _, el := range node.Tuple {
			v, err := c.evalOperand(el, ctx)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	}
	return nil, apierrors.UnsupportedCondition(c.source, "empty operand")
}

func (c *Condition) contains(needle, haystack any) (bool, error) {
	items, ok := haystack.([]any)
	if !ok {
		return false, apierrors.UnsupportedCondition(c.source, "membership requires a tuple on the right-hand side")
	}
	for _, item := range items {
		if looseEqual(needle, item) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Condition) ordered(op string, left, right any) (bool, error) {
	ln, lok := left.(float64)
	rn, rok := right.(float64)
	if lok && rok {
		switch op {
		case ">":
			return ln > rn, nil
		case ">=":
			return ln >= rn, nil
		case "<":
			return ln < rn, nil
		case "<=":
			return ln <= rn, nil
		}
	}

	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		switch op {
		case ">":
			return ls > rs, nil
		case ">=":
			return ls >= rs, nil
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		}
	}

	return false, apierrors.UnsupportedCondition(c.source,
		fmt.Sprintf("cannot order %T against %T", left, right))
}

// normalize coerces context values to the evaluator's canonical types:
// all numeric kinds become float64.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case uint:
		return float64(n)
	default:
		return v
	}
}

func looseEqual(left, right any) bool {
	return normalize(left) == normalize(right)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

// unquote strips the single or double quotes the lexer guarantees around a
// string token.
func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}
