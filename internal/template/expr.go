package template

import (
	"math"
	"strconv"
	"strings"

	"github.com/dynsql/dynsql/internal/value"
)

// parseTest parses the test attribute of an <if> tag. Precedence, loosest
// first: or > and > comparison > atom.
//
// The splitter matches the literal substrings " or " and " and ", so those
// words appearing inside quoted string literals are misparsed. This is a
// known limitation carried over deliberately; tests rarely compare prose.
func parseTest(input string) Expr {
	parts := strings.Split(input, " or ")
	if len(parts) > 1 {
		expr := parseAndExpr(parts[0])
		for _, part := range parts[1:] {
			expr = &BinaryExpr{Op: OpOr, Left: expr, Right: parseAndExpr(part)}
		}
		return expr
	}
	return parseAndExpr(input)
}

func parseAndExpr(input string) Expr {
	parts := strings.Split(input, " and ")
	if len(parts) > 1 {
		expr := parseComparison(parts[0])
		for _, part := range parts[1:] {
			expr = &BinaryExpr{Op: OpAnd, Left: expr, Right: parseComparison(part)}
		}
		return expr
	}
	return parseComparison(input)
}

// comparisonOps is ordered longest first so ">=" wins over ">".
var comparisonOps = []struct {
	symbol string
	op     Op
}{
	{"!=", OpNe},
	{"==", OpEq},
	{">=", OpGe},
	{"<=", OpLe},
	{">", OpGt},
	{"<", OpLt},
}

func parseComparison(input string) Expr {
	for _, c := range comparisonOps {
		if left, right, ok := strings.Cut(input, c.symbol); ok {
			return &BinaryExpr{Op: c.op, Left: parseAtom(left), Right: parseAtom(right)}
		}
	}
	// Bare atom: truthiness check.
	return parseAtom(input)
}

// parseAtom parses a literal (null, true, false, quoted string, integer,
// float) or, failing all of those, a variable path.
func parseAtom(input string) Expr {
	s := strings.TrimSpace(input)
	switch s {
	case "null":
		return &LiteralExpr{Value: value.NullValue}
	case "true":
		return &LiteralExpr{Value: value.BoolValue(true)}
	case "false":
		return &LiteralExpr{Value: value.BoolValue(false)}
	}
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return &LiteralExpr{Value: value.StringValue(s[1 : len(s)-1])}
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &LiteralExpr{Value: value.Int64Value(n)}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return &LiteralExpr{Value: value.Float64Value(f)}
	}
	return &VarExpr{Path: s}
}

// floatEpsilon is the tolerance for numeric equality, 2^-52.
const floatEpsilon = 2.220446049250313e-16

// evalTest evaluates an expression to a boolean against the render context.
// A bare variable or literal is false iff it is null or boolean false.
func evalTest(expr Expr, ctx *Context) bool {
	switch e := expr.(type) {
	case *BinaryExpr:
		switch e.Op {
		case OpAnd:
			return evalTest(e.Left, ctx) && evalTest(e.Right, ctx)
		case OpOr:
			return evalTest(e.Left, ctx) || evalTest(e.Right, ctx)
		}

		lv := resolveOperand(e.Left, ctx)
		rv := resolveOperand(e.Right, ctx)
		lf, lok := lv.AsFloat64()
		rf, rok := rv.AsFloat64()
		numeric := lok && rok

		switch e.Op {
		case OpEq:
			if numeric {
				return math.Abs(lf-rf) < floatEpsilon
			}
			return lv.Equal(rv)
		case OpNe:
			if numeric {
				return math.Abs(lf-rf) > floatEpsilon
			}
			return !lv.Equal(rv)
		case OpGt:
			return numeric && lf > rf
		case OpGe:
			return numeric && lf >= rf
		case OpLt:
			return numeric && lf < rf
		case OpLe:
			return numeric && lf <= rf
		}
		return false
	case *LiteralExpr:
		return truthy(e.Value)
	case *VarExpr:
		return truthy(ctx.Lookup(e.Path))
	}
	return false
}

// resolveOperand resolves a comparison operand to a Value. A nested binary
// expression contributes its boolean result.
func resolveOperand(expr Expr, ctx *Context) value.Value {
	switch e := expr.(type) {
	case *LiteralExpr:
		return e.Value
	case *VarExpr:
		return ctx.Lookup(e.Path)
	case *BinaryExpr:
		return value.BoolValue(evalTest(e, ctx))
	}
	return value.NullValue
}

// truthy is false only for null and boolean false; zero and the empty string
// are truthy.
func truthy(v value.Value) bool {
	if v.IsNull() {
		return false
	}
	if b, ok := v.AsBool(); ok {
		return b
	}
	return true
}
