// Package template implements the dynamic SQL templating engine: a lenient
// parser from template text to an AST, an evaluator for the boolean test
// expressions carried by <if> tags, and a renderer that walks the AST against
// bound arguments to produce final SQL plus an ordered parameter list.
package template

import "github.com/dynsql/dynsql/internal/value"

// Node is one node of a parsed template. Nodes are immutable once built and
// are shared between renders through the AST cache.
type Node interface {
	node()
}

// TextNode is a literal span of SQL text.
type TextNode struct {
	Text string
}

// VarNode is a #{name} interpolation. At render time the resolved value goes
// into the parameter list and a driver placeholder goes into the SQL.
type VarNode struct {
	Name string
}

// IncludeNode references another statement's AST by id.
type IncludeNode struct {
	RefID string
}

// IfNode renders its body only when the test expression evaluates true.
type IfNode struct {
	Test Expr
	Body []Node
}

// ForeachNode renders its body once per element of a list-valued collection.
type ForeachNode struct {
	Item       string
	Collection string
	Open       string
	Separator  string
	Close      string
	Body       []Node
}

func (*TextNode) node()    {}
func (*VarNode) node()     {}
func (*IncludeNode) node() {}
func (*IfNode) node()      {}
func (*ForeachNode) node() {}

// Expr is a parsed test expression: a literal, a dotted variable path, or a
// binary comparison/logical operation.
type Expr interface {
	expr()
}

// LiteralExpr holds a constant parsed from the test attribute.
type LiteralExpr struct {
	Value value.Value
}

// VarExpr resolves a dotted path against the render context.
type VarExpr struct {
	Path string
}

// BinaryExpr combines two sub-expressions with a comparison or logical
// operator.
type BinaryExpr struct {
	Op    Op
	Left  Expr
	Right Expr
}

func (*LiteralExpr) expr() {}
func (*VarExpr) expr()     {}
func (*BinaryExpr) expr()  {}

// Op enumerates the supported binary operators.
type Op int

const (
	OpOr Op = iota
	OpAnd
	OpEq
	OpNe
	OpGt
	OpGe
	OpLt
	OpLe
)
