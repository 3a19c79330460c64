package template

import (
	"fmt"
	"strings"

	"github.com/dynsql/dynsql/internal/value"
)

// Param is one ordered SQL parameter produced by a render.
type Param struct {
	Name  string
	Value value.Value
}

// PlaceholderFunc supplies the driver placeholder emitted in place of a
// variable, e.g. "?", "$2" or ":name". seq starts at 1.
type PlaceholderFunc func(seq int, name string) string

// IncludeFunc resolves an <include refid="..."> reference to a cached AST.
type IncludeFunc func(refid string) ([]Node, bool)

// Rendered is the outcome of a render pass: final SQL text and the ordered
// parameter list. Bound values never appear in the SQL text; they reach the
// driver only through Params.
type Rendered struct {
	SQL    string
	Params []Param
}

// renderer accumulates one render pass.
type renderer struct {
	sql         []byte
	params      []Param
	placeholder PlaceholderFunc
	include     IncludeFunc
}

// Render walks the AST depth first against the root argument object,
// producing SQL text plus ordered parameters.
func Render(nodes []Node, root value.Value, placeholder PlaceholderFunc, include IncludeFunc) (*Rendered, error) {
	r := &renderer{placeholder: placeholder, include: include}
	ctx := NewContext(root)
	if err := r.render(nodes, ctx); err != nil {
		return nil, err
	}
	return &Rendered{SQL: string(r.sql), Params: r.params}, nil
}

func (r *renderer) render(nodes []Node, ctx *Context) error {
	for _, node := range nodes {
		switch n := node.(type) {
		case *TextNode:
			r.appendText(n.Text)
		case *VarNode:
			v := ctx.Lookup(n.Name)
			r.params = append(r.params, Param{Name: n.Name, Value: v})
			r.sql = append(r.sql, r.placeholder(len(r.params), n.Name)...)
		case *IncludeNode:
			if r.include == nil {
				return fmt.Errorf("cannot include %q: no include resolver", n.RefID)
			}
			sub, ok := r.include(n.RefID)
			if !ok {
				return fmt.Errorf("cannot include %q: no such statement", n.RefID)
			}
			if err := r.render(sub, ctx); err != nil {
				return err
			}
		case *IfNode:
			if evalTest(n.Test, ctx) {
				if err := r.render(n.Body, ctx); err != nil {
					return err
				}
			}
		case *ForeachNode:
			if err := r.renderForeach(n, ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *renderer) renderForeach(n *ForeachNode, ctx *Context) error {
	items := ctx.Lookup(n.Collection).Items()
	if len(items) == 0 {
		// Non-list or empty collection contributes nothing.
		return nil
	}
	r.sql = append(r.sql, n.Open...)
	for i, item := range items {
		if i > 0 {
			r.sql = append(r.sql, n.Separator...)
		}
		ctx.Push(n.Item, item)
		err := r.render(n.Body, ctx)
		ctx.Pop()
		if err != nil {
			return err
		}
	}
	r.sql = append(r.sql, n.Close...)
	return nil
}

// appendText appends a literal span. When the span begins with a newline and
// the buffer already ends in a whitespace run containing a newline, the
// buffer's trailing whitespace is trimmed first, collapsing the blank lines
// left behind by block tags without touching intentional inline spacing.
func (r *renderer) appendText(text string) {
	if strings.HasPrefix(text, "\n") {
		i := len(r.sql)
		for i > 0 && isSpace(r.sql[i-1]) {
			i--
		}
		if strings.ContainsRune(string(r.sql[i:]), '\n') {
			r.sql = r.sql[:i]
		}
	}
	r.sql = append(r.sql, text...)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
