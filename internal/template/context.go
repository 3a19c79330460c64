package template

import (
	"strings"
	"unicode"

	"github.com/dynsql/dynsql/internal/value"
)

// Context resolves dotted-path names during a single render pass. Resolution
// order: exact match among loop-local bindings (most recently pushed first,
// so nested loops shadow), exact key on the root object, then a dotted-path
// walk from a local or root head segment. When all of that fails each path
// segment is retried in its snake_case/camelCase converted form, tolerating
// host field names written against SQL-style column names. Lookup never
// fails; an unresolvable name is null.
type Context struct {
	root   value.Value
	locals []local
}

type local struct {
	name string
	val  value.Value
}

// NewContext returns a context over the root argument object.
func NewContext(root value.Value) *Context {
	return &Context{root: root}
}

// Push adds a loop-local binding. Every Push must be balanced by a Pop, also
// across nested loops.
func (c *Context) Push(name string, v value.Value) {
	c.locals = append(c.locals, local{name: name, val: v})
}

// Pop removes the most recent loop-local binding.
func (c *Context) Pop() {
	c.locals = c.locals[:len(c.locals)-1]
}

// Lookup resolves a dotted-path name to a value, or null.
func (c *Context) Lookup(name string) value.Value {
	if v, ok := c.resolve(name); ok {
		return v
	}
	if alt := convertPath(name); alt != name {
		if v, ok := c.resolve(alt); ok {
			return v
		}
	}
	return value.NullValue
}

func (c *Context) resolve(name string) (value.Value, bool) {
	if v, ok := c.scope(name); ok {
		return v, true
	}
	if head, rest, ok := strings.Cut(name, "."); ok {
		if headVal, ok := c.scope(head); ok {
			return walkPath(headVal, rest)
		}
	}
	return value.NullValue, false
}

// scope finds an exact name among the locals (searched backwards for
// shadowing) or on the root object.
func (c *Context) scope(name string) (value.Value, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return c.locals[i].val, true
		}
	}
	return c.root.Index(name)
}

// walkPath follows the remaining dot-separated segments through nested maps.
func walkPath(current value.Value, path string) (value.Value, bool) {
	for _, part := range strings.Split(path, ".") {
		next, ok := current.Index(part)
		if !ok {
			return value.NullValue, false
		}
		current = next
	}
	return current, true
}

// convertPath flips the naming convention of every path segment: segments
// containing an underscore become camelCase, the rest become snake_case.
func convertPath(name string) string {
	segments := strings.Split(name, ".")
	for i, seg := range segments {
		if strings.ContainsRune(seg, '_') {
			segments[i] = snakeToCamel(seg)
		} else {
			segments[i] = camelToSnake(seg)
		}
	}
	return strings.Join(segments, ".")
}

func snakeToCamel(s string) string {
	var b strings.Builder
	upper := false
	for _, r := range s {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func camelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
