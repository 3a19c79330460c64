package template

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynsql/dynsql/internal/value"
)

func question(seq int, name string) string { return "?" }

func dollar(seq int, name string) string { return "$" + strconv.Itoa(seq) }

func renderString(t *testing.T, tpl string, vars map[string]value.Value) *Rendered {
	t.Helper()
	nodes := NewParser().Parse(tpl)
	out, err := Render(nodes, value.MapValue(vars), question, nil)
	require.NoError(t, err)
	return out
}

func TestRenderInjectionSafety(t *testing.T) {
	hostile := `'; DROP TABLE t; --`
	out := renderString(t, "select * from t where name = #{name}", map[string]value.Value{
		"name": value.StringValue(hostile),
	})
	assert.Equal(t, "select * from t where name = ?", out.SQL)
	require.Len(t, out.Params, 1)
	assert.Equal(t, "name", out.Params[0].Name)
	assert.True(t, out.Params[0].Value.Equal(value.StringValue(hostile)))
	assert.NotContains(t, out.SQL, "DROP")
}

func TestRenderConditional(t *testing.T) {
	tpl := `select * from t where 1=1<if test="active"> and status=1</if>`

	out := renderString(t, tpl, map[string]value.Value{"active": value.BoolValue(true)})
	assert.Equal(t, "select * from t where 1=1 and status=1", out.SQL)

	out = renderString(t, tpl, map[string]value.Value{"active": value.BoolValue(false)})
	assert.Equal(t, "select * from t where 1=1", out.SQL)

	// Absent variable behaves like false.
	out = renderString(t, tpl, nil)
	assert.Equal(t, "select * from t where 1=1", out.SQL)
}

func TestRenderForeach(t *testing.T) {
	tpl := `id in <foreach item="id" collection="ids" open="(" separator="," close=")">#{id}</foreach>`
	out := renderString(t, tpl, map[string]value.Value{
		"ids": value.ListValue(Value64(1, 2, 3)),
	})
	assert.Equal(t, "id in (?,?,?)", out.SQL)
	require.Len(t, out.Params, 3)
	for i, want := range []int64{1, 2, 3} {
		assert.Equal(t, "id", out.Params[i].Name)
		assert.True(t, out.Params[i].Value.Equal(value.Int64Value(want)))
	}
}

// Value64 builds a list of int64 values.
func Value64(ns ...int64) []value.Value {
	out := make([]value.Value, len(ns))
	for i, n := range ns {
		out[i] = value.Int64Value(n)
	}
	return out
}

func TestRenderForeachEmpty(t *testing.T) {
	tpl := `<foreach item="id" collection="ids" open="(" separator="," close=")">#{id}</foreach>`
	out := renderString(t, tpl, map[string]value.Value{"ids": value.ListValue(nil)})
	assert.Equal(t, "", out.SQL)
	assert.Empty(t, out.Params)

	// Non-list collections contribute nothing either.
	out = renderString(t, tpl, map[string]value.Value{"ids": value.Int64Value(1)})
	assert.Equal(t, "", out.SQL)
}

func TestRenderForeachSequencesPlaceholders(t *testing.T) {
	tpl := `update t set a=#{a} where id in <foreach item="id" collection="ids" open="(" separator="," close=")">#{id}</foreach>`
	nodes := NewParser().Parse(tpl)
	out, err := Render(nodes, value.MapValue(map[string]value.Value{
		"a":   value.StringValue("x"),
		"ids": value.ListValue(Value64(7, 8)),
	}), dollar, nil)
	require.NoError(t, err)
	assert.Equal(t, "update t set a=$1 where id in ($2,$3)", out.SQL)
}

func TestRenderNestedForeachShadowing(t *testing.T) {
	tpl := `<foreach item="row" collection="rows" separator=";"><foreach item="v" collection="row" separator=",">#{v}</foreach></foreach>`
	out := renderString(t, tpl, map[string]value.Value{
		"rows": value.ListValue([]value.Value{
			value.ListValue(Value64(1, 2)),
			value.ListValue(Value64(3)),
		}),
	})
	assert.Equal(t, "?,?;?", out.SQL)
	require.Len(t, out.Params, 3)
}

func TestRenderInclude(t *testing.T) {
	cols := NewParser().Parse("id, name")
	include := func(refid string) ([]Node, bool) {
		if refid == "cols" {
			return cols, true
		}
		return nil, false
	}
	nodes := NewParser().Parse(`select <include refid="cols"/> from t where id=#{id}`)
	out, err := Render(nodes, value.MapValue(map[string]value.Value{"id": value.Int64Value(1)}), question, include)
	require.NoError(t, err)
	assert.Equal(t, "select id, name from t where id=?", out.SQL)

	// Unresolvable references abort the render.
	nodes = NewParser().Parse(`select <include refid="missing"/> from t`)
	_, err = Render(nodes, value.NullValue, question, include)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestRenderBlankLineCollapsing(t *testing.T) {
	tpl := "select * from t where 1=1\n<if test=\"active\">\nand status=1\n</if>\norder by id"

	out := renderString(t, tpl, map[string]value.Value{"active": value.BoolValue(true)})
	assert.Equal(t, "select * from t where 1=1\nand status=1\norder by id", out.SQL)

	// The skipped block leaves no blank line behind.
	out = renderString(t, tpl, map[string]value.Value{"active": value.BoolValue(false)})
	assert.Equal(t, "select * from t where 1=1\norder by id", out.SQL)
}

func TestRenderInlineSpacingPreserved(t *testing.T) {
	tpl := `a <if test="x">b</if> c`
	out := renderString(t, tpl, map[string]value.Value{"x": value.BoolValue(false)})
	assert.Equal(t, "a  c", out.SQL)
}

func TestCache(t *testing.T) {
	t.Cleanup(Clear)
	nodes := Cached("ns.stmt", "select #{id}")
	again := Cached("ns.stmt", "select #{id}")
	require.Len(t, nodes, 2)
	assert.Same(t, nodes[0], again[0])

	got, ok := Lookup("ns.stmt")
	require.True(t, ok)
	assert.Len(t, got, 2)

	Clear()
	_, ok = Lookup("ns.stmt")
	assert.False(t, ok)
}
