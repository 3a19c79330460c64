package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, tpl string) Node {
	t.Helper()
	nodes := NewParser().Parse(tpl)
	require.Len(t, nodes, 1)
	return nodes[0]
}

func TestParseText(t *testing.T) {
	node := parseOne(t, "select * from t")
	text, ok := node.(*TextNode)
	require.True(t, ok)
	assert.Equal(t, "select * from t", text.Text)
}

func TestParseTextMergesSingleChars(t *testing.T) {
	// A lone '<' matches no structural form and is consumed one character at
	// a time into the running text node.
	node := parseOne(t, "a < b")
	text, ok := node.(*TextNode)
	require.True(t, ok)
	assert.Equal(t, "a < b", text.Text)
}

func TestParseVar(t *testing.T) {
	nodes := NewParser().Parse("where id = #{id}!")
	require.Len(t, nodes, 3)
	assert.Equal(t, "where id = ", nodes[0].(*TextNode).Text)
	assert.Equal(t, "id", nodes[1].(*VarNode).Name)
	assert.Equal(t, "!", nodes[2].(*TextNode).Text)
}

func TestParseVarTrimsName(t *testing.T) {
	node := parseOne(t, "#{ user.name }")
	assert.Equal(t, "user.name", node.(*VarNode).Name)
}

func TestParseIf(t *testing.T) {
	node := parseOne(t, `<if test="a > 1">content</if>`)
	ifNode, ok := node.(*IfNode)
	require.True(t, ok)

	bin, ok := ifNode.Test.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, OpGt, bin.Op)
	assert.Equal(t, "a", bin.Left.(*VarExpr).Path)

	require.Len(t, ifNode.Body, 1)
	assert.Equal(t, "content", ifNode.Body[0].(*TextNode).Text)
}

func TestParseForeachDefaults(t *testing.T) {
	node := parseOne(t, `<foreach item="id" collection="ids">#{id}</foreach>`)
	fe, ok := node.(*ForeachNode)
	require.True(t, ok)
	assert.Equal(t, "id", fe.Item)
	assert.Equal(t, "ids", fe.Collection)
	assert.Equal(t, "", fe.Open)
	assert.Equal(t, ",", fe.Separator)
	assert.Equal(t, "", fe.Close)
	require.Len(t, fe.Body, 1)
}

func TestParseInclude(t *testing.T) {
	nodes := NewParser().Parse(`select <include refid="cols"/> from t`)
	require.Len(t, nodes, 3)
	assert.Equal(t, "cols", nodes[1].(*IncludeNode).RefID)
}

func TestParseNested(t *testing.T) {
	node := parseOne(t, `<if test="x"><foreach item="i" collection="list">#{i}</foreach></if>`)
	ifNode := node.(*IfNode)
	require.Len(t, ifNode.Body, 1)
	fe := ifNode.Body[0].(*ForeachNode)
	assert.Equal(t, "i", fe.Item)
	require.Len(t, fe.Body, 1)
}

func TestAutoCloseOnEOF(t *testing.T) {
	node := parseOne(t, `<if test="x">content`)
	ifNode, ok := node.(*IfNode)
	require.True(t, ok)
	assert.Equal(t, "x", ifNode.Test.(*VarExpr).Path)
	require.Len(t, ifNode.Body, 1)
	assert.Equal(t, "content", ifNode.Body[0].(*TextNode).Text)
}

func TestAutoCloseNestedLIFO(t *testing.T) {
	node := parseOne(t, `<if test="x"><foreach item="i" collection="l">#{i}`)
	ifNode := node.(*IfNode)
	require.Len(t, ifNode.Body, 1)
	_, ok := ifNode.Body[0].(*ForeachNode)
	assert.True(t, ok)
}

func TestMalformedMarkupBecomesText(t *testing.T) {
	node := parseOne(t, `<if test="x"> <unknown> #{ unclosed`)
	ifNode := node.(*IfNode)
	require.Len(t, ifNode.Body, 1)
	assert.Equal(t, " <unknown> #{ unclosed", ifNode.Body[0].(*TextNode).Text)
}

func TestMismatchedCloseTagIsText(t *testing.T) {
	node := parseOne(t, `<foreach item="i" collection="l"></if></foreach>`)
	fe := node.(*ForeachNode)
	require.Len(t, fe.Body, 1)
	assert.Equal(t, "</if>", fe.Body[0].(*TextNode).Text)
}

func TestBlockTrimming(t *testing.T) {
	// Block formatting: surrounding newline whitespace is trimmed.
	node := parseOne(t, "<if test=\"x\">\n  and a=1\n</if>")
	ifNode := node.(*IfNode)
	require.Len(t, ifNode.Body, 1)
	assert.Equal(t, "and a=1", ifNode.Body[0].(*TextNode).Text)

	// Inline formatting: plain spaces are preserved.
	node = parseOne(t, `<if test="x"> and a=1 </if>`)
	ifNode = node.(*IfNode)
	require.Len(t, ifNode.Body, 1)
	assert.Equal(t, " and a=1 ", ifNode.Body[0].(*TextNode).Text)
}

func TestBlockTrimmingRemovesEmptyText(t *testing.T) {
	node := parseOne(t, "<if test=\"x\">\n#{v}\n</if>")
	ifNode := node.(*IfNode)
	require.Len(t, ifNode.Body, 1)
	assert.Equal(t, "v", ifNode.Body[0].(*VarNode).Name)
}

func TestAttributeQuoting(t *testing.T) {
	// Quoted attribute values may contain '>' and single quotes work too.
	node := parseOne(t, `<if test="a > 1">x</if>`)
	_, ok := node.(*IfNode)
	assert.True(t, ok)

	node = parseOne(t, `<foreach item='i' collection='ids' open='(' separator=',' close=')'>#{i}</foreach>`)
	fe := node.(*ForeachNode)
	assert.Equal(t, "(", fe.Open)
	assert.Equal(t, ")", fe.Close)
}

func TestIfWithoutTestIsText(t *testing.T) {
	nodes := NewParser().Parse(`<if x="1">a</if>`)
	// Without a test attribute the tag does not open a frame; its characters
	// flow into text and the dangling </if> does too.
	require.Len(t, nodes, 1)
	assert.Equal(t, `<if x="1">a</if>`, nodes[0].(*TextNode).Text)
}
