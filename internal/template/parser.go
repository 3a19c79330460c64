package template

import (
	"strings"
)

// tagFrame records an open block tag while its body is being accumulated.
type tagFrame struct {
	// node carries the attributes of the open tag; its Body is attached when
	// the tag closes.
	node Node
}

// Parser scans template text into a sequence of root-level nodes. It is a
// single forward pass with no backtracking over consumed text; malformed
// markup degrades to literal text rather than failing, so parsing never
// returns an error.
type Parser struct {
	input string
	pos   int
	// nodes holds one buffer of accumulated children per open-tag nesting
	// depth. nodes[0] is the root level.
	nodes [][]Node
	tags  []tagFrame
}

// NewParser returns a reference to a new parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse scans the input and returns the root-level nodes. Tags still open at
// the end of input are closed automatically in LIFO order.
func (p *Parser) Parse(input string) []Node {
	p.input = input
	p.pos = 0
	p.nodes = [][]Node{nil}
	p.tags = nil

	for p.pos < len(p.input) {
		if p.parseTag() || p.parseVar() {
			continue
		}
		p.parseText()
	}
	p.closeRemainingTags()

	return p.nodes[0]
}

// parseTag attempts to consume a structural tag at the current position:
// closing tags first, then the open tags and <include>. It returns false when
// the position does not start a recognised tag, leaving the parser unchanged.
func (p *Parser) parseTag() bool {
	rest := p.input[p.pos:]

	if strings.HasPrefix(rest, "</") {
		return p.parseCloseTag(rest)
	}
	if strings.HasPrefix(rest, "<if ") {
		return p.parseIfTag(rest)
	}
	if strings.HasPrefix(rest, "<foreach ") {
		return p.parseForeachTag(rest)
	}
	if strings.HasPrefix(rest, "<include") {
		return p.parseIncludeTag(rest)
	}
	return false
}

func (p *Parser) parseIfTag(rest string) bool {
	end, ok := findTagEnd(rest)
	if !ok {
		return false
	}
	attrs := parseAttributes(rest[len("<if "):end])
	test, ok := attrs["test"]
	if !ok {
		return false
	}
	p.openTag(&IfNode{Test: parseTest(test)})
	p.pos += end + 1
	return true
}

func (p *Parser) parseForeachTag(rest string) bool {
	end, ok := findTagEnd(rest)
	if !ok {
		return false
	}
	attrs := parseAttributes(rest[len("<foreach "):end])
	item, okItem := attrs["item"]
	collection, okColl := attrs["collection"]
	if !okItem || !okColl {
		return false
	}
	separator, ok := attrs["separator"]
	if !ok {
		separator = ","
	}
	p.openTag(&ForeachNode{
		Item:       item,
		Collection: collection,
		Open:       attrs["open"],
		Separator:  separator,
		Close:      attrs["close"],
	})
	p.pos += end + 1
	return true
}

func (p *Parser) parseIncludeTag(rest string) bool {
	end, ok := findTagEnd(rest)
	if !ok {
		return false
	}
	attrs := parseAttributes(rest[len("<include"):end])
	refid, ok := attrs["refid"]
	if !ok {
		return false
	}
	p.append(&IncludeNode{RefID: refid})
	p.pos += end + 1
	return true
}

func (p *Parser) parseCloseTag(rest string) bool {
	if len(p.tags) == 0 {
		return false
	}
	top := p.tags[len(p.tags)-1].node

	switch top.(type) {
	case *IfNode:
		if !strings.HasPrefix(rest, "</if>") {
			return false
		}
		p.closeTag()
		p.pos += len("</if>")
		return true
	case *ForeachNode:
		if !strings.HasPrefix(rest, "</foreach>") {
			return false
		}
		p.closeTag()
		p.pos += len("</foreach>")
		return true
	}
	return false
}

// parseVar attempts to consume a #{name} interpolation.
func (p *Parser) parseVar() bool {
	rest := p.input[p.pos:]
	if !strings.HasPrefix(rest, "#{") {
		return false
	}
	end := strings.IndexByte(rest, '}')
	if end < 0 {
		return false
	}
	name := strings.TrimSpace(rest[2:end])
	if name == "" {
		return false
	}
	p.append(&VarNode{Name: name})
	p.pos += end + 1
	return true
}

// parseText consumes literal text up to the next '<' or "#{". When the
// current character itself failed to start a structural form, exactly one
// character is consumed so unknown tags flow into the text as-is.
func (p *Parser) parseText() {
	rest := p.input[p.pos:]
	stop := len(rest)
	if i := strings.IndexByte(rest, '<'); i >= 0 && i < stop {
		stop = i
	}
	if i := strings.Index(rest, "#{"); i >= 0 && i < stop {
		stop = i
	}
	if stop == 0 {
		stop = 1
	}
	p.appendText(rest[:stop])
	p.pos += stop
}

func (p *Parser) openTag(node Node) {
	p.tags = append(p.tags, tagFrame{node: node})
	p.nodes = append(p.nodes, nil)
}

// closeTag pops the innermost open tag, trims its body per the block
// whitespace rule, and appends the finished node to the parent buffer.
func (p *Parser) closeTag() {
	frame := p.tags[len(p.tags)-1]
	p.tags = p.tags[:len(p.tags)-1]

	body := p.nodes[len(p.nodes)-1]
	p.nodes = p.nodes[:len(p.nodes)-1]
	body = trimBody(body)

	switch n := frame.node.(type) {
	case *IfNode:
		n.Body = body
	case *ForeachNode:
		n.Body = body
	}
	p.append(frame.node)
}

func (p *Parser) closeRemainingTags() {
	for len(p.tags) > 0 {
		p.closeTag()
	}
}

func (p *Parser) append(node Node) {
	p.nodes[len(p.nodes)-1] = append(p.nodes[len(p.nodes)-1], node)
}

// appendText merges consecutive text runs into one node.
func (p *Parser) appendText(text string) {
	buf := p.nodes[len(p.nodes)-1]
	if len(buf) > 0 {
		if last, ok := buf[len(buf)-1].(*TextNode); ok {
			last.Text += text
			return
		}
	}
	p.append(&TextNode{Text: text})
}

// trimBody trims leading whitespace from the first text node and trailing
// whitespace from the last, but only when the whitespace run contains a
// newline. Block-style tags written across lines lose their surrounding blank
// lines; inline tags keep their spacing. Text nodes emptied by trimming are
// removed.
func trimBody(body []Node) []Node {
	if len(body) > 0 {
		if first, ok := body[0].(*TextNode); ok {
			trimmed := strings.TrimLeft(first.Text, " \t\r\n")
			ws := first.Text[:len(first.Text)-len(trimmed)]
			if strings.ContainsRune(ws, '\n') {
				if trimmed == "" {
					body = body[1:]
				} else {
					first.Text = trimmed
				}
			}
		}
	}
	if len(body) > 0 {
		if last, ok := body[len(body)-1].(*TextNode); ok {
			trimmed := strings.TrimRight(last.Text, " \t\r\n")
			ws := last.Text[len(trimmed):]
			if strings.ContainsRune(ws, '\n') {
				if trimmed == "" {
					body = body[:len(body)-1]
				} else {
					last.Text = trimmed
				}
			}
		}
	}
	return body
}

// findTagEnd returns the index of the first '>' that is not inside a quoted
// attribute value.
func findTagEnd(s string) (int, bool) {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i, true
		}
	}
	return 0, false
}

// parseAttributes scans key="value" or key='value' pairs from the inside of a
// tag. Malformed runs are skipped; quoted values may contain '>'.
func parseAttributes(content string) map[string]string {
	attrs := map[string]string{}
	rest := content
	for rest != "" {
		rest = strings.TrimLeft(rest, " \t\r\n")
		if rest == "" {
			break
		}

		keyEnd := strings.IndexFunc(rest, func(r rune) bool {
			return !isAttrNameChar(r)
		})
		if keyEnd < 0 {
			keyEnd = len(rest)
		}
		if keyEnd == 0 {
			rest = rest[1:]
			continue
		}
		key := rest[:keyEnd]
		rest = strings.TrimLeft(rest[keyEnd:], " \t\r\n")

		if !strings.HasPrefix(rest, "=") {
			continue
		}
		rest = strings.TrimLeft(rest[1:], " \t\r\n")
		if rest == "" {
			break
		}
		quote := rest[0]
		if quote != '"' && quote != '\'' {
			continue
		}
		rest = rest[1:]
		end := strings.IndexByte(rest, quote)
		if end < 0 {
			break
		}
		attrs[key] = rest[:end]
		rest = rest[end+1:]
	}
	return attrs
}

func isAttrNameChar(r rune) bool {
	return r == '_' || r == '-' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
