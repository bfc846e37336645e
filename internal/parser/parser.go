package parser

import (
	"github.com/donaldgifford/deflint/internal/source"
)

// Keywords that open a construct closed by end when they start a statement.
var blockKeywords = map[string]bool{
	"class":  true,
	"module": true,
	"if":     true,
	"unless": true,
	"while":  true,
	"until":  true,
	"case":   true,
	"begin":  true,
	"for":    true,
}

// Loop headers may carry an optional do that belongs to the loop itself.
var loopKeywords = map[string]bool{
	"while": true,
	"until": true,
	"for":   true,
}

// Parse converts Ruby source into a syntax tree. It never fails: constructs
// it cannot recognize become statements, and unterminated definitions are
// returned without their end location.
func Parse(buf *source.Buffer) *Node {
	p := &state{
		buf:  buf,
		toks: tokenize(buf.Source()),
	}
	root := NewNode(KindProgram, source.Range{Start: 0, End: buf.Len()})
	root.Children = p.statements(false)
	return root
}

// state tracks the parser position in the token stream.
type state struct {
	buf  *source.Buffer
	toks []token
	pos  int
}

func (p *state) peek(n int) token {
	if i := p.pos + n; i < len(p.toks) {
		return p.toks[i]
	}
	return p.toks[len(p.toks)-1] // EOF.
}

func (p *state) cur() token {
	return p.peek(0)
}

func (p *state) next() token {
	tok := p.cur()
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

// last returns the most recently consumed token.
func (p *state) last() token {
	if p.pos == 0 {
		return token{}
	}
	return p.toks[p.pos-1]
}

func (p *state) isKeyword(tok token, kw string) bool {
	return tok.kind == tokIdent && !tok.afterDot && tok.text == kw
}

func (p *state) isPunct(tok token, text string) bool {
	return tok.kind == tokPunct && tok.text == text
}

func (p *state) atLineEnd() bool {
	k := p.cur().kind
	return k == tokNewline || k == tokSemi || k == tokEOF
}

func (p *state) sameLine(a, b int) bool {
	return p.buf.Line(offset(a)) == p.buf.Line(offset(b))
}

// statements parses until EOF or, when untilEnd is set, until an end keyword
// which is left for the caller.
func (p *state) statements(untilEnd bool) []*Node {
	var out []*Node
	for {
		for k := p.cur().kind; k == tokNewline || k == tokSemi; k = p.cur().kind {
			p.next()
		}
		tok := p.cur()
		if tok.kind == tokEOF || (untilEnd && p.isKeyword(tok, "end")) {
			return out
		}
		out = append(out, p.statement())
	}
}

func (p *state) statement() *Node {
	tok := p.cur()
	switch {
	case p.isKeyword(tok, "def"):
		return p.def()
	case tok.kind == tokIdent && !tok.afterDot && blockKeywords[tok.text]:
		return p.block()
	}
	return p.plain()
}

// plain consumes a statement up to the end of the line. Definitions and
// do-blocks found inside it become children.
func (p *state) plain() *Node {
	first := p.next()
	stmt := NewNode(KindStatement, span(first.start, first.end))
	prev := first

	for !p.atLineEnd() {
		tok := p.cur()
		switch {
		case p.isKeyword(tok, "end"):
			stmt.Loc.End = offset(prev.end)
			return stmt
		case p.isKeyword(tok, "def"):
			stmt.Children = append(stmt.Children, p.def())
		case p.isKeyword(tok, "do"):
			stmt.Children = append(stmt.Children, p.block())
		case tok.kind == tokIdent && !tok.afterDot && blockKeywords[tok.text] && opensExpression(prev):
			// x = if cond ... end
			stmt.Children = append(stmt.Children, p.block())
		default:
			p.next()
		}
		prev = p.last()
	}

	stmt.Loc.End = offset(prev.end)
	return stmt
}

// opensExpression reports whether a keyword after prev starts a value
// (x = if ...) rather than acting as a modifier (return if x, foo(1) if x).
func opensExpression(prev token) bool {
	if prev.kind != tokPunct {
		return false
	}
	switch prev.text {
	case ")", "]", "}":
		return false
	}
	return true
}

// block parses a keyword construct through its end keyword.
func (p *state) block() *Node {
	kw := p.next()
	node := NewNode(KindBlock, span(kw.start, kw.end))
	node.WithLocation(LabelKeyword, span(kw.start, kw.end))

	// Header: rest of the line. A loop's own do ends the header.
	for !p.atLineEnd() {
		tok := p.cur()
		if p.isKeyword(tok, "do") && loopKeywords[kw.text] {
			p.next()
			break
		}
		if p.isKeyword(tok, "do") || p.isKeyword(tok, "end") {
			break
		}
		p.next()
	}

	node.Children = p.statements(true)

	if end := p.cur(); p.isKeyword(end, "end") {
		p.next()
		node.WithLocation(LabelEnd, span(end.start, end.end))
	}
	node.Loc.End = offset(p.last().end)
	return node
}

// def parses def name, def self.name and endless definitions.
func (p *state) def() *Node {
	kw := p.next()
	node := NewNode(KindDef, span(kw.start, kw.end))
	node.WithLocation(LabelKeyword, span(kw.start, kw.end))

	if recv, op := p.cur(), p.peek(1); isReceiver(recv) && op.kind == tokPunct && (op.text == "." || op.text == "::") {
		p.next()
		p.next()
		node.Kind = KindDefs
		node.WithLocation(LabelOperator, span(op.start, op.end))
		node.Children = append(node.Children, NewNode(KindReceiver, span(recv.start, recv.end)))
	}

	nameEnd := kw.end
	if name, ok := p.methodName(); ok {
		node.WithLocation(LabelName, name)
		node.Children = append(node.Children, NewNode(KindName, name))
		nameEnd = int(name.End)
	}

	args := p.args(nameEnd)
	node.Children = append(node.Children, args)

	if eq := p.cur(); p.isPunct(eq, "=") {
		// Endless definition: def foo() = expr
		p.next()
		node.WithLocation(LabelAssignment, span(eq.start, eq.end))
		body := NewNode(KindBody, span(eq.end, eq.end))
		if !p.atLineEnd() {
			var expr *Node
			if tok := p.cur(); tok.kind == tokIdent && !tok.afterDot && blockKeywords[tok.text] {
				expr = p.block()
			} else {
				expr = p.plain()
			}
			body.Children = append(body.Children, expr)
			body.Loc = expr.Loc
		}
		node.Children = append(node.Children, body)
		node.Loc.End = offset(p.last().end)
		return node
	}

	bodyStart := p.last().end
	stmts := p.statements(true)
	body := NewNode(KindBody, span(bodyStart, bodyStart), stmts...)
	if len(stmts) > 0 {
		body.Loc = stmts[0].Loc.Cover(stmts[len(stmts)-1].Loc)
	}
	node.Children = append(node.Children, body)

	if end := p.cur(); p.isKeyword(end, "end") {
		p.next()
		node.WithLocation(LabelEnd, span(end.start, end.end))
	}
	node.Loc.End = offset(p.last().end)
	return node
}

func isReceiver(tok token) bool {
	return tok.kind == tokIdent
}

// methodName consumes a method name, including setter (foo=) and operator
// names ([], []=, +, <=>, ...).
func (p *state) methodName() (source.Range, bool) {
	tok := p.cur()
	switch tok.kind {
	case tokIdent:
		p.next()
		end := tok.end
		// def foo=(v): the = touches the name and is followed by a paren.
		if eq, paren := p.cur(), p.peek(1); p.isPunct(eq, "=") && eq.start == end && p.isPunct(paren, "(") {
			p.next()
			end = eq.end
		}
		return span(tok.start, end), true
	case tokLabel:
		// "def foo:" never appears in valid code; keep the name without the colon.
		p.next()
		return span(tok.start, tok.end-1), true
	case tokPunct:
		if tok.text == "(" || tok.text == "=" {
			return source.Range{}, false
		}
		p.next()
		end := tok.end
		if next := p.cur(); next.text == "@" && next.start == end {
			// Unary operators: -@, +@, !@, ~@.
			end = p.next().end
		}
		if tok.text == "[" && p.isPunct(p.cur(), "]") {
			end = p.next().end
			if p.isPunct(p.cur(), "=") && p.cur().start == end {
				end = p.next().end
			}
		}
		return span(tok.start, end), true
	}
	return source.Range{}, false
}

// args parses the parameter list following a method name.
func (p *state) args(nameEnd int) *Node {
	tok := p.cur()
	switch {
	case p.isPunct(tok, "(") && p.sameLine(nameEnd, tok.start):
		return p.parenArgs()
	case p.atLineEnd() || p.isPunct(tok, "=") || !p.sameLine(nameEnd, tok.start):
		return NewNode(KindArgs, span(nameEnd, nameEnd))
	}
	return p.bareArgs()
}

func (p *state) parenArgs() *Node {
	open := p.next()
	args := NewNode(KindArgs, span(open.start, open.end))
	args.WithLocation(LabelBegin, span(open.start, open.end))

	for {
		for p.cur().kind == tokNewline {
			p.next()
		}
		tok := p.cur()
		if tok.kind == tokEOF {
			args.Loc.End = offset(p.last().end)
			return args
		}
		if p.isPunct(tok, ")") {
			p.next()
			args.WithLocation(LabelEnd, span(tok.start, tok.end))
			args.Loc.End = offset(tok.end)
			return args
		}
		if p.isPunct(tok, ",") {
			p.next()
			continue
		}
		if arg := p.param(true); arg != nil {
			args.Children = append(args.Children, arg)
		}
	}
}

// bareArgs parses an unparenthesized parameter list. A trailing comma
// continues the list on the next line.
func (p *state) bareArgs() *Node {
	start := p.cur().start
	var params []*Node
	continued := false
	for {
		if continued {
			for p.cur().kind == tokNewline {
				p.next()
			}
		}
		if p.atLineEnd() {
			break
		}
		tok := p.cur()
		if isCloser(tok) {
			// def foo a) cannot be repaired: keep the list without
			// parameters so no rule rewrites it.
			for !p.atLineEnd() {
				p.next()
			}
			return NewNode(KindArgs, span(start, p.last().end))
		}
		if p.isPunct(tok, ",") {
			p.next()
			continued = true
			continue
		}
		continued = false
		if arg := p.param(false); arg != nil {
			params = append(params, arg)
		}
	}
	if len(params) == 0 {
		// Only separators: def foo ,
		at := p.last().end
		return NewNode(KindArgs, span(at, at))
	}
	return NewNode(KindArgs, params[0].Loc.Cover(params[len(params)-1].Loc), params...)
}

// param consumes one parameter up to a top-level comma, a closing paren (when
// parenthesized) or the end of the line (when bare). A bare parameter also
// stops at an unmatched closer.
func (p *state) param(inParens bool) *Node {
	first := p.cur()
	last := token{start: first.start, end: first.start}
	depth := 0
	for {
		tok := p.cur()
		switch {
		case tok.kind == tokEOF:
			return paramNode(first, last)
		case !inParens && depth == 0 && p.atLineEnd():
			return paramNode(first, last)
		case tok.kind == tokNewline && depth == 0:
			return paramNode(first, last)
		case tok.kind == tokPunct && depth == 0 && (tok.text == "," || (inParens && tok.text == ")")):
			return paramNode(first, last)
		case !inParens && depth == 0 && isCloser(tok):
			return paramNode(first, last)
		case tok.kind == tokPunct && (tok.text == "(" || tok.text == "[" || tok.text == "{"):
			depth++
		case isCloser(tok) && depth > 0:
			depth--
		}
		last = p.next()
	}
}

func isCloser(tok token) bool {
	return tok.kind == tokPunct && (tok.text == ")" || tok.text == "]" || tok.text == "}")
}

func paramNode(first, last token) *Node {
	if last.end <= first.start {
		return nil
	}
	return NewNode(KindArg, span(first.start, last.end))
}

func offset(i int) uint32 {
	return span(i, i).Start
}

// span builds a range from token offsets. Offsets always fit because the
// buffer length was checked when it was created.
func span(start, end int) source.Range {
	r, err := source.NewRange(start, end)
	if err != nil {
		return source.Range{}
	}
	return r
}
