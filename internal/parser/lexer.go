package parser

import "strings"

// tokenKind classifies a lexical token.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokSemi
	tokIdent  // Identifiers, keywords, constants, @ivars, $globals.
	tokLabel  // Hash label or keyword argument (name:).
	tokNumber // Numeric literal.
	tokString // String, symbol, %-literal.
	tokPunct  // Operators and delimiters.
)

type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
	// afterDot is set when the token follows . &. or :: and is therefore a
	// method name rather than a keyword.
	afterDot bool
}

// Operators longer than one byte, longest first.
var multiOps = []string{
	"**=", "<=>", "===", "<<=", ">>=", "||=", "&&=", "...",
	"**", "==", "!=", ">=", "<=", "&&", "||", "<<", ">>", "=~", "!~",
	"+=", "-=", "*=", "/=", "%=", "|=", "&=", "^=", "::", "&.", "->", "=>", "..",
}

// lexer splits source into tokens. It never fails; unknown bytes become
// single-byte punctuation.
type lexer struct {
	src  string
	pos  int
	toks []token
	// heredocs holds the terminators of heredocs opened on the current
	// line. Their bodies start after the next newline.
	heredocs []heredoc
}

type heredoc struct {
	id string
	// indented terminators are allowed by <<- and <<~.
	indented bool
}

func tokenize(src string) []token {
	lx := &lexer{src: src}
	lx.run()
	return lx.toks
}

func (lx *lexer) run() {
	lx.lineStart()
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			lx.pos++
		case c == '\\' && lx.peekByte(1) == '\n':
			lx.pos += 2 // Line continuation.
		case c == '\n':
			lx.emit(tokNewline, lx.pos, lx.pos+1)
			lx.pos++
			lx.heredocBodies()
			lx.lineStart()
		case c == '#':
			lx.skipComment()
		case c == ';':
			lx.emit(tokSemi, lx.pos, lx.pos+1)
			lx.pos++
		case isIdentStart(c):
			lx.lexIdent()
		case isDigit(c):
			lx.lexNumber()
		case c == '"' || c == '\'' || c == '`':
			lx.lexQuoted(c)
		case c == ':' && isIdentStart(lx.peekByte(1)):
			lx.lexSymbol()
		case c == ':' && (lx.peekByte(1) == '"' || lx.peekByte(1) == '\''):
			start := lx.pos
			lx.pos++
			lx.lexQuoted(lx.src[lx.pos])
			lx.toks[len(lx.toks)-1].start = start
		case c == '%' && lx.percentLiteral():
			// Consumed by percentLiteral.
		case c == '<' && lx.heredocOpener():
			// Consumed by heredocOpener.
		case c == '/' && lx.regexpAllowed():
			lx.lexRegexp()
		default:
			lx.lexPunct()
		}
	}
	lx.emit(tokEOF, len(lx.src), len(lx.src))
}

// lineStart handles constructs recognized only at the start of a line:
// =begin documentation and the __END__ data section.
func (lx *lexer) lineStart() {
	lx.skipEmbeddedDoc()
	rest := lx.src[lx.pos:]
	if !strings.HasPrefix(rest, "__END__") {
		return
	}
	if tail := rest[len("__END__"):]; tail == "" || strings.HasPrefix(tail, "\n") || strings.HasPrefix(tail, "\r\n") {
		lx.pos = len(lx.src)
	}
}

func (lx *lexer) emit(kind tokenKind, start, end int) {
	tok := token{kind: kind, text: lx.src[start:end], start: start, end: end}
	if n := len(lx.toks); n > 0 && kind == tokIdent {
		prev := lx.toks[n-1]
		tok.afterDot = prev.kind == tokPunct && (prev.text == "." || prev.text == "&." || prev.text == "::")
	}
	lx.toks = append(lx.toks, tok)
}

func (lx *lexer) peekByte(n int) byte {
	if lx.pos+n < len(lx.src) {
		return lx.src[lx.pos+n]
	}
	return 0
}

func (lx *lexer) skipComment() {
	for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
		lx.pos++
	}
}

// skipEmbeddedDoc skips =begin ... =end blocks that start at a line start.
func (lx *lexer) skipEmbeddedDoc() {
	if !strings.HasPrefix(lx.src[lx.pos:], "=begin") {
		return
	}
	for lx.pos < len(lx.src) {
		lineEnd := strings.IndexByte(lx.src[lx.pos:], '\n')
		line := lx.src[lx.pos:]
		if lineEnd >= 0 {
			line = line[:lineEnd]
		}
		lx.pos += len(line)
		if strings.HasPrefix(line, "=end") || lineEnd < 0 {
			return
		}
		lx.pos++ // Newline inside the doc.
	}
}

func (lx *lexer) lexIdent() {
	start := lx.pos
	lx.pos++
	for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
		lx.pos++
	}
	// Predicate and bang suffixes, but not the start of != or ?= style operators.
	if c := lx.peekByte(0); (c == '?' || c == '!') && lx.peekByte(1) != '=' {
		lx.pos++
	}
	// name: is a label; name:: is a scope operator.
	if lx.peekByte(0) == ':' && lx.peekByte(1) != ':' {
		lx.pos++
		lx.emit(tokLabel, start, lx.pos)
		return
	}
	lx.emit(tokIdent, start, lx.pos)
}

func (lx *lexer) lexNumber() {
	start := lx.pos
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if isIdentPart(c) || (c == '.' && isDigit(lx.peekByte(1))) {
			lx.pos++
			continue
		}
		break
	}
	lx.emit(tokNumber, start, lx.pos)
}

func (lx *lexer) lexSymbol() {
	start := lx.pos
	lx.pos++
	for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
		lx.pos++
	}
	if c := lx.peekByte(0); c == '?' || c == '!' || c == '=' {
		if lx.peekByte(1) != '=' && lx.peekByte(1) != '>' {
			lx.pos++
		}
	}
	lx.emit(tokString, start, lx.pos)
}

// lexQuoted consumes a quoted literal starting at the quote byte. Interpolated
// #{...} sections are skipped by brace depth.
func (lx *lexer) lexQuoted(quote byte) {
	start := lx.pos
	lx.pos++
	depth := 0
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\\':
			lx.pos += 2
			continue
		case quote != '\'' && c == '#' && lx.peekByte(1) == '{':
			depth++
			lx.pos += 2
			continue
		case depth > 0 && c == '}':
			depth--
		case depth == 0 && c == quote:
			lx.pos++
			lx.emit(tokString, start, lx.pos)
			return
		}
		lx.pos++
	}
	lx.pos = len(lx.src)
	lx.emit(tokString, start, lx.pos)
}

// heredocOpener consumes <<ID, <<-ID, <<~ID and their quoted forms. It
// reports false, consuming nothing, when << is an operator. A bare <<ID
// needs an upper-case identifier not glued to a preceding operand, since
// a<<b shifts.
func (lx *lexer) heredocOpener() bool {
	if lx.peekByte(1) != '<' {
		return false
	}
	start := lx.pos
	i := lx.pos + 2
	indented := false
	if c := lx.byteAt(i); c == '-' || c == '~' {
		indented = true
		i++
	}

	var id string
	switch c := lx.byteAt(i); {
	case c == '\'' || c == '"' || c == '`':
		end := strings.IndexByte(lx.src[i+1:], c)
		if end < 0 || strings.Contains(lx.src[i+1:i+1+end], "\n") {
			return false
		}
		id = lx.src[i+1 : i+1+end]
		i += end + 2
	case c == '_' || c >= 'A' && c <= 'Z' || indented && c >= 'a' && c <= 'z':
		if !indented && start > 0 {
			if p := lx.src[start-1]; isIdentPart(p) || strings.IndexByte(")]}", p) >= 0 {
				return false
			}
		}
		j := i
		for j < len(lx.src) && isIdentPart(lx.src[j]) {
			j++
		}
		id = lx.src[i:j]
		i = j
	default:
		return false
	}

	lx.pos = i
	lx.emit(tokString, start, lx.pos)
	lx.heredocs = append(lx.heredocs, heredoc{id: id, indented: indented})
	return true
}

// heredocBodies consumes the bodies of the heredocs opened on the line just
// ended, each up to and including its terminator line, as one string token.
func (lx *lexer) heredocBodies() {
	pending := lx.heredocs
	lx.heredocs = nil
	for _, h := range pending {
		start := lx.pos
		for lx.pos < len(lx.src) {
			line := lx.src[lx.pos:]
			if end := strings.IndexByte(line, '\n'); end >= 0 {
				line = line[:end]
			}
			lx.pos += len(line)
			if h.terminatedBy(line) {
				break
			}
			if lx.pos < len(lx.src) {
				lx.pos++
			}
		}
		lx.emit(tokString, start, lx.pos)
		if lx.pos < len(lx.src) {
			lx.emit(tokNewline, lx.pos, lx.pos+1)
			lx.pos++
		}
	}
}

func (h heredoc) terminatedBy(line string) bool {
	line = strings.TrimSuffix(line, "\r")
	if h.indented {
		line = strings.TrimLeft(line, " \t")
	}
	return line == h.id
}

// regexpAllowed reports whether a slash starts a regular expression rather
// than a division, judging by the previous token.
func (lx *lexer) regexpAllowed() bool {
	if len(lx.toks) == 0 {
		return true
	}
	prev := lx.toks[len(lx.toks)-1]
	switch prev.kind {
	case tokNewline, tokSemi, tokLabel:
		return true
	case tokPunct:
		return strings.IndexByte(")]}", prev.text[0]) < 0
	case tokIdent:
		if regexpKeywords[prev.text] && !prev.afterDot {
			return true
		}
		// foo /re/ is a call argument; foo / re and foo/re divide.
		spaced := prev.end < lx.pos && lx.src[lx.pos-1] == ' '
		next := lx.peekByte(1)
		if !spaced || next == ' ' || next == '=' {
			return false
		}
		rest := lx.src[lx.pos+1:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
		return strings.Contains(rest, "/")
	}
	return false
}

var regexpKeywords = map[string]bool{
	"if": true, "elsif": true, "unless": true, "while": true, "until": true,
	"when": true, "and": true, "or": true, "not": true, "return": true,
	"then": true, "in": true, "case": true,
}

// lexRegexp consumes /.../ and its option letters.
func (lx *lexer) lexRegexp() {
	lx.lexQuoted('/')
	for lx.pos < len(lx.src) && strings.IndexByte("imxounse", lx.src[lx.pos]) >= 0 {
		lx.pos++
	}
	tok := &lx.toks[len(lx.toks)-1]
	tok.end = lx.pos
	tok.text = lx.src[tok.start:tok.end]
}

func (lx *lexer) byteAt(i int) byte {
	if i < len(lx.src) {
		return lx.src[i]
	}
	return 0
}

var percentClose = map[byte]byte{'(': ')', '[': ']', '{': '}', '<': '>'}

// percentLiteral consumes %w[...] style literals. It reports false, consuming
// nothing, when the % is an operator.
func (lx *lexer) percentLiteral() bool {
	i := lx.pos + 1
	if i < len(lx.src) && strings.IndexByte("wWiIqQrsx", lx.src[i]) >= 0 {
		i++
	}
	if i >= len(lx.src) {
		return false
	}
	open := lx.src[i]
	closer, nested := percentClose[open]
	if !nested {
		if strings.IndexByte("|!/", open) < 0 {
			return false
		}
		closer = open
	}

	start := lx.pos
	depth := 0
	for i++; i < len(lx.src); i++ {
		c := lx.src[i]
		switch {
		case c == '\\':
			i++
		case nested && c == open:
			depth++
		case c == closer && depth > 0:
			depth--
		case c == closer:
			lx.pos = i + 1
			lx.emit(tokString, start, lx.pos)
			return true
		}
	}
	lx.pos = len(lx.src)
	lx.emit(tokString, start, lx.pos)
	return true
}

func (lx *lexer) lexPunct() {
	rest := lx.src[lx.pos:]
	for _, op := range multiOps {
		if strings.HasPrefix(rest, op) {
			lx.emit(tokPunct, lx.pos, lx.pos+len(op))
			lx.pos += len(op)
			return
		}
	}
	lx.emit(tokPunct, lx.pos, lx.pos+1)
	lx.pos++
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '@' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func isIdentPart(c byte) bool {
	return c == '_' || isDigit(c) || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
