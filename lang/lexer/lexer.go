// Package lexer tokenizes ember source code. It is a hand-written,
// single-pass scanner that additionally tracks significant indentation
// (synthesizing INDENT/DEDENT/NEWLINE tokens) and maintains a stack of
// string-interpolation modes so that nested quotes, nested `{...}`
// expressions and nested inline maps can all be tokenized without a
// separate pre-pass over the token stream.
package lexer

import (
	"bytes"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/mna/ember/lang/token"
)

// ErrorHandler is called for each lexical error encountered while scanning.
type ErrorHandler func(pos token.Position, msg string)

// Scanner tokenizes a single source file, exposing unbounded lookahead via
// Peek/PeekN on top of the raw Scan method.
type Scanner struct {
	file *token.File
	src  []byte
	err  ErrorHandler

	cur  rune // current rune, -1 at EOF
	off  int  // byte offset of cur
	roff int  // byte offset right after cur

	atLineStart bool  // next Scan must re-evaluate indentation before anything else
	parenDepth  int   // depth of (), [], {} nesting — suppresses NEWLINE/INDENT while > 0
	indents     []int // stack of indentation widths, always starts at [0]
	pending     []pendingTok

	strings []stringState // stack of active string-interpolation modes

	lookbuf []pendingTok // realized lookahead, consumed by Scan before pending
}

type pendingTok struct {
	tok token.Token
	val token.Value
}

var (
	bom      = [3]byte{0xEF, 0xBB, 0xBF}
	hashBang = [2]byte{'#', '!'}
)

// Init prepares s to scan file, whose contents are src. It panics if the
// file's size does not match len(src); that invariant is established by the
// caller when it registers the file with a token.FileSet.
func (s *Scanner) Init(file *token.File, src []byte, errh ErrorHandler) {
	if file.Size() != len(src) {
		panic(fmt.Sprintf("lexer: file size (%d) does not match src len (%d)", file.Size(), len(src)))
	}
	s.file = file
	s.src = src
	s.err = errh
	s.off, s.roff = 0, 0
	s.atLineStart = true
	s.parenDepth = 0
	s.indents = []int{0}
	s.strings = s.strings[:0]
	s.pending = s.pending[:0]
	s.lookbuf = s.lookbuf[:0]

	if len(src) >= len(bom) && bytes.Equal(src[:len(bom)], bom[:]) {
		s.roff = len(bom)
	}
	s.cur = ' '
	s.advance()
	s.skipHashBang()
}

func (s *Scanner) skipHashBang() {
	// A "#!" shebang is only recognized as the very first thing in the file
	// (right after an optional BOM).
	start := s.off
	if len(s.src)-start < len(hashBang) || s.src[start] != '#' || s.src[start+1] != '!' {
		return
	}
	for s.cur != '\n' && s.cur != -1 {
		s.advance()
	}
}

func (s *Scanner) advance() {
	if s.cur == '\n' {
		s.file.AddLine(s.roff)
	}
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		s.cur = -1
		return
	}
	s.off = s.roff
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.off, "illegal UTF-8 encoding")
		}
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) peekByte() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func (s *Scanner) error(off int, msg string) {
	if s.err != nil {
		s.err(s.file.Position(s.file.Pos(off)), msg)
	}
}

func (s *Scanner) errorf(off int, format string, args ...any) {
	s.error(off, fmt.Sprintf(format, args...))
}

type savepoint struct {
	cur       rune
	off, roff int
}

func (s *Scanner) save() savepoint      { return savepoint{s.cur, s.off, s.roff} }
func (s *Scanner) restore(sp savepoint) { s.cur, s.off, s.roff = sp.cur, sp.off, sp.roff }

func (s *Scanner) advanceIf(b byte) bool {
	if s.cur == rune(b) {
		s.advance()
		return true
	}
	return false
}

func (s *Scanner) skipHorizontalSpace() {
	for s.cur == ' ' || s.cur == '\t' || s.cur == '\r' {
		s.advance()
	}
}

func isLetter(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || r == '_' ||
		r >= utf8.RuneSelf && unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return isDecimal(r) || r >= utf8.RuneSelf && unicode.IsDigit(r)
}

func isDecimal(r rune) bool { return '0' <= r && r <= '9' }

func (s *Scanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

// scanOne returns the next token in the source, filling val with its
// literal payload. Tokens queued by indentation handling are drained
// before any new scanning happens. Scan and Peek/PeekN are built on top of
// this; callers should use those, not scanOne, directly.
func (s *Scanner) scanOne(val *token.Value) token.Token {
	if len(s.pending) > 0 {
		p := s.pending[0]
		s.pending = s.pending[1:]
		*val = p.val
		return p.tok
	}

	if n := len(s.strings); n > 0 && s.strings[n-1].mode == modeLiteral {
		return s.scanStringLiteral(val)
	}
	if n := len(s.strings); n > 0 && s.strings[n-1].mode == modeTemplateFormat {
		return s.scanFormatSpec(val)
	}

	if s.atLineStart && s.parenDepth == 0 {
		if tok, ok := s.scanIndentation(val); ok {
			return tok
		}
	}

	s.skipHorizontalSpace()
	pos := s.file.Pos(s.off)

	switch {
	case isLetter(s.cur):
		return s.scanIdentOrKeyword(pos, val)
	case isDecimal(s.cur) || (s.cur == '.' && isDecimal(rune(s.peekByte()))):
		return s.scanNumber(pos, val)
	case s.cur == '"' || s.cur == '\'':
		return s.openStringLiteral(s.cur, false, 0, pos, val)
	case s.cur == '#':
		return s.scanComment(pos, val)
	case s.cur == '\n':
		s.advance()
		if s.parenDepth > 0 {
			return s.scanOne(val)
		}
		s.atLineStart = true
		*val = token.Value{Raw: "\n", Pos: pos}
		return token.NEWLINE
	case s.cur == -1:
		*val = token.Value{Pos: pos}
		return token.EOF
	}

	return s.scanPunct(pos, val)
}

func (s *Scanner) scanIdentOrKeyword(pos token.Pos, val *token.Value) token.Token {
	if s.cur == 'r' {
		sp := s.save()
		s.advance()
		if s.cur == '"' || s.cur == '\'' {
			return s.openStringLiteral(s.cur, true, 0, pos, val)
		}
		if s.cur == '#' {
			hashes := 0
			for s.cur == '#' {
				hashes++
				s.advance()
			}
			if s.cur == '"' || s.cur == '\'' {
				return s.openStringLiteral(s.cur, true, hashes, pos, val)
			}
		}
		s.restore(sp)
	}

	lit := s.ident()
	if lit == "_" {
		*val = token.Value{Raw: lit, Pos: pos}
		return token.IGNORE
	}
	tok := token.LookupKw(lit)
	if tok == token.ELSE {
		sp := s.save()
		s.skipHorizontalSpace()
		if isLetter(s.cur) {
			kw := s.ident()
			if kw == "if" {
				*val = token.Value{Raw: "else if", Pos: pos}
				return token.ELIF
			}
		}
		s.restore(sp)
	}
	*val = token.Value{Raw: lit, Pos: pos}
	return tok
}

func (s *Scanner) scanPunct(pos token.Pos, val *token.Value) token.Token {
	start := s.off
	ch := s.cur
	s.advance()

	mk := func(raw string, tok token.Token) token.Token {
		*val = token.Value{Raw: raw, Pos: pos}
		return tok
	}

	switch ch {
	case '(':
		s.parenDepth++
		return mk("(", token.LPAREN)
	case ')':
		if s.parenDepth > 0 {
			s.parenDepth--
		}
		return mk(")", token.RPAREN)
	case '[':
		s.parenDepth++
		return mk("[", token.LBRACK)
	case ']':
		if s.parenDepth > 0 {
			s.parenDepth--
		}
		return mk("]", token.RBRACK)
	case '{':
		s.enterBrace()
		s.parenDepth++
		return mk("{", token.LBRACE)
	case '}':
		switch s.leaveBrace() {
		case braceClosesMap:
			return mk("}", token.RBRACE)
		case braceClosesTemplateExpr:
			// The brace itself carries no payload; resume scanning the
			// enclosing string literal's text so the next token is either
			// more literal text or STRING_END.
			return s.scanStringLiteral(val)
		}
		if s.parenDepth > 0 {
			s.parenDepth--
		}
		return mk("}", token.RBRACE)
	case ',':
		return mk(",", token.COMMA)
	case ';':
		return mk(";", token.SEMI)
	case '?':
		return mk("?", token.QUESTION)
	case ':':
		if n := len(s.strings); n > 0 && s.strings[n-1].mode == modeTemplateExpr && s.strings[n-1].braceDepth == 0 {
			s.strings[n-1].mode = modeTemplateFormat
		}
		return mk(":", token.COLON)
	case '.':
		if s.advanceIf('.') {
			if s.advanceIf('.') {
				return mk("...", token.ELLIPSIS)
			}
			if s.advanceIf('=') {
				return mk("..=", token.RANGE_INCL)
			}
			return mk("..", token.RANGE)
		}
		return mk(".", token.DOT)
	case '-':
		if s.advanceIf('=') {
			return mk("-=", token.MINUS_EQ)
		}
		if s.advanceIf('>') {
			return mk("->", token.ARROW)
		}
		return mk("-", token.MINUS)
	case '+':
		if s.advanceIf('=') {
			return mk("+=", token.PLUS_EQ)
		}
		return mk("+", token.PLUS)
	case '*':
		if s.advanceIf('=') {
			return mk("*=", token.STAR_EQ)
		}
		return mk("*", token.STAR)
	case '/':
		if s.advanceIf('=') {
			return mk("/=", token.SLASH_EQ)
		}
		return mk("/", token.SLASH)
	case '%':
		if s.advanceIf('=') {
			return mk("%=", token.PERCENT_EQ)
		}
		return mk("%", token.PERCENT)
	case '=':
		if s.advanceIf('=') {
			return mk("==", token.EQEQ)
		}
		return mk("=", token.EQ)
	case '!':
		if s.advanceIf('=') {
			return mk("!=", token.BANGEQ)
		}
		s.errorf(start, "illegal character %#U", '!')
		return mk("!", token.ILLEGAL)
	case '<':
		if s.advanceIf('=') {
			return mk("<=", token.LE)
		}
		return mk("<", token.LT)
	case '>':
		if s.advanceIf('=') {
			return mk(">=", token.GE)
		}
		return mk(">", token.GT)
	case '|':
		return mk("|", token.PIPE)
	case '@':
		return s.scanMetaKey(start, pos, val)
	default:
		s.errorf(start, "illegal character %#U", ch)
		return mk(string(ch), token.ILLEGAL)
	}
}

// scanMetaKey scans the body of a '@'-prefixed meta key, the leading '@'
// already consumed by scanPunct. It recognizes the fixed symbolic keys
// (@+, @==, @[], ...), the fixed word keys (@iterator, @next, @base, ...),
// and the named form (@meta name), reporting val.Str as the bound name for
// the latter and leaving it empty for every fixed key.
func (s *Scanner) scanMetaKey(start int, pos token.Pos, val *token.Value) token.Token {
	mk := func(raw string) token.Token {
		*val = token.Value{Raw: raw, Pos: pos}
		return token.METAKEY
	}

	if isLetter(s.cur) {
		word := s.ident()
		if word == "meta" {
			s.skipHorizontalSpace()
			if !isLetter(s.cur) {
				s.errorf(start, "expected a name after @meta")
				*val = token.Value{Raw: "@meta", Pos: pos}
				return token.METAKEY
			}
			name := s.ident()
			*val = token.Value{Raw: "@meta " + name, Str: name, Pos: pos}
			return token.METAKEY
		}
		return mk("@" + word)
	}

	ch := s.cur
	switch ch {
	case '+':
		s.advance()
		if s.advanceIf('=') {
			return mk("@+=")
		}
		return mk("@+")
	case '-':
		s.advance()
		if s.advanceIf('=') {
			return mk("@-=")
		}
		return mk("@-")
	case '*':
		s.advance()
		return mk("@*")
	case '/':
		s.advance()
		return mk("@/")
	case '%':
		s.advance()
		return mk("@%")
	case '=':
		s.advance()
		if s.advanceIf('=') {
			return mk("@==")
		}
		s.errorf(start, "illegal meta key @=")
		return mk("@=")
	case '!':
		s.advance()
		if s.advanceIf('=') {
			return mk("@!=")
		}
		s.errorf(start, "illegal meta key @!")
		return mk("@!")
	case '<':
		s.advance()
		if s.advanceIf('=') {
			return mk("@<=")
		}
		return mk("@<")
	case '>':
		s.advance()
		if s.advanceIf('=') {
			return mk("@>=")
		}
		return mk("@>")
	case '[':
		s.advance()
		if s.advanceIf(']') {
			return mk("@[]")
		}
		s.errorf(start, "illegal meta key @[")
		return mk("@[")
	case '|':
		s.advance()
		if s.advanceIf('|') {
			return mk("@||")
		}
		s.errorf(start, "illegal meta key @|")
		return mk("@|")
	default:
		s.errorf(start, "illegal character %#U after @", ch)
		return mk("@")
	}
}

// enterBrace tracks non-template '{' that occur while a template expression
// or template map is active, so the matching '}' is recognized as ordinary
// punctuation rather than the end of the interpolation.
func (s *Scanner) enterBrace() {
	if n := len(s.strings); n > 0 {
		m := s.strings[n-1].mode
		if m == modeTemplateExpr || m == modeTemplateMap {
			s.strings[n-1].braceDepth++
		}
	}
}

// braceCloseKind classifies what an unmatched '}' closes, if anything
// interpolation-related.
type braceCloseKind int

const (
	braceIsOrdinary          braceCloseKind = iota // plain nested '{...}', e.g. a block or set literal
	braceClosesMap                                 // closes an inline map literal nested in a template expr
	braceClosesTemplateExpr                        // closes the interpolated expression itself
)

// leaveBrace reports what kind of construct an encountered '}' closes,
// consulting and updating the active string-interpolation mode if any.
func (s *Scanner) leaveBrace() braceCloseKind {
	n := len(s.strings)
	if n == 0 {
		return braceIsOrdinary
	}
	sm := &s.strings[n-1]
	if sm.braceDepth > 0 {
		sm.braceDepth--
		return braceIsOrdinary
	}
	switch sm.mode {
	case modeTemplateMap:
		s.strings = s.strings[:n-1] // pop back to the enclosing template expr
		if s.parenDepth > 0 {
			s.parenDepth--
		}
		return braceClosesMap
	case modeTemplateExpr:
		s.strings[n-1].mode = modeLiteral
		if s.parenDepth > 0 {
			s.parenDepth--
		}
		return braceClosesTemplateExpr
	}
	return braceIsOrdinary
}
