package lexer

import (
	"strings"

	"github.com/mna/ember/lang/token"
)

// stringMode tracks which part of an interpolated string literal the
// scanner is currently producing tokens for. A string starts in
// modeLiteral; an unescaped '{' switches to modeTemplateExpr for the
// interpolated expression; a top-level ':' inside that expression switches
// to modeTemplateFormat for the trailing format spec; an ordinary '{' inside
// the expression (such as an inline map literal) is counted in braceDepth
// so its own '}' doesn't prematurely close the interpolation. The scanner
// never enters modeTemplateMap.
type stringMode int

const (
	modeLiteral stringMode = iota
	modeTemplateExpr
	modeTemplateMap
	modeTemplateFormat
)

type stringState struct {
	mode       stringMode
	quote      rune
	raw        bool
	hashCount  int
	braceDepth int // nested ordinary '{' seen while mode is a template mode
}

// openStringLiteral consumes the opening quote (and, for raw strings, the
// leading 'r' + hashes already consumed by the caller) and pushes a new
// string-interpolation mode, returning STRING_START.
func (s *Scanner) openStringLiteral(quote rune, raw bool, hashes int, pos token.Pos, val *token.Value) token.Token {
	s.advance() // past the opening quote
	s.strings = append(s.strings, stringState{mode: modeLiteral, quote: quote, raw: raw, hashCount: hashes})
	s.parenDepth++
	kind := token.PlainString
	if raw {
		kind = token.RawString
	}
	*val = token.Value{Pos: pos, Kind: kind}
	return token.STRING_START
}

// scanStringLiteral scans the literal text of the innermost active string
// until it hits an interpolation opener, the closing quote, or EOF.
func (s *Scanner) scanStringLiteral(val *token.Value) token.Token {
	n := len(s.strings)
	sm := &s.strings[n-1]
	pos := s.file.Pos(s.off)

	var sb strings.Builder
	for {
		switch {
		case s.cur == -1:
			s.error(s.off, "unterminated string literal")
			*val = token.Value{Pos: pos, Str: sb.String()}
			s.popString()
			return token.STRING_END

		case !sm.raw && s.cur == '\\':
			s.advance()
			s.scanEscape(&sb)
			continue

		case !sm.raw && s.cur == '{':
			s.advance()
			sm.mode = modeTemplateExpr
			*val = token.Value{Pos: pos, Str: sb.String()}
			return token.STRING_FRAG

		case s.cur == sm.quote:
			if sm.raw && sm.hashCount > 0 {
				save := s.save()
				s.advance()
				ok := true
				for i := 0; i < sm.hashCount; i++ {
					if s.cur != '#' {
						ok = false
						break
					}
					s.advance()
				}
				if !ok {
					s.restore(save)
					sb.WriteRune(s.cur)
					s.advance()
					continue
				}
			} else {
				s.advance()
			}
			*val = token.Value{Pos: pos, Str: sb.String()}
			s.popString()
			return token.STRING_END

		case s.cur == '\n' && sm.raw:
			sb.WriteRune('\n')
			s.advance()

		default:
			sb.WriteRune(s.cur)
			s.advance()
		}
	}
}

func (s *Scanner) popString() {
	n := len(s.strings)
	s.strings = s.strings[:n-1]
	if s.parenDepth > 0 {
		s.parenDepth--
	}
}

func (s *Scanner) scanEscape(sb *strings.Builder) {
	off := s.off
	switch s.cur {
	case 'n':
		sb.WriteByte('\n')
		s.advance()
	case 't':
		sb.WriteByte('\t')
		s.advance()
	case 'r':
		sb.WriteByte('\r')
		s.advance()
	case '0':
		sb.WriteByte(0)
		s.advance()
	case '\\', '"', '\'', '{', '}':
		sb.WriteRune(s.cur)
		s.advance()
	case '\n':
		// escaped newline: line continuation, consumes no output.
		s.advance()
	case 'u':
		s.advance()
		if s.cur != '{' {
			s.errorf(off, `invalid unicode escape, expected '{' after \u`)
			return
		}
		s.advance()
		var cp rune
		digits := 0
		for s.cur != '}' && s.cur != -1 && digits < 6 {
			d := hexDigit(s.cur)
			if d < 0 {
				s.errorf(off, "invalid hex digit in unicode escape")
				break
			}
			cp = cp*16 + rune(d)
			digits++
			s.advance()
		}
		if s.cur == '}' {
			s.advance()
		}
		sb.WriteRune(cp)
	default:
		s.errorf(off, "unknown escape sequence '\\%c'", s.cur)
		sb.WriteRune(s.cur)
		s.advance()
	}
}

func hexDigit(r rune) int {
	switch {
	case '0' <= r && r <= '9':
		return int(r - '0')
	case 'a' <= r && r <= 'f':
		return int(r-'a') + 10
	case 'A' <= r && r <= 'F':
		return int(r-'A') + 10
	default:
		return -1
	}
}

// scanFormatSpec scans the raw text of a `:spec` format specifier, up to
// (and consuming) the closing '}' of the interpolated expression. The
// spec text itself carries no nested interpolation.
func (s *Scanner) scanFormatSpec(val *token.Value) token.Token {
	n := len(s.strings)
	sm := &s.strings[n-1]
	pos := s.file.Pos(s.off)

	var sb strings.Builder
	for s.cur != '}' && s.cur != -1 {
		sb.WriteRune(s.cur)
		s.advance()
	}
	if s.cur == '}' {
		s.advance()
	} else {
		s.error(s.off, "unterminated format specifier")
	}
	sm.mode = modeLiteral
	if s.parenDepth > 0 {
		s.parenDepth--
	}
	*val = token.Value{Pos: pos, Str: sb.String()}
	return token.STRING_FRAG
}
