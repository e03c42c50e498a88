package lexer

import (
	"strings"

	"github.com/mna/ember/lang/token"
)

// scanComment scans either a line comment ("# ... " to end of line) or a
// block comment ("#- ... -#", which nests).
func (s *Scanner) scanComment(pos token.Pos, val *token.Value) token.Token {
	start := s.off
	s.advance() // consume '#'

	if s.cur == '-' {
		s.advance()
		depth := 1
		for depth > 0 {
			switch s.cur {
			case -1:
				s.error(start, "unterminated block comment")
				depth = 0
			case '#':
				s.advance()
				if s.cur == '-' {
					s.advance()
					depth++
				}
			case '-':
				s.advance()
				if s.cur == '#' {
					s.advance()
					depth--
				}
			default:
				s.advance()
			}
		}
		raw := string(s.src[start:s.off])
		*val = token.Value{Raw: raw, Pos: pos, Str: strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "#-"), "-#"))}
		return token.COMMENT
	}

	for s.cur != '\n' && s.cur != -1 {
		s.advance()
	}
	raw := string(s.src[start:s.off])
	*val = token.Value{Raw: raw, Pos: pos, Str: strings.TrimSpace(strings.TrimPrefix(raw, "#"))}
	return token.COMMENT
}
