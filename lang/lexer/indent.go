package lexer

import "github.com/mna/ember/lang/token"

// scanIndentation is invoked at the start of each logical line (outside any
// bracket or string-interpolation nesting). It consumes leading whitespace,
// skips blank lines and comment-only lines, and compares the resulting
// column against the indent stack, queuing INDENT/DEDENT/NEWLINE tokens as
// needed. It returns ok=false when the line turned out to need no
// indentation token at all, meaning the caller should fall through to
// ordinary scanning of the first real token on the line.
func (s *Scanner) scanIndentation(val *token.Value) (token.Token, bool) {
	for {
		col := s.measureIndent()
		pos := s.file.Pos(s.off)

		switch s.cur {
		case '\n':
			// blank line: consume it and keep looking.
			s.advance()
			continue
		case '#':
			// comment-only line: indentation is not tracked against it, let
			// ordinary scanning produce the COMMENT token (and the NEWLINE
			// that follows it).
			s.atLineStart = false
			return token.ILLEGAL, false
		case -1:
			s.atLineStart = false
			s.closeIndentsToEOF(val)
			if len(s.pending) > 0 {
				p := s.pending[0]
				s.pending = s.pending[1:]
				*val = p.val
				return p.tok, true
			}
			*val = token.Value{Pos: pos}
			return token.EOF, true
		}

		s.atLineStart = false
		top := s.indents[len(s.indents)-1]
		switch {
		case col > top:
			s.indents = append(s.indents, col)
			*val = token.Value{Pos: pos}
			return token.INDENT, true
		case col < top:
			for len(s.indents) > 1 && s.indents[len(s.indents)-1] > col {
				s.indents = s.indents[:len(s.indents)-1]
				s.pending = append(s.pending, pendingTok{token.DEDENT, token.Value{Pos: pos}})
			}
			if s.indents[len(s.indents)-1] != col {
				s.errorf(s.off, "unindent does not match any outer indentation level")
			}
			p := s.pending[0]
			s.pending = s.pending[1:]
			*val = p.val
			return p.tok, true
		default:
			return token.ILLEGAL, false
		}
	}
}

// measureIndent consumes leading spaces/tabs on the current line and
// returns the resulting column width (tabs count as a single column; mixed
// tab/space indentation is accepted but not specially aligned).
func (s *Scanner) measureIndent() int {
	col := 0
	for s.cur == ' ' || s.cur == '\t' {
		col++
		s.advance()
	}
	return col
}

// closeIndentsToEOF queues, when an indentation level is still open, a
// NEWLINE followed by a DEDENT for every open level, so that the token
// stream always ends cleanly at column 0.
func (s *Scanner) closeIndentsToEOF(val *token.Value) {
	pos := s.file.Pos(s.off)
	if len(s.indents) > 1 {
		s.pending = append(s.pending, pendingTok{token.NEWLINE, token.Value{Pos: pos}})
	}
	for len(s.indents) > 1 {
		s.indents = s.indents[:len(s.indents)-1]
		s.pending = append(s.pending, pendingTok{token.DEDENT, token.Value{Pos: pos}})
	}
}
