package lexer

import "github.com/mna/ember/lang/token"

// Scan returns the next token, consuming it. If tokens were realized ahead
// of time via Peek/PeekN they are drained first, in order.
func (s *Scanner) Scan(val *token.Value) token.Token {
	if len(s.lookbuf) > 0 {
		p := s.lookbuf[0]
		s.lookbuf = s.lookbuf[1:]
		*val = p.val
		return p.tok
	}
	return s.scanOne(val)
}

// Peek returns the next token without consuming it.
func (s *Scanner) Peek() (token.Token, token.Value) {
	return s.PeekN(0)
}

// PeekN returns the token n positions ahead (0 is the same as Peek, i.e.
// the next token to be returned by Scan) without consuming any tokens.
func (s *Scanner) PeekN(n int) (token.Token, token.Value) {
	for len(s.lookbuf) <= n {
		var v token.Value
		t := s.scanOne(&v)
		s.lookbuf = append(s.lookbuf, pendingTok{t, v})
	}
	return s.lookbuf[n].tok, s.lookbuf[n].val
}
