package lexer

import (
	"strconv"
	"strings"

	"github.com/mna/ember/lang/token"
)

// scanNumber scans an integer or float literal: decimal, 0x/0o/0b prefixed
// integers (no exponent or fractional part permitted on those), and
// decimal floats with an optional fractional part and/or exponent.
// Underscores are permitted between digits as visual separators, mirroring
// the teacher's lexical convention for numeric literals.
func (s *Scanner) scanNumber(pos token.Pos, val *token.Value) token.Token {
	start := s.off
	isFloat := false

	if s.cur == '0' {
		save := s.save()
		s.advance()
		switch s.cur {
		case 'x', 'X':
			s.advance()
			s.digits(isHexDigit)
			lit := cleanNumber(s.src[start:s.off])
			return s.finishInt(pos, lit, 16, val)
		case 'o', 'O':
			s.advance()
			s.digits(isOctalDigit)
			lit := cleanNumber(s.src[start:s.off])
			return s.finishInt(pos, lit, 8, val)
		case 'b', 'B':
			s.advance()
			s.digits(isBinDigit)
			lit := cleanNumber(s.src[start:s.off])
			return s.finishInt(pos, lit, 2, val)
		default:
			s.restore(save)
		}
	}

	s.digits(isDecimal)
	if s.cur == '.' && isDecimal(rune(s.peekByte())) {
		isFloat = true
		s.advance()
		s.digits(isDecimal)
	}
	if s.cur == 'e' || s.cur == 'E' {
		save := s.save()
		s.advance()
		if s.cur == '+' || s.cur == '-' {
			s.advance()
		}
		if isDecimal(s.cur) {
			isFloat = true
			s.digits(isDecimal)
		} else {
			s.restore(save)
		}
	}

	lit := cleanNumber(s.src[start:s.off])
	if isFloat {
		*val = token.Value{Raw: lit, Pos: pos}
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			s.errorf(start, "invalid float literal: %v", err)
		}
		val.Float = f
		return token.FLOAT
	}
	return s.finishInt(pos, lit, 10, val)
}

func (s *Scanner) finishInt(pos token.Pos, lit string, base int, val *token.Value) token.Token {
	digits := lit
	switch base {
	case 16, 8, 2:
		digits = lit[2:]
	}
	v, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		s.errorf(s.off, "invalid integer literal: %v", err)
	}
	*val = token.Value{Raw: lit, Pos: pos, Int: v}
	return token.INT
}

func (s *Scanner) digits(pred func(rune) bool) {
	for pred(s.cur) || s.cur == '_' {
		s.advance()
	}
}

// cleanNumber strips the visual '_' separators from a scanned numeric
// literal before it is handed to strconv.
func cleanNumber(b []byte) string {
	if !strings.ContainsRune(string(b), '_') {
		return string(b)
	}
	return strings.ReplaceAll(string(b), "_", "")
}

func isHexDigit(r rune) bool {
	return isDecimal(r) || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F'
}

func isOctalDigit(r rune) bool { return '0' <= r && r <= '7' }

func isBinDigit(r rune) bool { return r == '0' || r == '1' }
