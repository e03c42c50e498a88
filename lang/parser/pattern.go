package parser

import (
	"strings"

	"github.com/mna/ember/lang/ast"
	"github.com/mna/ember/lang/token"
)

// parseParamPattern parses one function-parameter pattern, declaring any
// bound names in the current (just-entered) function frame.
func (p *parser) parseParamPattern() ast.Pattern {
	switch p.tok {
	case token.IGNORE:
		p.next()
		return ast.Pattern{Kind: ast.PatIgnore}
	case token.ELLIPSIS:
		p.next()
		if p.tok == token.IDENT {
			name := p.val.Raw
			p.next()
			p.scopes.declare(name)
			return ast.Pattern{Kind: ast.PatRest, Name: p.tree.Pool.AddString(name)}
		}
		return ast.Pattern{Kind: ast.PatRest}
	case token.LBRACK:
		return p.parseCompoundPattern(token.LBRACK, token.RBRACK, ast.PatList)
	case token.LPAREN:
		return p.parseCompoundPattern(token.LPAREN, token.RPAREN, ast.PatTuple)
	case token.IDENT:
		name := p.val.Raw
		p.next()
		p.scopes.declare(name)
		kind := ast.PatIdent
		if strings.HasPrefix(name, "_") {
			kind = ast.PatWildcard
		}
		return ast.Pattern{Kind: kind, Name: p.tree.Pool.AddString(name)}
	default:
		p.errorf("expected parameter pattern, found %s", p.tok.GoString())
		p.next()
		return ast.Pattern{Kind: ast.PatIgnore}
	}
}

func (p *parser) parseCompoundPattern(open, close token.Token, kind ast.PatternKind) ast.Pattern {
	p.expect(open)
	var sub []ast.Pattern
	for p.tok != close && p.tok != token.EOF {
		sub = append(sub, p.parseParamPattern())
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(close)
	return ast.Pattern{Kind: kind, Sub: sub}
}

// parsePattern parses one match-arm pattern: everything parseParamPattern
// accepts, plus literal patterns (int/float/string/bool/null) compared by
// value rather than bound.
func (p *parser) parsePattern() ast.Pattern {
	switch p.tok {
	case token.INT, token.FLOAT, token.STRING_START, token.TRUE, token.FALSE, token.NULL, token.MINUS:
		lit := p.parseUnary()
		return ast.Pattern{Kind: ast.PatLiteral, Literal: lit}
	default:
		return p.parseParamPattern()
	}
}
