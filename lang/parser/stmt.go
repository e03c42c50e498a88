package parser

import (
	"github.com/mna/ember/lang/ast"
	"github.com/mna/ember/lang/token"
)

// parseStmt parses one statement and returns its AstIndex, or ast.NoIndex
// if the statement was empty (a stray NEWLINE already consumed by a
// caller, or an error that left nothing to emit).
func (p *parser) parseStmt() ast.AstIndex {
	switch p.tok {
	case token.IF:
		return p.parseIfExpr()
	case token.MATCH:
		return p.parseMatchExpr()
	case token.SWITCH:
		return p.parseSwitchStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.WHILE:
		return p.parseWhileUntilStmt(token.WHILE, ast.KindWhile)
	case token.UNTIL:
		return p.parseWhileUntilStmt(token.UNTIL, ast.KindUntil)
	case token.LOOP:
		return p.parseLoopStmt()
	case token.BREAK:
		return p.parseOptValueStmt(ast.KindBreak)
	case token.CONTINUE:
		start := p.pos()
		p.next()
		return p.push(ast.Node{Kind: ast.KindContinue, Span: token.Span{Start: start, End: p.pos()}})
	case token.RETURN:
		return p.parseOptValueStmt(ast.KindReturn)
	case token.THROW:
		return p.parseValueStmt(ast.KindThrow)
	case token.YIELD:
		return p.parseValueStmt(ast.KindYield)
	case token.TRY:
		return p.parseTryStmt()
	case token.LET, token.EXPORT:
		return p.parseDeclStmt()
	case token.IMPORT:
		return p.parseImportStmt()
	case token.DEBUG:
		return p.parseValueStmt(ast.KindDebug)
	case token.NEWLINE, token.DEDENT:
		return ast.NoIndex
	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *parser) parseOptValueStmt(kind ast.Kind) ast.AstIndex {
	start := p.pos()
	p.next()
	val := ast.NoIndex
	if p.tok != token.NEWLINE && p.tok != token.EOF && p.tok != token.DEDENT {
		val = p.parseExpr()
	}
	end := p.pos()
	if val != ast.NoIndex {
		end = p.tree.Get(val).Span.End
	}
	return p.push(ast.Node{Kind: kind, Lhs: val, Span: token.Span{Start: start, End: end}})
}

func (p *parser) parseValueStmt(kind ast.Kind) ast.AstIndex {
	start := p.pos()
	p.next()
	val := p.parseExpr()
	return p.push(ast.Node{Kind: kind, Lhs: val, Span: token.Span{Start: start, End: p.tree.Get(val).Span.End}})
}

func (p *parser) parseForStmt() ast.AstIndex {
	start := p.pos()
	p.next() // for
	pat := p.parseParamPattern()
	p.expect(token.IN)
	iter := p.parseExpr()
	body := p.parseExprOrBlockBody()
	return p.push(ast.Node{
		Kind: ast.KindFor, Span: token.Span{Start: start, End: p.tree.Get(body).Span.End},
		Params: []ast.Pattern{pat}, Rhs: iter, Then: body,
	})
}

func (p *parser) parseWhileUntilStmt(tok token.Token, kind ast.Kind) ast.AstIndex {
	start := p.pos()
	p.next()
	cond := p.parseExpr()
	body := p.parseExprOrBlockBody()
	return p.push(ast.Node{Kind: kind, Span: token.Span{Start: start, End: p.tree.Get(body).Span.End}, Cond: cond, Then: body})
}

func (p *parser) parseLoopStmt() ast.AstIndex {
	start := p.pos()
	p.next()
	body := p.parseExprOrBlockBody()
	return p.push(ast.Node{Kind: ast.KindLoop, Span: token.Span{Start: start, End: p.tree.Get(body).Span.End}, Then: body})
}

func (p *parser) parseSwitchStmt() ast.AstIndex {
	start := p.pos()
	p.next() // switch
	p.expect(token.NEWLINE)
	p.expect(token.INDENT)
	var cases []ast.Case
	for p.tok != token.DEDENT && p.tok != token.EOF {
		var cond ast.AstIndex
		if p.tok == token.ELSE {
			p.next()
			cond = ast.NoIndex
		} else {
			cond = p.parseExpr()
		}
		p.accept(token.THEN)
		body := p.parseExprOrBlockBody()
		p.skipNewlines()
		cases = append(cases, ast.Case{Cond: cond, Guard: ast.NoIndex, Body: body})
	}
	end := p.pos()
	p.accept(token.DEDENT)
	return p.push(ast.Node{Kind: ast.KindSwitch, Span: token.Span{Start: start, End: end}, Cond: ast.NoIndex, Cases: cases})
}

// parseTryStmt parses `try BODY catch [pattern] BODY [finally BODY]`. The
// try body is Then, the catch body is Cond (reusing the field since a
// catch body is itself just another block, not a condition expression),
// and the optional finally body is Else.
func (p *parser) parseTryStmt() ast.AstIndex {
	start := p.pos()
	p.next() // try
	tryBody := p.parseExprOrBlockBody()
	p.skipNewlines()

	var catchPat []ast.Pattern
	catchBody := ast.NoIndex
	if p.accept(token.CATCH) {
		p.scopes.enterBlock()
		if p.tok != token.NEWLINE {
			catchPat = []ast.Pattern{p.parseParamPattern()}
		}
		catchBody = p.parseExprOrBlockBody()
		p.scopes.leaveBlock()
		p.skipNewlines()
	}

	finallyBody := ast.NoIndex
	if p.accept(token.FINALLY) {
		finallyBody = p.parseExprOrBlockBody()
	}

	end := p.pos()
	for _, idx := range []ast.AstIndex{tryBody, catchBody, finallyBody} {
		if idx != ast.NoIndex {
			end = p.tree.Get(idx).Span.End
		}
	}
	return p.push(ast.Node{
		Kind: ast.KindTry, Span: token.Span{Start: start, End: end},
		Then: tryBody, Params: catchPat, Cond: catchBody, Else: finallyBody,
	})
}

// parseDeclStmt parses `let a, b = ...` and `export a, b = ...` (the two
// share a grammar: an optional `let`/`export` keyword in front of an
// ordinary assignment).
func (p *parser) parseDeclStmt() ast.AstIndex {
	start := p.pos()
	var flags uint8
	if p.tok == token.LET {
		flags |= 1
		p.next()
	} else if p.tok == token.EXPORT {
		flags |= 2
		p.next()
		if p.tok == token.LET {
			flags |= 1
			p.next()
		}
	}
	return p.finishAssign(start, flags, true)
}

// parseExprOrAssignStmt parses either a bare expression statement (a
// function call, typically) or an assignment/augmented-assignment
// statement, disambiguating by scanning ahead for '=' or an augop after a
// comma-separated list of chain targets.
func (p *parser) parseExprOrAssignStmt() ast.AstIndex {
	start := p.pos()
	first := p.parseExpr()
	if p.tok == token.EQ || p.tok.IsAugBinop() || p.tok == token.COMMA {
		return p.continueAssign(start, 0, first)
	}
	return p.push(ast.Node{Kind: ast.KindExprStmt, Lhs: first, Span: p.tree.Get(first).Span})
}

func (p *parser) finishAssign(start token.Pos, flags uint8, declare bool) ast.AstIndex {
	first := p.parseAssignTarget(declare)
	return p.continueAssign(start, flags, first)
}

// parseAssignTarget parses one assignment target; when declare is true
// (a `let`), a bare identifier also declares a new local binding.
func (p *parser) parseAssignTarget(declare bool) ast.AstIndex {
	if declare && p.tok == token.IDENT {
		name := p.val.Raw
		start := p.pos()
		p.next()
		p.scopes.declare(name)
		idx := p.tree.Pool.AddString(name)
		return p.push(ast.Node{Kind: ast.KindIdent, Const: idx, Flags: 0, Span: token.Span{Start: start, End: p.pos()}})
	}
	return p.parseExpr()
}

func (p *parser) continueAssign(start token.Pos, flags uint8, first ast.AstIndex) ast.AstIndex {
	targets := []ast.AstIndex{first}
	declare := flags&1 != 0
	for p.accept(token.COMMA) {
		targets = append(targets, p.parseAssignTarget(declare))
	}

	op := p.tok
	if op != token.EQ && !op.IsAugBinop() {
		p.errorf("expected '=' or compound assignment, found %s", op.GoString())
		return p.push(ast.Node{Kind: ast.KindExprStmt, Lhs: first, Span: p.tree.Get(first).Span})
	}
	p.next()

	var values []ast.AstIndex
	values = append(values, p.parseExpr())
	for p.accept(token.COMMA) {
		values = append(values, p.parseExpr())
	}

	if op != token.EQ && len(targets) == 1 && len(values) == 1 {
		binOp := augToBinOp(op)
		sum := p.push(ast.Node{
			Kind: ast.KindBinaryExpr, Op: binOp, Lhs: targets[0], Rhs: values[0],
			Span: token.Span{Start: start, End: p.tree.Get(values[0]).Span.End},
		})
		values[0] = sum
	}

	end := p.tree.Get(values[len(values)-1]).Span.End
	return p.push(ast.Node{
		Kind: ast.KindAssign, Span: token.Span{Start: start, End: end},
		Items: targets, Values: values, Flags: flags,
	})
}

func augToBinOp(tok token.Token) token.Token {
	switch tok {
	case token.PLUS_EQ:
		return token.PLUS
	case token.MINUS_EQ:
		return token.MINUS
	case token.STAR_EQ:
		return token.STAR
	case token.SLASH_EQ:
		return token.SLASH
	case token.PERCENT_EQ:
		return token.PERCENT
	default:
		return token.ILLEGAL
	}
}

// parseImportStmt parses `import path.to.module a, b`.
func (p *parser) parseImportStmt() ast.AstIndex {
	start := p.pos()
	p.next() // import
	pathStart := p.val.Raw
	p.expect(token.IDENT)
	path := pathStart
	for p.accept(token.DOT) {
		path += "." + p.val.Raw
		p.expect(token.IDENT)
	}
	modIdx := p.tree.Pool.AddString(path)

	var bindings []ast.Pattern
	for p.tok == token.IDENT {
		bindings = append(bindings, p.parseParamPattern())
		if !p.accept(token.COMMA) {
			break
		}
	}
	return p.push(ast.Node{Kind: ast.KindImport, Const: modIdx, Params: bindings, Span: token.Span{Start: start, End: p.pos()}})
}
