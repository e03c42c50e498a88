package parser

import (
	"github.com/mna/ember/lang/ast"
	"github.com/mna/ember/lang/token"
)

// binaryPrec gives the left-binding power of a binary operator token; 0
// means "not a binary operator at this level".
func binaryPrec(tok token.Token) int {
	switch tok {
	case token.OR:
		return 1
	case token.AND:
		return 2
	case token.EQEQ, token.BANGEQ, token.LT, token.LE, token.GT, token.GE:
		return 3
	case token.RANGE, token.RANGE_INCL:
		return 4
	case token.PLUS, token.MINUS:
		return 5
	case token.STAR, token.SLASH, token.PERCENT:
		return 6
	default:
		return 0
	}
}

// parseExpr parses a full expression using precedence climbing.
func (p *parser) parseExpr() ast.AstIndex {
	return p.parseBinExpr(0)
}

func (p *parser) parseBinExpr(minBp int) ast.AstIndex {
	lhs := p.parseUnary()
	for {
		bp := binaryPrec(p.tok)
		if bp == 0 || bp < minBp {
			return lhs
		}
		op := p.tok
		start := p.tree.Get(lhs).Span.Start
		p.next()
		rhs := p.parseBinExpr(bp + 1)
		end := p.tree.Get(rhs).Span.End
		lhs = p.push(ast.Node{
			Kind: ast.KindBinaryExpr, Span: token.Span{Start: start, End: end},
			Op: op, Lhs: lhs, Rhs: rhs,
		})
	}
}

func (p *parser) parseUnary() ast.AstIndex {
	if p.tok == token.MINUS || p.tok == token.NOT {
		op := p.tok
		start := p.pos()
		p.next()
		operand := p.parseUnary()
		end := p.tree.Get(operand).Span.End
		return p.push(ast.Node{Kind: ast.KindUnaryExpr, Span: token.Span{Start: start, End: end}, Op: op, Lhs: operand})
	}
	return p.parseChain()
}

// parseChain parses a primary expression followed by any run of postfix
// `.name`, `[expr]`, `(args)` and `?` links.
func (p *parser) parseChain() ast.AstIndex {
	root := p.parsePrimary()
	start := p.tree.Get(root).Span.Start
	var links []ChainLinkBuilder
	for {
		switch p.tok {
		case token.DOT:
			p.next()
			name := p.expect(token.IDENT)
			links = append(links, ChainLinkBuilder{op: ast.ChainField, name: p.tree.Pool.AddString(name.Raw), arg: ast.NoIndex})
		case token.LBRACK:
			p.next()
			idx := p.parseExpr()
			p.expect(token.RBRACK)
			links = append(links, ChainLinkBuilder{op: ast.ChainIndex, arg: idx})
		case token.LPAREN:
			p.next()
			args := p.parseArgList(token.RPAREN)
			p.expect(token.RPAREN)
			links = append(links, ChainLinkBuilder{op: ast.ChainCall, args: args, arg: ast.NoIndex})
		case token.QUESTION:
			p.next()
			links = append(links, ChainLinkBuilder{op: ast.ChainOptional, arg: ast.NoIndex})
		default:
			if len(links) == 0 {
				return root
			}
			end := p.val.Pos
			return p.push(ast.Node{
				Kind: ast.KindChain, Span: token.Span{Start: start, End: end},
				Lhs: root, Links: toChainLinks(links),
			})
		}
	}
}

// ChainLinkBuilder mirrors ast.ChainLink but defers resolving the Name's
// constant index is already final here; kept as a separate type only to
// avoid importing ast.ChainLink's zero-value ambiguity during accumulation.
type ChainLinkBuilder struct {
	op   ast.ChainOp
	name ast.ConstantIndex
	arg  ast.AstIndex
	args []ast.AstIndex
}

func toChainLinks(bs []ChainLinkBuilder) []ast.ChainLink {
	out := make([]ast.ChainLink, len(bs))
	for i, b := range bs {
		out[i] = ast.ChainLink{Op: b.op, Name: b.name, Arg: b.arg, Args: b.args}
	}
	return out
}

func (p *parser) parseArgList(closing token.Token) []ast.AstIndex {
	var args []ast.AstIndex
	p.skipNewlines()
	for p.tok != closing && p.tok != token.EOF {
		args = append(args, p.parseExpr())
		p.skipNewlines()
		if !p.accept(token.COMMA) {
			break
		}
		p.skipNewlines()
	}
	p.skipNewlines()
	return args
}

func (p *parser) parsePrimary() ast.AstIndex {
	start := p.pos()
	switch p.tok {
	case token.NULL:
		p.next()
		return p.push(ast.Node{Kind: ast.KindNull, Span: token.Span{Start: start, End: p.pos()}})
	case token.TRUE, token.FALSE:
		v := p.tok == token.TRUE
		p.next()
		return p.push(ast.Node{Kind: ast.KindBool, BoolVal: v, Span: token.Span{Start: start, End: p.pos()}})
	case token.INT:
		val := p.val
		p.next()
		return p.push(ast.Node{Kind: ast.KindInt, Const: p.tree.Pool.AddInt(val.Int), Span: token.Span{Start: start, End: p.pos()}})
	case token.FLOAT:
		val := p.val
		p.next()
		return p.push(ast.Node{Kind: ast.KindFloat, Const: p.tree.Pool.AddFloat(val.Float), Span: token.Span{Start: start, End: p.pos()}})
	case token.IDENT:
		return p.parseIdentRef()
	case token.STRING_START:
		return p.parseInterpString()
	case token.LPAREN:
		return p.parseParenOrTuple()
	case token.LBRACK:
		return p.parseListOrRange()
	case token.LBRACE:
		return p.parseMapLit()
	case token.PIPE:
		return p.parseFuncLit(false)
	case token.IF:
		return p.parseIfExpr()
	case token.MATCH:
		return p.parseMatchExpr()
	default:
		p.errorf("unexpected %s in expression", p.tok.GoString())
		p.next()
		return p.push(ast.Node{Kind: ast.KindNull, Span: token.Span{Start: start, End: start}})
	}
}

func (p *parser) parseIdentRef() ast.AstIndex {
	start := p.pos()
	name := p.val.Raw
	p.next()
	idx := p.tree.Pool.AddString(name)
	kind := p.scopes.resolve(name, func(n string) ast.ConstantIndex { return p.tree.Pool.AddString(n) })
	return p.push(ast.Node{Kind: ast.KindIdent, Const: idx, Flags: uint8(kind), Span: token.Span{Start: start, End: p.pos()}})
}

// parseParenOrTuple parses `(expr)` (a parenthesized expression) or
// `(e0, e1, ...)` (a tuple literal with explicit parens).
func (p *parser) parseParenOrTuple() ast.AstIndex {
	start := p.pos()
	p.next() // (
	p.skipNewlines()
	if p.tok == token.RPAREN {
		p.next()
		return p.push(ast.Node{Kind: ast.KindTupleLit, Flags: 1, Span: token.Span{Start: start, End: p.pos()}})
	}
	first := p.parseExpr()
	p.skipNewlines()
	if p.tok != token.COMMA {
		p.expect(token.RPAREN)
		return first
	}
	items := []ast.AstIndex{first}
	for p.accept(token.COMMA) {
		p.skipNewlines()
		if p.tok == token.RPAREN {
			break
		}
		items = append(items, p.parseExpr())
		p.skipNewlines()
	}
	p.expect(token.RPAREN)
	return p.push(ast.Node{Kind: ast.KindTupleLit, Flags: 1, Items: items, Span: token.Span{Start: start, End: p.pos()}})
}

// parseListOrRange parses `[e0, e1, ...]` or a bare range expression that
// happens to start with '[' only through parseExpr's normal dispatch (a
// standalone range like `1..10` is parsed as an ordinary binary-precedence
// expression, not here); this handles list literals exclusively.
func (p *parser) parseListOrRange() ast.AstIndex {
	start := p.pos()
	p.next() // [
	items := p.parseArgList(token.RBRACK)
	p.expect(token.RBRACK)
	return p.push(ast.Node{Kind: ast.KindListLit, Items: items, Span: token.Span{Start: start, End: p.pos()}})
}

func (p *parser) parseMapLit() ast.AstIndex {
	start := p.pos()
	p.next() // {
	p.skipNewlines()
	var items []ast.AstIndex
	for p.tok != token.RBRACE && p.tok != token.EOF {
		var key ast.AstIndex
		isMeta := false
		switch p.tok {
		case token.METAKEY:
			key = p.parseMetaKey()
			isMeta = true
		case token.IDENT:
			name := p.val
			p.next()
			key = p.push(ast.Node{Kind: ast.KindStr, Const: p.tree.Pool.AddString(name.Raw), Span: token.Span{Start: name.Pos, End: p.pos()}})
			if p.tok != token.COLON {
				// Shorthand entry: {x} means {x: x}. name resolves in the
				// enclosing scope exactly like any other identifier reference.
				idx := p.tree.Pool.AddString(name.Raw)
				kind := p.scopes.resolve(name.Raw, func(n string) ast.ConstantIndex { return p.tree.Pool.AddString(n) })
				val := p.push(ast.Node{Kind: ast.KindIdent, Const: idx, Flags: uint8(kind), Span: token.Span{Start: name.Pos, End: p.pos()}})
				items = append(items, key, val)
				p.skipNewlines()
				if !p.accept(token.COMMA) {
					goto done
				}
				p.skipNewlines()
				continue
			}
		default:
			key = p.parseExpr()
		}
		p.expect(token.COLON)
		items = append(items, key, p.parseMapValue(isMeta))
		p.skipNewlines()
		if !p.accept(token.COMMA) {
			break
		}
		p.skipNewlines()
	}
done:
	p.skipNewlines()
	p.expect(token.RBRACE)
	return p.push(ast.Node{Kind: ast.KindMapLit, Flags: 1, Items: items, Span: token.Span{Start: start, End: p.pos()}})
}

// parseMetaKey consumes a METAKEY token (already current) into a KindMetaKey
// node: the fixed key's literal text for a symbolic/word key, or the bound
// name for a `@meta name` entry.
func (p *parser) parseMetaKey() ast.AstIndex {
	start := p.pos()
	v := p.val
	p.next()
	named := v.Str != ""
	text := v.Raw
	if named {
		text = v.Str
	}
	var flags uint8
	if named {
		flags = 1
	}
	return p.push(ast.Node{Kind: ast.KindMetaKey, Const: p.tree.Pool.AddString(text), Flags: flags, Span: token.Span{Start: start, End: p.pos()}})
}

// parseMapValue parses a map entry's value expression. A meta entry's value
// is almost always a function literal acting as a method on the owning
// map/object, so it is parsed with instance=true, giving it an implicit
// `self` bound from the receiver the meta-protocol calls it on.
func (p *parser) parseMapValue(isMeta bool) ast.AstIndex {
	if isMeta && p.tok == token.PIPE {
		return p.parseFuncLit(true)
	}
	return p.parseExpr()
}

// parseInterpString consumes the STRING_START...STRING_END run already
// signaled by p.tok == STRING_START, alternating literal fragments
// (emitted directly as KindStr items) with interpolated sub-expressions.
func (p *parser) parseInterpString() ast.AstIndex {
	start := p.pos()
	kind := p.val.Kind
	p.next() // consume STRING_START

	var items []ast.AstIndex
	pushFrag := func(s string, pos token.Pos) {
		items = append(items, p.push(ast.Node{Kind: ast.KindStr, Const: p.tree.Pool.AddString(s), Span: token.Span{Start: pos, End: pos}}))
	}

	for {
		switch p.tok {
		case token.STRING_FRAG:
			pushFrag(p.val.Str, p.val.Pos)
			p.next()
		case token.STRING_END:
			pushFrag(p.val.Str, p.val.Pos)
			end := p.pos()
			p.next()
			if kind == token.RawString && len(items) == 1 {
				return items[0]
			}
			return p.push(ast.Node{Kind: ast.KindInterpString, Items: items, Span: token.Span{Start: start, End: end}})
		case token.EOF:
			p.errorf("unterminated string literal")
			return p.push(ast.Node{Kind: ast.KindInterpString, Items: items, Span: token.Span{Start: start, End: p.pos()}})
		default:
			items = append(items, p.parseExpr())
		}
	}
}

// parseFuncLit parses a `|params| body` function literal. instance marks a
// method literal whose first parameter is an implicit `self`. The literal is
// a generator when its body holds a yield statement outside any nested
// function literal, or when `yield` directly follows the parameter list.
func (p *parser) parseFuncLit(instance bool) ast.AstIndex {
	start := p.pos()
	p.next() // |
	p.scopes.enterFunction()
	if instance {
		p.scopes.declare("self")
	}

	var params []ast.Pattern
	for p.tok != token.PIPE && p.tok != token.EOF {
		params = append(params, p.parseParamPattern())
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.PIPE)

	var flags ast.FuncFlags
	if instance {
		flags |= ast.FuncInstance
	}
	if len(params) > 0 && params[len(params)-1].Kind == ast.PatRest {
		flags |= ast.FuncVariadic
	}
	if p.accept(token.YIELD) {
		flags |= ast.FuncGenerator
	}

	body := p.parseExprOrBlockBody()
	ast.Walk(p.tree, body, func(t *ast.Tree, i ast.AstIndex) bool {
		switch t.Get(i).Kind {
		case ast.KindFuncLit:
			return false // a nested literal's yields belong to it
		case ast.KindYield:
			flags |= ast.FuncGenerator
		}
		return true
	})
	captures := p.scopes.leaveFunction()
	return p.push(ast.Node{
		Kind: ast.KindFuncLit, Span: token.Span{Start: start, End: p.tree.Get(body).Span.End},
		Params: params, Then: body, Captures: captures, Flags: uint8(flags),
	})
}

// parseExprOrBlockBody parses either a single expression (for `|x| x + 1`
// style one-liners) or an indented block, per whether a NEWLINE/INDENT
// immediately follows the function header.
func (p *parser) parseExprOrBlockBody() ast.AstIndex {
	if p.tok == token.NEWLINE {
		p.next()
		return p.parseIndentedBlock()
	}
	start := p.pos()
	expr := p.parseExpr()
	stmt := p.push(ast.Node{Kind: ast.KindExprStmt, Lhs: expr, Span: p.tree.Get(expr).Span})
	return p.push(ast.Node{Kind: ast.KindBlock, Items: []ast.AstIndex{stmt}, Span: token.Span{Start: start, End: p.tree.Get(expr).Span.End}})
}

func (p *parser) parseIndentedBlock() ast.AstIndex {
	start := p.pos()
	p.expect(token.INDENT)
	p.scopes.enterBlock()
	var stmts []ast.AstIndex
	for p.tok != token.DEDENT && p.tok != token.EOF {
		idx := p.parseStmt()
		if idx != ast.NoIndex {
			stmts = append(stmts, idx)
		}
		p.skipNewlines()
	}
	p.scopes.leaveBlock()
	end := p.pos()
	p.accept(token.DEDENT)
	return p.push(ast.Node{Kind: ast.KindBlock, Items: stmts, Span: token.Span{Start: start, End: end}})
}

func (p *parser) parseIfExpr() ast.AstIndex {
	start := p.pos()
	p.next() // if
	cond := p.parseExpr()
	p.accept(token.THEN)
	then := p.parseExprOrBlockBody()
	elseIdx := ast.NoIndex
	p.skipNewlines()
	switch p.tok {
	case token.ELIF:
		p.tok = token.IF // reuse the if-expr parser for the elif chain
		elseIdx = p.parseIfExpr()
	case token.ELSE:
		p.next()
		elseIdx = p.parseExprOrBlockBody()
	}
	return p.push(ast.Node{
		Kind: ast.KindIf, Span: token.Span{Start: start, End: p.tree.Get(then).Span.End},
		Cond: cond, Then: then, Else: elseIdx,
	})
}

func (p *parser) parseMatchExpr() ast.AstIndex {
	start := p.pos()
	p.next() // match
	cond := p.parseExpr()
	p.expect(token.NEWLINE)
	p.expect(token.INDENT)
	var cases []ast.Case
	for p.tok != token.DEDENT && p.tok != token.EOF {
		pats := []ast.Pattern{p.parsePattern()}
		for p.accept(token.OR) {
			pats = append(pats, p.parsePattern())
		}
		guard := ast.NoIndex
		if p.accept(token.IF) {
			guard = p.parseExpr()
		}
		p.accept(token.THEN)
		body := p.parseExprOrBlockBody()
		p.skipNewlines()
		cases = append(cases, ast.Case{Patterns: pats, Guard: guard, Cond: ast.NoIndex, Body: body})
	}
	end := p.pos()
	p.accept(token.DEDENT)
	return p.push(ast.Node{Kind: ast.KindMatch, Span: token.Span{Start: start, End: end}, Cond: cond, Cases: cases})
}
