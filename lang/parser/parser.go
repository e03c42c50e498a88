// Package parser implements a hand-written, Pratt-style parser that turns
// a token stream from lang/lexer into an arena-allocated lang/ast.Tree,
// interning literals into the tree's constant pool and resolving variable
// scope/capture lists as it goes (see scope.go).
package parser

import (
	"os"

	"github.com/mna/ember/lang/ast"
	"github.com/mna/ember/lang/lexer"
	"github.com/mna/ember/lang/token"
)

// ParseFiles parses each of files into its own ast.Tree sharing one
// token.FileSet. The returned error, if non-nil, is a token.ErrorList.
func ParseFiles(files ...string) (*token.FileSet, []*ast.Tree, error) {
	fset := token.NewFileSet()
	trees := make([]*ast.Tree, 0, len(files))
	var errs token.ErrorList

	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			errs.Add(token.Position{Filename: name}, err.Error())
			continue
		}
		tr, fileErrs := ParseChunk(fset, name, src)
		trees = append(trees, tr)
		errs = append(errs, fileErrs...)
	}
	errs.Sort()
	return fset, trees, errs.Err()
}

// ParseChunk parses a single chunk of source, registering it in fset under
// name, and returns its AST. Parsing errors are accumulated and returned as
// a token.ErrorList (nil if there were none); the returned tree is always
// non-nil and usable even when errors were reported, to support tooling
// that wants a best-effort AST.
func ParseChunk(fset *token.FileSet, name string, src []byte) (*ast.Tree, token.ErrorList) {
	var p parser
	f := fset.AddFile(name, -1, len(src))
	p.init(f, src)
	p.parseMain()
	p.errors.Sort()
	return p.tree, p.errors
}

// parser holds the mutable state of one parse: the lexer, the tree being
// built, and a one-token lookahead (tok/val) kept current by next().
type parser struct {
	file   *token.File
	lex    lexer.Scanner
	errors token.ErrorList
	tree   *ast.Tree

	tok token.Token
	val token.Value

	scopes *scopeStack
}

func (p *parser) init(f *token.File, src []byte) {
	p.file = f
	p.tree = ast.NewTree()
	p.scopes = newScopeStack()
	p.lex.Init(f, src, func(pos token.Position, msg string) { p.errors.Add(pos, msg) })
	p.next()
}

func (p *parser) next() {
	for {
		p.tok = p.lex.Scan(&p.val)
		if p.tok != token.COMMENT {
			return
		}
	}
}

// peek reports the kind of the token n positions past the current
// lookahead token p.tok (0 is the token right after p.tok), skipping
// comments.
func (p *parser) peek(n int) token.Token {
	skipped := 0
	for i := 0; ; i++ {
		tok, _ := p.lex.PeekN(i)
		if tok == token.COMMENT {
			continue
		}
		if skipped == n {
			return tok
		}
		skipped++
	}
}

func (p *parser) at(tok token.Token) bool { return p.tok == tok }

func (p *parser) accept(tok token.Token) bool {
	if p.tok == tok {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(tok token.Token) token.Value {
	val := p.val
	if p.tok != tok {
		p.errorf("expected %s, found %s", tok.GoString(), p.tok.GoString())
	} else {
		p.next()
	}
	return val
}

// skipNewlines consumes any run of NEWLINE tokens, used between statements
// and around optional blank lines in collection literals.
func (p *parser) skipNewlines() {
	for p.tok == token.NEWLINE {
		p.next()
	}
}

func (p *parser) pos() token.Pos { return p.val.Pos }

func (p *parser) errorf(format string, args ...any) {
	p.errors.Addf(p.file.Position(p.val.Pos), format, args...)
}

// syncToStmt discards tokens up to the next NEWLINE/DEDENT/EOF. No parse
// path calls it: after a syntax error the parser records it and goes on
// from the current token without skipping ahead.
func (p *parser) syncToStmt() {
	for p.tok != token.NEWLINE && p.tok != token.DEDENT && p.tok != token.EOF {
		p.next()
	}
}

func (p *parser) push(n ast.Node) ast.AstIndex { return p.tree.Push(n) }

// parseMain parses the whole chunk into a KindMainBlock node, per the
// arena's one-entry-point invariant.
func (p *parser) parseMain() {
	p.scopes.enterFunction()
	p.skipNewlines()
	var stmts []ast.AstIndex
	for p.tok != token.EOF {
		idx := p.parseStmt()
		if idx != ast.NoIndex {
			stmts = append(stmts, idx)
		}
		p.skipNewlines()
	}
	start := token.Pos(0)
	if p.file.Size() > 0 {
		start = p.file.Pos(0)
	}
	p.push(ast.Node{
		Kind:  ast.KindMainBlock,
		Span:  token.Span{Start: start, End: p.val.Pos},
		Items: stmts,
	})
	p.scopes.leaveFunction()
}
