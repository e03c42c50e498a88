package parser

import (
	"testing"

	"github.com/mna/ember/lang/ast"
	"github.com/mna/ember/lang/token"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *ast.Tree {
	t.Helper()
	fset := token.NewFileSet()
	tr, errs := ParseChunk(fset, "test.ember", []byte(src))
	require.Empty(t, errs, "unexpected parse errors: %v", errs)
	require.NotNil(t, tr)
	return tr
}

func mainStmts(t *testing.T, tr *ast.Tree) []ast.AstIndex {
	t.Helper()
	idx, ok := tr.EntryPoint()
	require.True(t, ok)
	return tr.Get(idx).Items
}

func TestParseLetAssign(t *testing.T) {
	tr := parse(t, "let x = 1\n")
	stmts := mainStmts(t, tr)
	require.Len(t, stmts, 1)
	n := tr.Get(stmts[0])
	require.Equal(t, ast.KindAssign, n.Kind)
	require.Equal(t, uint8(1), n.Flags)
	require.Len(t, n.Items, 1)
	require.Len(t, n.Values, 1)

	target := tr.Get(n.Items[0])
	require.Equal(t, ast.KindIdent, target.Kind)
	require.Equal(t, "x", tr.Pool.String(target.Const))

	val := tr.Get(n.Values[0])
	require.Equal(t, ast.KindInt, val.Kind)
	require.Equal(t, int64(1), tr.Pool.Int(val.Const))
}

func TestParseMultiAssignSwap(t *testing.T) {
	tr := parse(t, "let a = 1\nlet b = 2\na, b = b, a\n")
	stmts := mainStmts(t, tr)
	require.Len(t, stmts, 3)
	swap := tr.Get(stmts[2])
	require.Equal(t, ast.KindAssign, swap.Kind)
	require.Equal(t, uint8(0), swap.Flags)
	require.Len(t, swap.Items, 2)
	require.Len(t, swap.Values, 2)
}

func TestParseCompoundAssign(t *testing.T) {
	tr := parse(t, "let x = 1\nx += 2\n")
	stmts := mainStmts(t, tr)
	assign := tr.Get(stmts[1])
	require.Equal(t, ast.KindAssign, assign.Kind)
	require.Len(t, assign.Values, 1)
	rhs := tr.Get(assign.Values[0])
	require.Equal(t, ast.KindBinaryExpr, rhs.Kind)
	require.Equal(t, token.PLUS, rhs.Op)
}

func TestParseExportDecl(t *testing.T) {
	tr := parse(t, "export let x = 1\n")
	stmts := mainStmts(t, tr)
	n := tr.Get(stmts[0])
	require.Equal(t, ast.KindAssign, n.Kind)
	require.Equal(t, uint8(3), n.Flags) // let|export
}

func TestParseIfElifElse(t *testing.T) {
	tr := parse(t, "if x == 1\n  debug x\nelse if x == 2\n  debug x\nelse\n  debug x\n")
	stmts := mainStmts(t, tr)
	require.Len(t, stmts, 1)
	ifNode := tr.Get(stmts[0])
	require.Equal(t, ast.KindIf, ifNode.Kind)
	require.NotEqual(t, ast.NoIndex, ifNode.Else)
	elifNode := tr.Get(ifNode.Else)
	require.Equal(t, ast.KindIf, elifNode.Kind)
	require.NotEqual(t, ast.NoIndex, elifNode.Else)
}

func TestParseForLoop(t *testing.T) {
	tr := parse(t, "for x in xs\n  debug x\n")
	stmts := mainStmts(t, tr)
	forNode := tr.Get(stmts[0])
	require.Equal(t, ast.KindFor, forNode.Kind)
	require.Len(t, forNode.Params, 1)
	require.Equal(t, ast.PatIdent, forNode.Params[0].Kind)
}

func TestParseWhileUntilLoop(t *testing.T) {
	tr := parse(t, "while true\n  break\nuntil false\n  continue\nloop\n  break\n")
	stmts := mainStmts(t, tr)
	require.Len(t, stmts, 3)
	require.Equal(t, ast.KindWhile, tr.Get(stmts[0]).Kind)
	require.Equal(t, ast.KindUntil, tr.Get(stmts[1]).Kind)
	require.Equal(t, ast.KindLoop, tr.Get(stmts[2]).Kind)
}

func TestParseTryCatchFinally(t *testing.T) {
	tr := parse(t, "try\n  throw 1\ncatch e\n  debug e\nfinally\n  debug 0\n")
	stmts := mainStmts(t, tr)
	tryNode := tr.Get(stmts[0])
	require.Equal(t, ast.KindTry, tryNode.Kind)
	require.NotEqual(t, ast.NoIndex, tryNode.Then)
	require.NotEqual(t, ast.NoIndex, tryNode.Cond)
	require.NotEqual(t, ast.NoIndex, tryNode.Else)
	require.Len(t, tryNode.Params, 1)
	require.Equal(t, "e", tr.Pool.String(tryNode.Params[0].Name))
}

func TestParseTryCatchNoFinally(t *testing.T) {
	tr := parse(t, "try\n  throw 1\ncatch\n  debug 0\n")
	stmts := mainStmts(t, tr)
	tryNode := tr.Get(stmts[0])
	require.Equal(t, ast.KindTry, tryNode.Kind)
	require.NotEqual(t, ast.NoIndex, tryNode.Cond)
	require.Equal(t, ast.NoIndex, tryNode.Else)
	require.Empty(t, tryNode.Params)
}

func TestParseMatchExpr(t *testing.T) {
	tr := parse(t, "match x\n  1\n    debug 1\n  2 or 3\n    debug 2\n  n if n > 0\n    debug n\n  _\n    debug 0\n")
	stmts := mainStmts(t, tr)
	m := tr.Get(stmts[0])
	require.Equal(t, ast.KindMatch, m.Kind)
	require.Len(t, m.Cases, 4)
	require.Len(t, m.Cases[1].Patterns, 2)
	require.NotEqual(t, ast.NoIndex, m.Cases[2].Guard)
}

func TestParseSwitchStmt(t *testing.T) {
	tr := parse(t, "switch\n  x == 1\n    debug 1\n  else\n    debug 0\n")
	stmts := mainStmts(t, tr)
	sw := tr.Get(stmts[0])
	require.Equal(t, ast.KindSwitch, sw.Kind)
	require.Len(t, sw.Cases, 2)
	require.Equal(t, ast.NoIndex, sw.Cases[1].Cond)
}

func TestParseImport(t *testing.T) {
	tr := parse(t, "import a.b.c x, y\n")
	stmts := mainStmts(t, tr)
	imp := tr.Get(stmts[0])
	require.Equal(t, ast.KindImport, imp.Kind)
	require.Equal(t, "a.b.c", tr.Pool.String(imp.Const))
}

func TestParseFuncLitClosure(t *testing.T) {
	tr := parse(t, "let adder = |x|\n  |y| x + y\n")
	stmts := mainStmts(t, tr)
	assign := tr.Get(stmts[0])
	fn := tr.Get(assign.Values[0])
	require.Equal(t, ast.KindFuncLit, fn.Kind)
	require.NotEqual(t, ast.NoIndex, fn.Then)
}

func TestParseBreakWithValue(t *testing.T) {
	tr := parse(t, "loop\n  break 1\n")
	stmts := mainStmts(t, tr)
	loopNode := tr.Get(stmts[0])
	body := tr.Get(loopNode.Then)
	brk := tr.Get(body.Items[0])
	require.Equal(t, ast.KindBreak, brk.Kind)
	require.NotEqual(t, ast.NoIndex, brk.Lhs)
}

func TestParseExprStatement(t *testing.T) {
	tr := parse(t, "foo(1, 2)\n")
	stmts := mainStmts(t, tr)
	n := tr.Get(stmts[0])
	require.Equal(t, ast.KindExprStmt, n.Kind)
	call := tr.Get(n.Lhs)
	require.Equal(t, ast.KindChain, call.Kind)
}
