package compiler_test

import (
	"strings"
	"testing"

	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/parser"
	"github.com/mna/ember/lang/token"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, src string) *compiler.Program {
	t.Helper()
	fset := token.NewFileSet()
	tree, errs := parser.ParseChunk(fset, "test.ember", []byte(src))
	require.Empty(t, errs, "unexpected parse errors: %v", errs)
	prog, err := compiler.Compile(tree)
	require.NoError(t, err)
	require.NotNil(t, prog)
	return prog
}

func TestCompileLetAssign(t *testing.T) {
	prog := compile(t, "let x = 1\nx\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "set_1")
}

func TestCompileArithmetic(t *testing.T) {
	prog := compile(t, "let x = 1 + 2 * 3\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "multiply")
	require.Contains(t, dis, "add")
}

func TestCompileIfElse(t *testing.T) {
	prog := compile(t, "if true\n  debug 1\nelse\n  debug 2\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "jump_if_false")
	require.Contains(t, dis, "jump ")
	require.Contains(t, dis, "debug")
}

func TestCompileWhileLoop(t *testing.T) {
	prog := compile(t, "while true\n  debug 1\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "jump_back")
}

func TestCompileForLoop(t *testing.T) {
	prog := compile(t, "for x in xs\n  debug x\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "make_iterator")
	require.Contains(t, dis, "iter_next")
	require.Contains(t, dis, "jump_back")
}

func TestCompileClosureCapture(t *testing.T) {
	prog := compile(t, "let x = 1\nlet f = |y|\n  x + y\n")
	require.Len(t, prog.Funcs, 1)

	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "function ")
	require.Contains(t, dis, "capture")

	inner := compiler.Disassemble(prog.Funcs[0])
	require.Contains(t, inner, "add")
}

func TestCompileSimpleFunctionNoCaptures(t *testing.T) {
	prog := compile(t, "let f = |y|\n  y + 1\n")
	require.Len(t, prog.Funcs, 1)
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "simple_function")
	require.NotContains(t, dis, "\ncapture")
}

func TestCompileTryCatchFinally(t *testing.T) {
	prog := compile(t, "try\n  throw 1\ncatch e\n  debug e\nfinally\n  debug 0\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "try_start")
	require.Contains(t, dis, "try_end")
	require.Contains(t, dis, "throw")
}

func TestCompileMatchExpr(t *testing.T) {
	prog := compile(t, "match x\n  1\n    debug 1\n  _\n    debug 0\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "equal")
}

func TestCompileListAndMapLiterals(t *testing.T) {
	prog := compile(t, "let xs = [1, 2, 3]\nlet m = {\"a\": 1}\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "sequence_start")
	require.Contains(t, dis, "sequence_to_list")
	require.Contains(t, dis, "make_map")
	require.Contains(t, dis, "map_insert")
}

func TestCompileRangeLiteral(t *testing.T) {
	prog := compile(t, "let r = 1..10\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "range ")
}

func TestCompileInterpolatedString(t *testing.T) {
	prog := compile(t, "let x = 1\nlet s = \"value: {x}\"\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "string_start")
	require.Contains(t, dis, "string_push")
	require.Contains(t, dis, "string_finish")
}

func TestCompileFunctionCall(t *testing.T) {
	prog := compile(t, "foo(1, 2)\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "call ")
}

func TestCompileChainFieldAccess(t *testing.T) {
	prog := compile(t, "let y = x.field\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "access")
}

func TestCompileChainIndexAssign(t *testing.T) {
	prog := compile(t, "x[0] = 1\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "set_index")
}

func TestCompileShortCircuitAndOr(t *testing.T) {
	prog := compile(t, "let x = a and b\nlet y = a or b\n")
	dis := compiler.Disassemble(prog.Main)
	// both lower to a conditional jump around the right operand, not a
	// dedicated boolean opcode
	require.True(t, strings.Count(dis, "jump_if_false") >= 1)
}

func TestCompileBreakContinue(t *testing.T) {
	prog := compile(t, "loop\n  break\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "jump ")
}

func TestCompileImport(t *testing.T) {
	prog := compile(t, "import a.b.c x\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "import")
}

func TestCompileMapLiteralMetaEntry(t *testing.T) {
	prog := compile(t, "let m = {x: 1, @==: |other| self.x != other.x}\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "map_insert")
	require.Contains(t, dis, "meta_insert")
	require.NotContains(t, dis, "meta_insert_named")
}

func TestCompileMapLiteralNamedMetaEntry(t *testing.T) {
	prog := compile(t, "let m = {@meta greet: |how| how}\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "meta_insert_named")
}

func TestCompileMapLiteralShorthandEntry(t *testing.T) {
	prog := compile(t, "let x = 1\nlet m = {x}\n")
	dis := compiler.Disassemble(prog.Main)
	require.Contains(t, dis, "make_map")
	require.Contains(t, dis, "map_insert")
}

func TestCompileFuncLitImplicitReturn(t *testing.T) {
	prog := compile(t, "let f = |x| x + 1\nf(1)\n")
	require.Len(t, prog.Funcs, 1)
	dis := compiler.Disassemble(prog.Funcs[0])
	require.Contains(t, dis, "return")
}
