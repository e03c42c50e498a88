package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpcodeString(t *testing.T) {
	require.Equal(t, "add", Add.String())
	require.Equal(t, "jump_if_false", JumpIfFalse.String())
	require.Contains(t, Opcode(255).String(), "illegal op")
}

func TestReverseLookupOpcode(t *testing.T) {
	op, ok := reverseLookupOpcode["multiply"]
	require.True(t, ok)
	require.Equal(t, Multiply, op)
}

func TestIsJump(t *testing.T) {
	require.True(t, isJump(Jump))
	require.True(t, isJump(IterNext))
	require.False(t, isJump(Add))
}

func TestOperandWidths(t *testing.T) {
	total, widths := operandWidths(Add)
	require.Equal(t, 3, total)
	require.Equal(t, []int{1, 1, 1}, widths)

	total, widths = operandWidths(IterNext)
	require.Equal(t, 4, total)
	require.Equal(t, []int{1, 1, 2}, widths)

	total, widths = operandWidths(Nop)
	require.Equal(t, 0, total)
	require.Empty(t, widths)
}

func TestAssemblerRegisterAllocation(t *testing.T) {
	a := newAssembler()
	r0 := a.allocReg()
	r1 := a.allocReg()
	require.Equal(t, 0, r0)
	require.Equal(t, 1, r1)

	a.freeReg(r0)
	r2 := a.allocReg()
	require.Equal(t, 0, r2, "freed register should be reused before growing")

	require.Equal(t, 2, a.maxReg)
}

func TestAssemblerRegRangeIsContiguousAndNotReused(t *testing.T) {
	a := newAssembler()
	base := a.allocRegRange(3)
	require.Equal(t, 0, base)
	next := a.allocReg()
	require.Equal(t, 3, next)
}

func TestAssemblerForwardJumpPatch(t *testing.T) {
	a := newAssembler()
	j := a.emitJumpFwd(Jump, 0, false)
	a.emitOp(Nop)
	a.patchJump(j)

	require.Equal(t, byte(Jump), a.code[0])
	require.Equal(t, byte(1), a.code[1], "offset should point just past the Nop")
}

func TestAssemblerBackwardJump(t *testing.T) {
	a := newAssembler()
	top := a.here()
	a.emitOp(Nop)
	a.emitJumpBack(top)
	require.Equal(t, byte(JumpBack), a.code[1])
}
