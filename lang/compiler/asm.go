package compiler

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/mna/ember/lang/ast"
)

// assembler builds one Chunk's bytecode: it owns register allocation for
// the function currently being compiled and the low-level byte emission,
// leaving compiler.go free to focus on AST traversal and register
// bookkeeping across nested scopes. Kept as its own type (rather than
// folded into compiler) because a function literal nested inside another
// gets its own assembler/Chunk pair while sharing the enclosing
// compiler's constant pool.
type assembler struct {
	code  []byte
	lines []LineEntry
	cur   *ast.Tree // for position -> line translation

	nextReg  int
	maxReg   int
	freeRegs []int // registers released by freeReg, reused before growing nextReg
}

func newAssembler() *assembler {
	return &assembler{}
}

// allocReg reserves and returns the next free register.
func (a *assembler) allocReg() int {
	if n := len(a.freeRegs); n > 0 {
		r := a.freeRegs[n-1]
		a.freeRegs = a.freeRegs[:n-1]
		return r
	}
	r := a.nextReg
	a.nextReg++
	if a.nextReg > a.maxReg {
		a.maxReg = a.nextReg
	}
	if a.nextReg > 256 {
		panic("compiler: function uses more than 256 registers")
	}
	return r
}

// allocRegRange reserves n contiguous fresh registers (used for call
// argument windows and sequence-literal bases, which must be contiguous).
func (a *assembler) allocRegRange(n int) int {
	base := a.nextReg
	a.nextReg += n
	if a.nextReg > a.maxReg {
		a.maxReg = a.nextReg
	}
	if a.nextReg > 256 {
		panic("compiler: function uses more than 256 registers")
	}
	return base
}

// freeReg releases a register for reuse by a later allocReg call. Only
// ever used for short-lived temporaries, never for a local variable's
// fixed register.
func (a *assembler) freeReg(r int) {
	a.freeRegs = append(a.freeRegs, r)
}

func (a *assembler) markLine(line int32) {
	pc := uint32(len(a.code))
	if n := len(a.lines); n > 0 && a.lines[n-1].Line == line {
		return
	}
	a.lines = append(a.lines, LineEntry{Pc: pc, Line: line})
}

func (a *assembler) emitOp(op Opcode) {
	a.code = append(a.code, byte(op))
}

func (a *assembler) emitU8(b byte) { a.code = append(a.code, b) }

func (a *assembler) emitU16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	a.code = append(a.code, buf[:]...)
}

func (a *assembler) emitU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	a.code = append(a.code, buf[:]...)
}

// emit1 emits a fixed-arity instruction with 1 single-byte operand.
func (a *assembler) emit1(op Opcode, x int) {
	a.emitOp(op)
	a.emitU8(byte(x))
}

func (a *assembler) emit2(op Opcode, x, y int) {
	a.emitOp(op)
	a.emitU8(byte(x))
	a.emitU8(byte(y))
}

func (a *assembler) emit3(op Opcode, x, y, z int) {
	a.emitOp(op)
	a.emitU8(byte(x))
	a.emitU8(byte(y))
	a.emitU8(byte(z))
}

// emitLoadConst picks the 1/2/3-byte LoadXxx opcode variant based on the
// constant pool's encoded width for idx, per spec.md's variable-width
// constant index scheme.
func (a *assembler) emitLoadConst(dst int, idx ast.ConstantIndex, op8, op16, op24 Opcode) {
	switch ast.EncodedWidth(idx) {
	case 1:
		a.emit2(op8, dst, int(idx))
	case 2:
		a.emitOp(op16)
		a.emitU8(byte(dst))
		a.emitU16(uint16(idx))
	default:
		a.emitOp(op24)
		a.emitU8(byte(dst))
		a.emitU32(uint32(idx)) // low 3 bytes used; 4th always zero for idx < 2^24
	}
}

// pendingJump is a forward jump whose 2-byte offset operand is back-patched
// once the target address is known.
type pendingJump struct {
	patchAt uint32 // byte offset of the u16 operand to patch
}

// emitJumpFwd emits a forward jump (Jump/JumpIfTrue/JumpIfFalse/TryStart)
// with a placeholder offset, returning a handle to patch later via
// patchJump.
func (a *assembler) emitJumpFwd(op Opcode, cond int, hasCond bool) pendingJump {
	a.emitOp(op)
	if hasCond {
		a.emitU8(byte(cond))
	}
	at := uint32(len(a.code))
	a.emitU16(0)
	return pendingJump{patchAt: at}
}

// emitIterJumpFwd emits IterNext/IterNextTemp/IterNextQuiet, which carry a
// one- or two-register prefix ahead of their u16 "jump if exhausted"
// offset, with a placeholder offset to patch once the loop exit is known.
func (a *assembler) emitIterJumpFwd(op Opcode, regs ...int) pendingJump {
	a.emitOp(op)
	for _, r := range regs {
		a.emitU8(byte(r))
	}
	at := uint32(len(a.code))
	a.emitU16(0)
	return pendingJump{patchAt: at}
}

// patchJump backfills a forward jump's offset to land at the current end
// of the code (the instruction right after the jump's operand bytes
// serves as offset 0, matching the VM's "ip += offset" semantics).
func (a *assembler) patchJump(j pendingJump) {
	target := uint32(len(a.code))
	rel := target - (j.patchAt + 2)
	if rel > 0xFFFF {
		panic("compiler: jump target too far (over 65535 bytes)")
	}
	binary.LittleEndian.PutUint16(a.code[j.patchAt:], uint16(rel))
}

// emitJumpBack emits a backward jump to a previously recorded code offset
// (the top of a while/until/loop, typically).
func (a *assembler) emitJumpBack(target uint32) {
	cur := uint32(len(a.code)) + 1 + 2 // opcode + u16 operand
	rel := cur - target
	if rel > 0xFFFF {
		panic("compiler: jump target too far (over 65535 bytes)")
	}
	a.emitOp(JumpBack)
	a.emitU16(uint16(rel))
}

func (a *assembler) here() uint32 { return uint32(len(a.code)) }

func (a *assembler) chunk(name string, numParams int, flags uint8) *Chunk {
	return &Chunk{
		Name:         name,
		Code:         a.code,
		NumRegisters: a.maxReg,
		NumParams:    numParams,
		Flags:        flags,
		Lines:        a.lines,
	}
}

// Disassemble renders chunk's bytecode as a flat, human-readable listing
// for tests and debugging, one instruction per line: "pc: mnemonic operands".
func Disassemble(chunk *Chunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "function %s(params=%d, registers=%d)\n", chunk.Name, chunk.NumParams, chunk.NumRegisters)
	pc := 0
	code := chunk.Code
	for pc < len(code) {
		start := pc
		op := Opcode(code[pc])
		pc++
		n, operands := operandWidths(op)
		vals := make([]int, len(operands))
		for i, w := range operands {
			switch w {
			case 1:
				vals[i] = int(code[pc])
			case 2:
				vals[i] = int(binary.LittleEndian.Uint16(code[pc:]))
			case 4:
				vals[i] = int(binary.LittleEndian.Uint32(code[pc:]))
			}
			pc += w
		}
		_ = n
		fmt.Fprintf(&sb, "%4d: %-16s", start, op.String())
		for _, v := range vals {
			fmt.Fprintf(&sb, " %d", v)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// operandWidths returns the byte width of each operand of op, in order,
// for the disassembler to skip over correctly. This must stay in lockstep
// with the comments in the Opcode const block and with the VM's decoder.
func operandWidths(op Opcode) (total int, operands []int) {
	var w []int
	switch op {
	case Nop, TryEnd, RangeFull:
		// no operands
	case SetNull, SetFalse, SetTrue, Set0, Set1, Return, Yield, Throw, Debug, StringFinish:
		w = []int{1}
	case Negate, Not, Size, IsTuple, IsList, SequenceToList, SequenceToTuple,
		TempTupleToTuple, MakeIterator, RangeTo, RangeToInclusive, RangeFrom, Copy:
		w = []int{1, 1}
	case SetNumberU8, LoadFloat, LoadInt, LoadString, LoadNonLocal, MakeMap, SequenceStart,
		StringStart, SequencePush, CheckType, StringPush:
		w = []int{1, 1}
	case LoadFloat16, LoadInt16, LoadString16, LoadNonLocal16, SimpleFunction, Import:
		w = []int{1, 2}
	case LoadFloat24, LoadInt24, LoadString24, LoadNonLocal24, MakeMap32, SequenceStart32,
		StringStart32:
		w = []int{1, 4}
	case TempIndex, SliceFrom, SliceTo, MapInsert, MetaInsert, MetaInsertNamed,
		MetaExport, MetaExportNamed, AccessString, Range, RangeInclusive, SequencePushN,
		Index, CheckSize, Access, MakeTempTuple:
		w = []int{1, 1, 1}
	case Access16:
		w = []int{1, 1, 2}
	case Access24:
		w = []int{1, 1, 4}
	case Add, Subtract, Multiply, Divide, Remainder, Less, LessOrEqual, Greater,
		GreaterOrEqual, Equal, NotEqual, SetIndex:
		w = []int{1, 1, 1}
	case IterNext, IterNextTemp:
		w = []int{1, 1, 2}
	case IterNextQuiet, JumpIfTrue, JumpIfFalse, TryStart:
		w = []int{1, 2}
	case Jump, JumpBack:
		w = []int{2}
	case Call:
		w = []int{1, 1, 1, 1}
	case CallInstance:
		w = []int{1, 1, 1, 1, 1}
	case Function:
		w = []int{1, 2, 1, 1, 2}
	case Capture:
		w = []int{1, 1, 1, 1}
	case ValueExport:
		w = []int{2, 1}
	}
	sum := 0
	for _, x := range w {
		sum += x
	}
	return sum, w
}
