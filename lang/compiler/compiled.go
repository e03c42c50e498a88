package compiler

import "github.com/mna/ember/lang/ast"

// LineEntry maps a byte offset in a Chunk's Code to a source line, used to
// translate a faulting instruction pointer back into a reportable position
// without storing a line number per instruction.
type LineEntry struct {
	Pc   uint32
	Line int32
}

// Chunk is the compiled code of one function body (the top-level chunk is
// the implicit `main` function of a source file). Its Code is a sequence
// of Opcode + operand bytes; NumRegisters is how large a register window
// the VM must reserve when activating it.
type Chunk struct {
	Name         string
	Code         []byte
	NumRegisters int
	NumParams    int
	Flags        uint8 // FuncFlag bits
	Lines        []LineEntry

	// transient, used only while this chunk is the one being assembled.
	asm *assembler
}

// LineForPc returns the source line covering pc, via the last LineEntry
// whose Pc is <= pc (entries are emitted in increasing Pc order).
func (c *Chunk) LineForPc(pc uint32) int32 {
	line := int32(0)
	for _, e := range c.Lines {
		if e.Pc > pc {
			break
		}
		line = e.Line
	}
	return line
}

// Program is the result of compiling one source chunk: every function
// literal in the source becomes its own Chunk, all sharing one constant
// pool, with Main the entry point (the file's top-level statements).
type Program struct {
	Pool  *ast.ConstantPool
	Main  *Chunk
	Funcs []*Chunk // nested function chunks, in the order they were compiled
}
