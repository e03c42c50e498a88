package vm

import (
	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/value"
)

// handler records one active try block's catch target: where to jump and
// which register receives the caught value. Frames keep these as a stack
// so the innermost enclosing try catches first, matching nested try/catch
// lexically.
type handler struct {
	catchReg int
	target   uint32
}

// Frame is one activation of a Chunk: its register window, program
// counter, and the stack of currently-active try handlers. Exports holds
// the bindings a module-level frame has exported via the `export`
// statement, nil for an ordinary function frame.
type Frame struct {
	chunk    *compiler.Chunk
	regs     []value.Value
	pc       uint32
	handlers []handler
	name     string

	exports *value.Map
	coro    *Coroutine // non-nil when this frame is a generator's body
}

func newFrame(chunk *compiler.Chunk, name string) *Frame {
	return &Frame{chunk: chunk, regs: make([]value.Value, chunk.NumRegisters), name: name}
}

// export records a module-level `export` binding, lazily allocating the
// exports map on first use (an ordinary function frame never calls this).
func (fr *Frame) export(name string, v value.Value) {
	if fr.exports == nil {
		fr.exports = value.NewMap(1)
	}
	_ = fr.exports.SetKey(value.String(name), v)
}
