package value

import (
	"fmt"

	"github.com/mna/ember/lang/compiler"
)

// Function is a compiled closure: a chunk of bytecode plus the register
// values it captured from its enclosing frame at creation time, in the
// order compiler.Chunk's Function/Capture instructions bound them.
type Function struct {
	Chunk    *compiler.Chunk
	Captures []Value
	FuncName string
}

var _ Callable = (*Function)(nil)

func (f *Function) String() string { return fmt.Sprintf("function %s", f.FuncName) }
func (*Function) Type() string     { return "function" }
func (*Function) Truth() Bool      { return True }
func (f *Function) Name() string   { return f.FuncName }

// NativeFunc is the Go-side implementation signature for a NativeFunction.
type NativeFunc func(args []Value) (Value, error)

// NativeFunction wraps a host-provided Go function as a callable value,
// the embedding API's escape hatch for functionality the scripting
// language cannot express on its own (I/O, host callbacks).
type NativeFunction struct {
	FuncName string
	Func     NativeFunc
}

var _ Callable = (*NativeFunction)(nil)

func (n *NativeFunction) String() string { return fmt.Sprintf("native function %s", n.FuncName) }
func (*NativeFunction) Type() string     { return "native_function" }
func (*NativeFunction) Truth() Bool      { return True }
func (n *NativeFunction) Name() string   { return n.FuncName }
