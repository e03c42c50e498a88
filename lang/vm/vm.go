package vm

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"sync/atomic"

	"github.com/mna/ember/lang/ast"
	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/value"
)

// Thread executes compiled chunks against a shared constant pool and
// global namespace, grounded on the teacher's lang/machine.Thread: a
// switch-based fetch-decode-execute loop, step-counted cooperative
// cancellation, and context.Context-driven external cancellation.
type Thread struct {
	// Name is an optional name that describes the thread, mostly for
	// debugging and traceback rendering.
	Name string

	// Stdout, Stderr and Stdin are the standard I/O abstractions reachable
	// from host-bound natives (print, input...). If nil, os.Stdout,
	// os.Stderr and os.Stdin are used respectively.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// MaxSteps is the maximum number of bytecode instructions, a
	// deliberately unspecified measure of execution time, before the
	// thread cancels itself. A value <= 0 means no limit.
	MaxSteps int

	// DisableRecursion rejects a call into a Chunk already active on this
	// thread's call stack, a safety rail for untrusted scripts.
	DisableRecursion bool

	// MaxCallStackDepth bounds nested call depth. A value <= 0 means no
	// limit.
	MaxCallStackDepth int

	// Globals is the thread's top-level namespace, read by LoadNonLocal.
	// Run creates an empty map when it is nil; executing a program adds no
	// entries to it (`export` bindings go to Exports).
	Globals map[string]value.Value

	// ModuleLoader resolves an `import` path to a compiled Program; nil
	// means import is unsupported on this thread. A Program, rather than a
	// bare Chunk, is required because the module was compiled against its
	// own lang/ast.Tree and therefore owns its own constant pool and
	// nested function Chunks, entirely distinct from the importing
	// program's.
	ModuleLoader func(name string) (*compiler.Program, error)

	// Exports holds the top-level `export` bindings recorded by the last
	// Run, nil if the program exported nothing. A host uses this to treat
	// a compiled script as a module in its own right (see lang/host's
	// SetPrelude), the same mechanism importModule uses for `import`.
	Exports *value.Map

	pool  *ast.ConstantPool
	funcs []*compiler.Chunk

	ctx       context.Context
	ctxCancel context.CancelFunc
	cancelled atomic.Bool

	steps, maxSteps uint64
	callStack       []*Frame

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

// Run executes prog's already compiled entry point to completion, returning
// the top-level block's value.
func (th *Thread) Run(ctx context.Context, prog *compiler.Program) (value.Value, error) {
	if th.ctx != nil {
		return nil, newError(KindError, "thread %s is already executing a program", th.Name)
	}
	th.pool = prog.Pool
	th.funcs = prog.Funcs
	th.init(ctx)

	fr := newFrame(prog.Main, "main")
	v, err := th.run(fr)
	if fr.exports != nil {
		th.Exports = fr.exports
	}
	return v, err
}

func (th *Thread) init(ctx context.Context) {
	if th.MaxSteps <= 0 {
		th.maxSteps-- // (MaxUint64)
	} else {
		th.maxSteps = uint64(th.MaxSteps)
	}
	if th.Globals == nil {
		th.Globals = make(map[string]value.Value)
	}
	if th.Stdout != nil {
		th.stdout = th.Stdout
	} else {
		th.stdout = os.Stdout
	}
	if th.Stderr != nil {
		th.stderr = th.Stderr
	} else {
		th.stderr = os.Stderr
	}
	if th.Stdin != nil {
		th.stdin = th.Stdin
	} else {
		th.stdin = os.Stdin
	}
	if ctx == nil {
		th.ctx = context.Background()
		th.ctxCancel = func() {}
		return
	}
	th.ctx, th.ctxCancel = context.WithCancel(ctx)
	go func() {
		<-th.ctx.Done()
		th.cancelled.Store(true)
	}()
}

// spawnChild returns a fresh Thread sharing this thread's configuration,
// globals and constant pool but its own call stack and step counter, used
// to give each generator activation (Coroutine) an independent register
// file and frame stack.
func (th *Thread) spawnChild() *Thread {
	child := &Thread{
		Name:              th.Name + ".generator",
		Stdout:            th.Stdout,
		Stderr:            th.Stderr,
		Stdin:             th.Stdin,
		MaxSteps:          th.MaxSteps,
		DisableRecursion:  th.DisableRecursion,
		MaxCallStackDepth: th.MaxCallStackDepth,
		Globals:           th.Globals,
		ModuleLoader:      th.ModuleLoader,
		pool:              th.pool,
		funcs:             th.funcs,
	}
	child.init(th.ctx)
	return child
}

// call invokes fn with args, used both by the Call/CallInstance opcodes
// and by meta-protocol dispatch (operator overloads are just calls).
func (th *Thread) call(fn value.Value, args []value.Value) (value.Value, error) {
	switch fn := fn.(type) {
	case *value.Function:
		return th.callFunction(fn, args)
	case *value.NativeFunction:
		return fn.Func(args)
	default:
		return nil, newError(KindTypeError, "%s is not callable", fn.Type())
	}
}

func (th *Thread) callFunction(fn *value.Function, args []value.Value) (value.Value, error) {
	if th.DisableRecursion {
		for _, fr := range th.callStack {
			if fr.chunk == fn.Chunk {
				return nil, newError(KindRecursion, "function %s called recursively", fn.Name())
			}
		}
	}
	if th.MaxCallStackDepth > 0 && len(th.callStack) >= th.MaxCallStackDepth {
		return nil, newError(KindStackOverflow, "call stack depth exceeded (%d)", th.MaxCallStackDepth)
	}

	chunk := fn.Chunk
	regs := make([]value.Value, chunk.NumRegisters)
	ncap := len(fn.Captures)
	copy(regs[:ncap], fn.Captures)
	bindParams(regs[ncap:], chunk, args)

	if chunk.Flags&uint8(compiler.FuncFlagGenerator) != 0 {
		return th.newCoroutine(fn, regs), nil
	}

	fr := newFrame(chunk, fn.FuncName)
	fr.regs = regs
	return th.run(fr)
}

// bindParams fills dst (the parameter portion of a new frame's registers)
// from args, packing any surplus into a trailing List when the chunk is
// variadic and padding missing positional arguments with Null otherwise. An
// instance chunk (a method literal bound in a meta-table) additionally
// consumes args[0] as `self`, occupying dst[0] ahead of the declared
// parameters: CallInstance supplies it explicitly, and meta-protocol
// dispatch (lang/vm/meta.go) supplies it implicitly by always passing the
// receiver as its first call argument.
func bindParams(dst []value.Value, chunk *compiler.Chunk, args []value.Value) {
	if chunk.Flags&uint8(compiler.FuncFlagInstance) != 0 {
		if len(args) > 0 {
			dst[0] = args[0]
			args = args[1:]
		} else {
			dst[0] = value.NullValue
		}
		dst = dst[1:]
	}
	nparams := chunk.NumParams
	if chunk.Flags&uint8(compiler.FuncFlagVariadic) != 0 && nparams > 0 {
		fixed := nparams - 1
		for i := 0; i < fixed; i++ {
			if i < len(args) {
				dst[i] = args[i]
			} else {
				dst[i] = value.NullValue
			}
		}
		var rest []value.Value
		if len(args) > fixed {
			rest = append(rest, args[fixed:]...)
		}
		dst[fixed] = value.NewList(rest)
		return
	}
	for i := 0; i < nparams; i++ {
		if i < len(args) {
			dst[i] = args[i]
		} else {
			dst[i] = value.NullValue
		}
	}
}

func readU8(code []byte, pc *uint32) int {
	b := code[*pc]
	*pc++
	return int(b)
}
func readU16(code []byte, pc *uint32) int {
	v := binary.LittleEndian.Uint16(code[*pc:])
	*pc += 2
	return int(v)
}
func readU32(code []byte, pc *uint32) int {
	v := binary.LittleEndian.Uint32(code[*pc:])
	*pc += 4
	return int(v)
}

// run executes fr to completion: a Return, an uncaught error/throw, or (for
// a generator's frame) a Yield handed off through fr.coro.
func (th *Thread) run(fr *Frame) (value.Value, error) {
	th.callStack = append(th.callStack, fr)
	defer func() { th.callStack = th.callStack[:len(th.callStack)-1] }()

	regs := fr.regs
	code := fr.chunk.Code
	pc := fr.pc

	for {
		th.steps++
		if th.steps >= th.maxSteps {
			th.ctxCancel()
			return nil, newError(KindCancelled, "thread cancelled: step budget exceeded")
		}
		if th.cancelled.Load() {
			return nil, newError(KindCancelled, "thread cancelled: %v", context.Cause(th.ctx))
		}

		fr.pc = pc
		op := compiler.Opcode(code[pc])
		pc++

		result, done, err := th.step(fr, op, code, &pc, regs)
		if err != nil {
			if n := len(fr.handlers); n > 0 {
				h := fr.handlers[n-1]
				fr.handlers = fr.handlers[:n-1]
				regs[h.catchReg] = errorToValue(err)
				pc = h.target
				continue
			}
			return nil, err
		}
		if done {
			return result, nil
		}
	}
}
