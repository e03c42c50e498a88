// Package host is the embedding surface for this module: it compiles
// source into a runnable compiler.Program and drives a lang/vm.Thread
// against it, the thin layer a Go program links against instead of
// reaching into lang/parser/lang/compiler/lang/vm directly.
package host

import (
	"context"
	"fmt"
	"io"

	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/parser"
	"github.com/mna/ember/lang/token"
	"github.com/mna/ember/lang/value"
	"github.com/mna/ember/lang/vm"
)

// VM is an embeddable instance of the language: a constant file set (for
// diagnostics across every script compiled on it), a set of globals
// shared by every program it runs, and the execution limits applied to
// each Thread it spawns.
type VM struct {
	Fset *token.FileSet

	// Stdout, Stderr and Stdin are forwarded to every Thread this VM runs;
	// nil means the Thread falls back to the process' own standard I/O.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// MaxSteps, DisableRecursion and MaxCallStackDepth are forwarded to
	// every Thread this VM runs, see lang/vm.Thread for their semantics.
	MaxSteps          int
	DisableRecursion  bool
	MaxCallStackDepth int

	globals      map[string]value.Value
	moduleLoader func(name string) (*compiler.Program, error)
}

// New returns a VM with its own file set and an empty global namespace.
func New() *VM {
	return &VM{Fset: token.NewFileSet(), globals: make(map[string]value.Value)}
}

// SetGlobal binds name in every program this VM subsequently runs,
// typically a *value.NativeFunction exposing a host capability (print,
// a file-system shim, an application callback) to scripts.
func (v *VM) SetGlobal(name string, val value.Value) {
	v.globals[name] = val
}

// SetPrelude compiles and runs src once, folding its exported bindings
// into this VM's globals, for host-provided library code written in the
// scripting language itself rather than as Go natives.
func (v *VM) SetPrelude(ctx context.Context, filename string, src []byte) error {
	prog, err := v.CompileProgram(filename, src)
	if err != nil {
		return err
	}
	th := v.newThread()
	if _, err := th.Run(ctx, prog); err != nil {
		return fmt.Errorf("host: prelude %s: %w", filename, err)
	}
	if th.Exports != nil {
		for _, kv := range th.Exports.Items() {
			v.globals[string(kv.Index(0).(value.String))] = kv.Index(1)
		}
	}
	return nil
}

// SetModuleLoader installs the function every Thread's `import` statement
// resolves a module path through; nil (the default) makes import fail.
func (v *VM) SetModuleLoader(loader func(name string) (*compiler.Program, error)) {
	v.moduleLoader = loader
}

// Compile parses and lowers src (named filename for diagnostics) and
// returns only the main Chunk, without the nested function Chunks or the
// constant pool. Run and a ModuleLoader take the *compiler.Program that
// CompileProgram returns instead.
func (v *VM) Compile(filename string, src []byte) (*compiler.Chunk, error) {
	tree, errs := parser.ParseChunk(v.Fset, filename, src)
	if len(errs) > 0 {
		return nil, errs.Err()
	}
	prog, err := compiler.Compile(tree)
	if err != nil {
		return nil, err
	}
	return prog.Main, nil
}

// CompileProgram is like Compile but keeps the tree's nested function
// Chunks and constant pool attached, the form Run needs.
func (v *VM) CompileProgram(filename string, src []byte) (*compiler.Program, error) {
	tree, errs := parser.ParseChunk(v.Fset, filename, src)
	if len(errs) > 0 {
		return nil, errs.Err()
	}
	return compiler.Compile(tree)
}

// Run executes prog on a freshly spawned Thread configured from this VM's
// globals and limits, returning the top-level block's value.
func (v *VM) Run(ctx context.Context, prog *compiler.Program) (value.Value, error) {
	th := v.newThread()
	return th.Run(ctx, prog)
}

// RunSource compiles and runs src in one step, the common case for a
// one-shot script (the `ember run` CLI subcommand, a test fixture).
func (v *VM) RunSource(ctx context.Context, filename string, src []byte) (value.Value, error) {
	prog, err := v.CompileProgram(filename, src)
	if err != nil {
		return nil, err
	}
	return v.Run(ctx, prog)
}

func (v *VM) newThread() *vm.Thread {
	globals := make(map[string]value.Value, len(v.globals))
	for k, val := range v.globals {
		globals[k] = val
	}
	return &vm.Thread{
		Stdout:            v.Stdout,
		Stderr:            v.Stderr,
		Stdin:             v.Stdin,
		MaxSteps:          v.MaxSteps,
		DisableRecursion:  v.DisableRecursion,
		MaxCallStackDepth: v.MaxCallStackDepth,
		Globals:           globals,
		ModuleLoader:      v.moduleLoader,
	}
}
