package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/parser"
	"github.com/mna/ember/lang/token"
	"github.com/mna/mainer"
)

func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return CompileFiles(stdio, args...)
}

// CompileFiles parses and lowers each of files to a Program independently
// (a Program's constant pool and register windows don't cross a chunk
// boundary) and prints its disassembled bytecode, main chunk first
// followed by its nested function chunks in the order they finished
// compiling (an inner function literal before the one enclosing it).
func CompileFiles(stdio mainer.Stdio, files ...string) error {
	fset := token.NewFileSet()
	var errs token.ErrorList
	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			errs.Add(token.Position{Filename: name}, err.Error())
			continue
		}
		tr, fileErrs := parser.ParseChunk(fset, name, src)
		if len(fileErrs) > 0 {
			errs = append(errs, fileErrs...)
			continue
		}
		prog, err := compiler.Compile(tr)
		if err != nil {
			errs.Add(token.Position{Filename: name}, err.Error())
			continue
		}
		fmt.Fprintf(stdio.Stdout, "-- %s --\n", name)
		fmt.Fprint(stdio.Stdout, compiler.Disassemble(prog.Main))
		for _, fn := range prog.Funcs {
			fmt.Fprint(stdio.Stdout, compiler.Disassemble(fn))
		}
	}
	if err := errs.Err(); err != nil {
		return printError(stdio, err)
	}
	return nil
}
