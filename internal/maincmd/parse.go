package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/ember/lang/ast"
	"github.com/mna/ember/lang/parser"
	"github.com/mna/ember/lang/token"
	"github.com/mna/mainer"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFiles(stdio, args...)
}

// ParseFiles parses each of files (sharing one token.FileSet, so spans
// across files stay globally ordered) and dumps the resulting AST as an
// indented s-expression per file.
func ParseFiles(stdio mainer.Stdio, files ...string) error {
	fset := token.NewFileSet()
	var errs token.ErrorList
	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			errs.Add(token.Position{Filename: name}, err.Error())
			continue
		}
		tr, fileErrs := parser.ParseChunk(fset, name, src)
		errs = append(errs, fileErrs...)
		fmt.Fprintf(stdio.Stdout, "-- %s --\n", name)
		if entry, ok := tr.EntryPoint(); ok {
			fmt.Fprint(stdio.Stdout, ast.Dump(tr, entry))
		}
	}
	if err := errs.Err(); err != nil {
		return printError(stdio, err)
	}
	return nil
}
