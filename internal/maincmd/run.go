package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/ember/lang/host"
	"github.com/mna/ember/lang/value"
	"github.com/mna/mainer"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunFiles(ctx, stdio, args...)
}

// RunFiles compiles and runs each of files in turn on its own host.VM
// (each file is an independent top-level program, not a multi-file
// build), printing the top-level block's value to stdout.
func RunFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			return printError(stdio, err)
		}

		v := host.New()
		v.Stdout = stdio.Stdout
		v.Stderr = stdio.Stderr
		v.Stdin = stdio.Stdin

		result, err := v.RunSource(ctx, name, src)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", name, err))
		}
		if _, ok := result.(value.Null); !ok {
			fmt.Fprintln(stdio.Stdout, result.String())
		}
	}
	return nil
}
