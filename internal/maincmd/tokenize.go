package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/ember/lang/lexer"
	"github.com/mna/ember/lang/token"
	"github.com/mna/mainer"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(stdio, token.PosLong, args...)
}

// TokenizeFiles scans each of files independently (tokenizing doesn't need
// a shared constant pool the way parsing does) and prints its token
// stream, one "pos: token literal" line per token.
func TokenizeFiles(stdio mainer.Stdio, posMode token.PosMode, files ...string) error {
	var errs token.ErrorList
	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			errs.Add(token.Position{Filename: name}, err.Error())
			continue
		}
		tokenizeFile(stdio, posMode, name, src)
	}
	if err := errs.Err(); err != nil {
		return printError(stdio, err)
	}
	return nil
}

func tokenizeFile(stdio mainer.Stdio, posMode token.PosMode, name string, src []byte) {
	fset := token.NewFileSet()
	file := fset.AddFile(name, -1, len(src))

	var errs token.ErrorList
	var s lexer.Scanner
	s.Init(file, src, func(pos token.Position, msg string) { errs.Add(pos, msg) })

	for {
		var val token.Value
		tok := s.Scan(&val)
		fmt.Fprintf(stdio.Stdout, "%s: %s", token.FormatPos(posMode, file, val.Pos, true), tok)
		if lit := tok.Literal(val); lit != "" {
			fmt.Fprintf(stdio.Stdout, " %s", lit)
		}
		fmt.Fprintln(stdio.Stdout)
		if tok == token.EOF {
			break
		}
	}
	if err := errs.Err(); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
	}
}
