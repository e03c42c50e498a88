package token

import (
	"fmt"
	"io"
	"sort"
)

// Error is a single diagnostic produced by the lexer, parser or resolver,
// anchored at a source Position.
type Error struct {
	Pos Position
	Msg string
}

func (e Error) Error() string {
	if !e.Pos.IsValid() {
		return e.Msg
	}
	return e.Pos.String() + ": " + e.Msg
}

// ErrorList is an accumulating, sortable list of Errors. It implements
// error (via Err) and Unwrap() []error so that callers can use errors.Is
// / errors.As / errors.Join-style inspection on the aggregate failure.
type ErrorList []*Error

// Add appends an error at the given position to the list.
func (l *ErrorList) Add(pos Position, msg string) {
	*l = append(*l, &Error{Pos: pos, Msg: msg})
}

// Addf is like Add but formats msg with args.
func (l *ErrorList) Addf(pos Position, format string, args ...any) {
	l.Add(pos, fmt.Sprintf(format, args...))
}

// Reset empties the list.
func (l *ErrorList) Reset() { *l = (*l)[:0] }

// Len, Swap and Less implement sort.Interface, ordering by position.
func (l ErrorList) Len() int      { return len(l) }
func (l ErrorList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }
func (l ErrorList) Less(i, j int) bool {
	pi, pj := l[i].Pos, l[j].Pos
	if pi.Filename != pj.Filename {
		return pi.Filename < pj.Filename
	}
	if pi.Line != pj.Line {
		return pi.Line < pj.Line
	}
	return pi.Column < pj.Column
}

// Sort sorts the list by position and removes exact duplicate messages at
// the same position.
func (l *ErrorList) Sort() {
	sort.Sort(*l)
	out := (*l)[:0]
	var prev *Error
	for _, e := range *l {
		if prev != nil && *prev == *e {
			continue
		}
		out = append(out, e)
		prev = e
	}
	*l = out
}

// Err returns the list as an error, or nil if the list is empty.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// Unwrap allows the standard errors package to range over every individual
// Error in the list.
func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more errors)", l[0], len(l)-1)
	}
}

// PrintError prints err to w. If err is an ErrorList, each entry is printed
// on its own line; otherwise err is printed as-is.
func PrintError(w io.Writer, err error) {
	if el, ok := err.(ErrorList); ok {
		for _, e := range el {
			fmt.Fprintf(w, "%s\n", e)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(w, "%s\n", err)
	}
}
