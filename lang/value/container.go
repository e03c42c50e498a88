package value

import (
	"fmt"
)

// MutatedDuringIterationError is returned by a mutating operation on a
// List or Map that currently has one or more active iterators, per this
// module's sharing discipline: iteration over a container concurrently
// mutated fails loudly instead of silently producing a corrupt sequence.
type MutatedDuringIterationError struct{ Container string }

func (e *MutatedDuringIterationError) Error() string {
	return fmt.Sprintf("%s mutated during iteration", e.Container)
}

// List is a shared, mutable vector of Values: unqualified assignment
// aliases the same backing List, `copy` clones the one-level []Value
// slice below, and `deep_copy` additionally deep-copies each element.
type List struct {
	elems    []Value
	iterRefs int
}

var (
	_ Value       = (*List)(nil)
	_ Indexable   = (*List)(nil)
	_ HasSetIndex = (*List)(nil)
	_ Iterable    = (*List)(nil)
)

// NewList returns a List owning elems (the caller must not retain it).
func NewList(elems []Value) *List { return &List{elems: elems} }

func (l *List) String() string {
	s := "["
	for i, e := range l.elems {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + "]"
}
func (*List) Type() string  { return "list" }
func (l *List) Truth() Bool { return len(l.elems) > 0 }
func (l *List) Len() int    { return len(l.elems) }
func (l *List) Index(i int) Value { return l.elems[i] }

func (l *List) SetIndex(i int, v Value) error {
	if l.iterRefs > 0 {
		return &MutatedDuringIterationError{Container: "list"}
	}
	l.elems[i] = v
	return nil
}

// Append adds v to the end of the list, failing the same way SetIndex
// does if the list is currently being iterated.
func (l *List) Append(v Value) error {
	if l.iterRefs > 0 {
		return &MutatedDuringIterationError{Container: "list"}
	}
	l.elems = append(l.elems, v)
	return nil
}

func (l *List) Iterate() Iterator {
	l.iterRefs++
	return &listIterator{l: l, i: 0}
}

// Copy returns a new List sharing no backing array with l (one level).
func (l *List) Copy() *List {
	dup := make([]Value, len(l.elems))
	copy(dup, l.elems)
	return &List{elems: dup}
}

// DeepCopy returns a new List whose elements are themselves deep-copied.
func (l *List) DeepCopy() *List {
	dup := make([]Value, len(l.elems))
	for i, e := range l.elems {
		dup[i] = DeepCopy(e)
	}
	return &List{elems: dup}
}

type listIterator struct {
	l *List
	i int
}

func (it *listIterator) Next(p *Value) bool {
	if it.i >= len(it.l.elems) {
		return false
	}
	*p = it.l.elems[it.i]
	it.i++
	return true
}
func (it *listIterator) Done() { it.l.iterRefs-- }

// Tuple is an immutable vector of Values, freely shared.
type Tuple struct{ elems []Value }

var (
	_ Value     = Tuple{}
	_ Indexable = Tuple{}
	_ Iterable  = Tuple{}
	_ HasEqual  = Tuple{}
)

// NewTuple returns a Tuple containing elems (the caller must not modify
// elems afterward).
func NewTuple(elems []Value) Tuple { return Tuple{elems: elems} }

func (t Tuple) String() string {
	s := "("
	for i, e := range t.elems {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + ")"
}
func (Tuple) Type() string       { return "tuple" }
func (t Tuple) Truth() Bool      { return len(t.elems) > 0 }
func (t Tuple) Len() int         { return len(t.elems) }
func (t Tuple) Index(i int) Value { return t.elems[i] }
func (t Tuple) Iterate() Iterator { return &tupleIterator{elems: t.elems} }

func (t Tuple) Equals(y Value) (bool, error) {
	yt, ok := y.(Tuple)
	if !ok || len(t.elems) != len(yt.elems) {
		return false, nil
	}
	for i, xv := range t.elems {
		eq, err := Equal(xv, yt.elems[i])
		if err != nil || !eq {
			return eq, err
		}
	}
	return true, nil
}

type tupleIterator struct{ elems []Value }

func (it *tupleIterator) Next(p *Value) bool {
	if len(it.elems) == 0 {
		return false
	}
	*p = it.elems[0]
	it.elems = it.elems[1:]
	return true
}
func (it *tupleIterator) Done() {}

// Range is an integer range with optional inclusive upper bound.
type Range struct {
	Lo, Hi    int64
	Inclusive bool
}

var _ Iterable = Range{}

func (r Range) String() string {
	op := ".."
	if r.Inclusive {
		op = "..="
	}
	return fmt.Sprintf("%d%s%d", r.Lo, op, r.Hi)
}
func (Range) Type() string  { return "range" }
func (r Range) Truth() Bool { return r.Lo != r.Hi || r.Inclusive }
func (r Range) Iterate() Iterator {
	hi := r.Hi
	if r.Inclusive {
		hi++
	}
	return &rangeIterator{cur: r.Lo, hi: hi}
}

type rangeIterator struct{ cur, hi int64 }

func (it *rangeIterator) Next(p *Value) bool {
	if it.cur >= it.hi {
		return false
	}
	*p = Int(it.cur)
	it.cur++
	return true
}
func (it *rangeIterator) Done() {}
