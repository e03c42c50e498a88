// Package value implements the runtime representation of every value the
// VM manipulates: a closed set of concrete types behind the Value
// interface, sharing a handful of optional capability interfaces
// (Iterable, Indexable, HasMetatable, HasAttrs...) the VM type-switches
// on to dispatch operators and attribute access.
package value

import "github.com/mna/ember/lang/token"

// Value is the interface implemented by every runtime value.
type Value interface {
	String() string
	Type() string
	Truth() Bool
}

// Ordered is implemented by values that support relational comparison
// against another value of the same concrete type.
type Ordered interface {
	Value
	Cmp(y Value) (int, error)
}

// HasEqual is implemented by values with custom equality, for types that
// are not Ordered but should not fall back to identity comparison.
type HasEqual interface {
	Value
	Equals(y Value) (bool, error)
}

// Iterable abstracts a sequence that may be iterated but whose length is
// not necessarily known ahead of time (a Range, a generator Iterator).
type Iterable interface {
	Value
	Iterate() Iterator
}

// Sequence is an Iterable of known length.
type Sequence interface {
	Iterable
	Len() int
}

// Indexable is a sequence of known length supporting random access.
type Indexable interface {
	Value
	Index(i int) Value
	Len() int
}

// HasSetIndex is an Indexable whose elements may be assigned (x[i] = y).
type HasSetIndex interface {
	Indexable
	SetIndex(i int, v Value) error
}

// Iterator hands out a sequence's elements one at a time. Done must be
// called once the caller stops consuming it, whether or not it was
// exhausted, so a container can release its mutation guard.
type Iterator interface {
	Next(p *Value) bool
	Done()
}

// Bidirectional iterators additionally support consuming from the back,
// used by NextBack1 in lang/value/iterator.
type Bidirectional interface {
	Iterator
	NextBack(p *Value) bool
}

// Mapping is a mapping from keys to values, such as a Map.
type Mapping interface {
	Value
	Get(k Value) (v Value, found bool, err error)
}

// HasSetKey supports map update via x[k] = v.
type HasSetKey interface {
	Mapping
	SetKey(k, v Value) error
}

// Side indicates which operand of a binary operator the receiver is.
type Side bool

const (
	Left  Side = false
	Right Side = true
)

// HasBinary is implemented by values usable as either operand of a binary
// operator. An implementation may decline by returning (nil, nil), in
// which case the caller falls back to the default operator semantics or
// the other operand's HasBinary implementation.
type HasBinary interface {
	Value
	Binary(op token.Token, y Value, side Side) (Value, error)
}

// HasUnary is implemented by values usable as the operand of a unary
// operator (`-x`, `not x`).
type HasUnary interface {
	Value
	Unary(op token.Token) (Value, error)
}

// HasMetatable is implemented by values whose operator/protocol behavior
// can be customized through a meta-table (Map and Object).
type HasMetatable interface {
	Value
	Metatable() *MetaTable
	SetMetatable(*MetaTable)
}

// HasAttrs is implemented by values whose fields/methods are readable
// through a dot expression (y = x.f).
type HasAttrs interface {
	Value
	// Attr returns (nil, nil) to mean "no such field", not an error.
	Attr(name string) (Value, error)
	AttrNames() []string
}

// HasSetField is implemented by values whose fields are writable through
// a dot expression (x.f = y).
type HasSetField interface {
	HasAttrs
	SetField(name string, v Value) error
}

// Callable is implemented by any value usable as the target of a call
// expression: Function and NativeFunction.
type Callable interface {
	Value
	Name() string
}

// NoSuchAttrError is returned by Attr/SetField to report a missing field;
// the VM may augment the message with a misspelling hint.
type NoSuchAttrError string

func (e NoSuchAttrError) Error() string { return string(e) }
