package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dolthub/swiss"
)

// Map is a shared, mutable insertion-ordered mapping from a key-hashable
// Value to a Value, with an optional meta-table for operator overloading.
// Like List, unqualified assignment aliases the same backing Map. The
// string-hash-to-slot index is backed by swiss.Map rather than a native Go
// map, for the same open-addressing/SIMD-probe tradeoff the map type this
// one is adapted from makes; the entries slice (not the index) carries
// insertion order and tombstones, since swiss.Map has no stable iteration
// order of its own.
type Map struct {
	index    *swiss.Map[string, int]
	entries  []mapEntry
	meta     *MetaTable
	iterRefs int
}

type mapEntry struct {
	key, val Value
	deleted  bool
}

var (
	_ Value        = (*Map)(nil)
	_ Mapping      = (*Map)(nil)
	_ HasSetKey    = (*Map)(nil)
	_ Iterable     = (*Map)(nil)
	_ HasMetatable = (*Map)(nil)
)

// NewMap returns an empty Map with capacity hint n.
func NewMap(n int) *Map {
	return &Map{index: swiss.NewMap[string, int](uint32(n)), entries: make([]mapEntry, 0, n)}
}

func (m *Map) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	for _, e := range m.entries {
		if e.deleted {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(e.key.String())
		sb.WriteString(": ")
		sb.WriteString(e.val.String())
	}
	sb.WriteByte('}')
	return sb.String()
}
func (*Map) Type() string  { return "map" }
func (m *Map) Truth() Bool { return m.Len() > 0 }

// Len returns the number of live (non-deleted) entries.
func (m *Map) Len() int {
	n := 0
	for _, e := range m.entries {
		if !e.deleted {
			n++
		}
	}
	return n
}

func (m *Map) Metatable() *MetaTable     { return m.meta }
func (m *Map) SetMetatable(mt *MetaTable) { m.meta = mt }

// hashKey produces a string uniquely identifying a hashable key value.
// Only the value kinds the language allows as map keys are supported;
// anything else is a compiler/runtime invariant violation, reported as
// an error rather than panicking so a misbehaving host Object can't
// crash the VM.
func hashKey(v Value) (string, error) {
	switch v := v.(type) {
	case Null:
		return "n:", nil
	case Bool:
		return "b:" + v.String(), nil
	case Int:
		return "i:" + strconv.FormatInt(int64(v), 10), nil
	case Float:
		return "f:" + strconv.FormatFloat(float64(v), 'g', -1, 64), nil
	case String:
		return "s:" + string(v), nil
	case Tuple:
		var sb strings.Builder
		sb.WriteString("t:(")
		for i := 0; i < v.Len(); i++ {
			k, err := hashKey(v.Index(i))
			if err != nil {
				return "", err
			}
			sb.WriteString(k)
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
		return sb.String(), nil
	default:
		return "", fmt.Errorf("unhashable type: %s", v.Type())
	}
}

func (m *Map) Get(k Value) (Value, bool, error) {
	hk, err := hashKey(k)
	if err != nil {
		return nil, false, err
	}
	i, ok := m.index.Get(hk)
	if !ok || m.entries[i].deleted {
		return nil, false, nil
	}
	return m.entries[i].val, true, nil
}

func (m *Map) SetKey(k, v Value) error {
	if m.iterRefs > 0 {
		return &MutatedDuringIterationError{Container: "map"}
	}
	hk, err := hashKey(k)
	if err != nil {
		return err
	}
	if i, ok := m.index.Get(hk); ok {
		m.entries[i].val = v
		m.entries[i].deleted = false
		return nil
	}
	m.index.Put(hk, len(m.entries))
	m.entries = append(m.entries, mapEntry{key: k, val: v})
	return nil
}

// Delete removes k from the map, a no-op if absent.
func (m *Map) Delete(k Value) error {
	if m.iterRefs > 0 {
		return &MutatedDuringIterationError{Container: "map"}
	}
	hk, err := hashKey(k)
	if err != nil {
		return err
	}
	if i, ok := m.index.Get(hk); ok {
		m.entries[i].deleted = true
		m.index.Delete(hk)
	}
	return nil
}

// Items returns the live key/value pairs in insertion order.
func (m *Map) Items() []Tuple {
	out := make([]Tuple, 0, len(m.entries))
	for _, e := range m.entries {
		if !e.deleted {
			out = append(out, NewTuple([]Value{e.key, e.val}))
		}
	}
	return out
}

func (m *Map) Iterate() Iterator {
	m.iterRefs++
	return &mapIterator{m: m, i: 0}
}

// Copy returns a new Map sharing none of m's entries storage but the same
// meta-table binding, one level deep, per this module's copy semantics.
func (m *Map) Copy() *Map {
	dup := NewMap(len(m.entries))
	for _, e := range m.entries {
		if !e.deleted {
			_ = dup.SetKey(e.key, e.val)
		}
	}
	dup.meta = m.meta
	return dup
}

// DeepCopy additionally deep-copies every value (but not key, which must
// already be an immutable hashable scalar or tuple thereof).
func (m *Map) DeepCopy() *Map {
	dup := NewMap(len(m.entries))
	for _, e := range m.entries {
		if !e.deleted {
			_ = dup.SetKey(e.key, DeepCopy(e.val))
		}
	}
	dup.meta = m.meta
	return dup
}

type mapIterator struct {
	m *Map
	i int
}

func (it *mapIterator) Next(p *Value) bool {
	for it.i < len(it.m.entries) {
		e := it.m.entries[it.i]
		it.i++
		if !e.deleted {
			*p = NewTuple([]Value{e.key, e.val})
			return true
		}
	}
	return false
}
func (it *mapIterator) Done() { it.m.iterRefs-- }

// Copy returns a one-level copy of v: containers are cloned at the top
// level (their own elements still shared), scalars and immutable values
// are returned unchanged (they are already safe to share).
func Copy(v Value) Value {
	switch v := v.(type) {
	case *List:
		return v.Copy()
	case *Map:
		return v.Copy()
	default:
		return v
	}
}

// DeepCopy returns a value transitively independent of v: every List/Map
// reachable from v is cloned, recursively.
func DeepCopy(v Value) Value {
	switch v := v.(type) {
	case *List:
		return v.DeepCopy()
	case *Map:
		return v.DeepCopy()
	case Tuple:
		dup := make([]Value, v.Len())
		for i := 0; i < v.Len(); i++ {
			dup[i] = DeepCopy(v.Index(i))
		}
		return NewTuple(dup)
	default:
		return v
	}
}
