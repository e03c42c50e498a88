package vm

import (
	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/token"
	"github.com/mna/ember/lang/value"
)

// arithMeta maps an arithmetic opcode to the MetaKey a meta-table may bind
// to override it, and to the token.Token a host HasBinary implementation
// expects (the two vocabularies predate each other: meta-tables are
// ember's own overload mechanism, HasBinary is the lower-level hook host
// code can implement directly without a meta-table at all).
var arithMeta = map[compiler.Opcode]struct {
	key value.MetaKey
	tok token.Token
}{
	compiler.Add:       {value.MetaAdd, token.PLUS},
	compiler.Subtract:  {value.MetaSub, token.MINUS},
	compiler.Multiply:  {value.MetaMul, token.STAR},
	compiler.Divide:    {value.MetaDiv, token.SLASH},
	compiler.Remainder: {value.MetaRem, token.PERCENT},
}

var cmpMeta = map[compiler.Opcode]value.MetaKey{
	compiler.Less:           value.MetaLess,
	compiler.LessOrEqual:    value.MetaLessEq,
	compiler.Greater:        value.MetaGreater,
	compiler.GreaterOrEqual: value.MetaGreaterEq,
	compiler.Equal:          value.MetaEq,
	compiler.NotEqual:       value.MetaNotEq,
}

// lookupSlot returns the Callable bound to key on x's meta-table, if x has
// one and the slot is set.
func lookupSlot(x value.Value, key value.MetaKey) (value.Callable, bool) {
	hm, ok := x.(value.HasMetatable)
	if !ok {
		return nil, false
	}
	mt := hm.Metatable()
	v, ok := mt.Get(key)
	if !ok {
		return nil, false
	}
	c, ok := v.(value.Callable)
	return c, ok
}

// binary evaluates an arithmetic opcode on x, y, trying (in order) a host
// HasBinary implementation, a meta-table override, then the default
// structural numeric/string/list semantics.
func (th *Thread) binary(op compiler.Opcode, x, y value.Value) (value.Value, error) {
	m := arithMeta[op]

	if hb, ok := x.(value.HasBinary); ok {
		if v, err := hb.Binary(m.tok, y, value.Left); err != nil {
			return nil, err
		} else if v != nil {
			return v, nil
		}
	}
	if hb, ok := y.(value.HasBinary); ok {
		if v, err := hb.Binary(m.tok, x, value.Right); err != nil {
			return nil, err
		} else if v != nil {
			return v, nil
		}
	}
	if fn, ok := lookupSlot(x, m.key); ok {
		return th.call(fn, []value.Value{x, y})
	}
	if fn, ok := lookupSlot(y, m.key); ok {
		return th.call(fn, []value.Value{x, y})
	}

	switch op {
	case compiler.Add:
		if xs, ok := x.(value.String); ok {
			if ys, ok := y.(value.String); ok {
				return xs + ys, nil
			}
		}
		if xl, ok := x.(*value.List); ok {
			if yl, ok := y.(*value.List); ok {
				elems := make([]value.Value, 0, xl.Len()+yl.Len())
				for i := 0; i < xl.Len(); i++ {
					elems = append(elems, xl.Index(i))
				}
				for i := 0; i < yl.Len(); i++ {
					elems = append(elems, yl.Index(i))
				}
				return value.NewList(elems), nil
			}
		}
		if v, ok := value.NumericBinary(addInt64, addFloat64, x, y); ok {
			return v, nil
		}
	case compiler.Subtract:
		if v, ok := value.NumericBinary(subInt64, subFloat64, x, y); ok {
			return v, nil
		}
	case compiler.Multiply:
		if v, ok := value.NumericBinary(mulInt64, mulFloat64, x, y); ok {
			return v, nil
		}
	case compiler.Divide:
		if v, ok := divide(x, y); ok {
			return v, nil
		}
	case compiler.Remainder:
		if v, ok := value.Remainder(x, y); ok {
			return v, nil
		}
	}
	return nil, newError(KindTypeError, "unsupported operand types for %s: %s and %s", op, x.Type(), y.Type())
}

// compare evaluates a relational opcode, trying a meta override before
// falling back to value.Compare/value.Equal.
func (th *Thread) compare(op compiler.Opcode, x, y value.Value) (value.Value, error) {
	key := cmpMeta[op]
	if fn, ok := lookupSlot(x, key); ok {
		return th.call(fn, []value.Value{x, y})
	}
	if fn, ok := lookupSlot(y, key); ok {
		return th.call(fn, []value.Value{x, y})
	}

	switch op {
	case compiler.Equal, compiler.NotEqual:
		eq, err := th.equal(x, y)
		if err != nil {
			return nil, err
		}
		if op == compiler.NotEqual {
			eq = !eq
		}
		return value.Bool(eq), nil
	default:
		c, err := value.Compare(x, y)
		if err != nil {
			return nil, err
		}
		var ok bool
		switch op {
		case compiler.Less:
			ok = c < 0
		case compiler.LessOrEqual:
			ok = c <= 0
		case compiler.Greater:
			ok = c > 0
		case compiler.GreaterOrEqual:
			ok = c >= 0
		}
		return value.Bool(ok), nil
	}
}

// equal reports whether x and y are equal, recursing element-wise through
// Tuple operands so a meta `@==` override on a tuple's elements is honored
// ("a Tuple of meta-overloaded values uses element-wise overloaded
// equality"), then falling back to value.Equal's structural rules for
// everything else. value.Tuple.Equals can't do this composition itself:
// invoking an element's `@==` override means executing bytecode, which is
// this package's job, not lang/value's.
func (th *Thread) equal(x, y value.Value) (bool, error) {
	xt, xok := x.(value.Tuple)
	yt, yok := y.(value.Tuple)
	if xok && yok {
		if xt.Len() != yt.Len() {
			return false, nil
		}
		for i := 0; i < xt.Len(); i++ {
			v, err := th.compare(compiler.Equal, xt.Index(i), yt.Index(i))
			if err != nil {
				return false, err
			}
			if !bool(v.(value.Bool)) {
				return false, nil
			}
		}
		return true, nil
	}
	return value.Equal(x, y)
}

// negate evaluates unary `-x`, trying a host HasUnary implementation
// before the default numeric negation.
func (th *Thread) negate(x value.Value) (value.Value, error) {
	if hu, ok := x.(value.HasUnary); ok {
		if v, err := hu.Unary(token.MINUS); err != nil {
			return nil, err
		} else if v != nil {
			return v, nil
		}
	}
	switch x := x.(type) {
	case value.Int:
		return -x, nil
	case value.Float:
		return -x, nil
	}
	return nil, newError(KindTypeError, "cannot negate %s", x.Type())
}

// index evaluates `x[key]`, trying a host Indexable/Mapping implementation
// before an `@[]` meta override.
func (th *Thread) index(x, key value.Value) (value.Value, error) {
	switch c := x.(type) {
	case value.Mapping:
		v, found, err := c.Get(key)
		if err != nil {
			return nil, err
		}
		if found {
			return v, nil
		}
		if fn, ok := lookupSlot(x, value.MetaIndex); ok {
			return th.call(fn, []value.Value{x, key})
		}
		return value.NullValue, nil
	case value.Indexable:
		i, ok := key.(value.Int)
		if !ok {
			return nil, newError(KindTypeError, "index must be an int, got %s", key.Type())
		}
		idx := int(i)
		if idx < 0 {
			idx += c.Len()
		}
		if idx < 0 || idx >= c.Len() {
			return nil, newError(KindIndexError, "index %d out of range (len %d)", i, c.Len())
		}
		return c.Index(idx), nil
	}
	if fn, ok := lookupSlot(x, value.MetaIndex); ok {
		return th.call(fn, []value.Value{x, key})
	}
	return nil, newError(KindTypeError, "%s is not indexable", x.Type())
}

func (th *Thread) setIndex(x, key, v value.Value) error {
	switch c := x.(type) {
	case value.HasSetKey:
		return c.SetKey(key, v)
	case value.HasSetIndex:
		i, ok := key.(value.Int)
		if !ok {
			return newError(KindTypeError, "index must be an int, got %s", key.Type())
		}
		idx := int(i)
		if idx < 0 {
			idx += c.Len()
		}
		return c.SetIndex(idx, v)
	}
	return newError(KindTypeError, "%s does not support index assignment", x.Type())
}

// attr evaluates `x.name`, falling back to a meta-table named entry when
// x has one and has no such field of its own.
func (th *Thread) attr(x value.Value, name string) (value.Value, error) {
	if ha, ok := x.(value.HasAttrs); ok {
		v, err := ha.Attr(name)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return v, nil
		}
	}
	if m, ok := x.(value.Mapping); ok {
		v, found, err := m.Get(value.String(name))
		if err != nil {
			return nil, err
		}
		if found {
			return v, nil
		}
	}
	if hm, ok := x.(value.HasMetatable); ok {
		mt := hm.Metatable()
		if v, ok := mt.GetNamed(name); ok {
			return v, nil
		}
		// @base gives prototype-style inheritance: an id lookup that misses
		// retries on the bound base value, recursively.
		if base, ok := mt.Get(value.MetaBase); ok {
			return th.attr(base, name)
		}
	}
	return nil, newError(KindTypeError, "%s has no attribute %q", x.Type(), name)
}

func (th *Thread) setField(x value.Value, name string, v value.Value) error {
	hf, ok := x.(value.HasSetField)
	if !ok {
		return newError(KindTypeError, "%s does not support field assignment", x.Type())
	}
	return hf.SetField(name, v)
}

// display renders v for string interpolation/to_string, honoring an
// `@display` meta override.
func (th *Thread) display(v value.Value) (string, error) {
	if fn, ok := lookupSlot(v, value.MetaDisplay); ok {
		r, err := th.call(fn, []value.Value{v})
		if err != nil {
			return "", err
		}
		return r.String(), nil
	}
	return v.String(), nil
}

// iterate produces a value.Iterator for v, honoring an `@iterator` meta
// override for values that are not natively Iterable.
func (th *Thread) iterate(v value.Value) (value.Iterator, error) {
	if it, ok := v.(value.Iterator); ok {
		// v is itself an iterator/coroutine value, e.g. re-iterating a
		// generator result.
		return it, nil
	}
	if ib, ok := v.(value.Iterable); ok {
		return ib.Iterate(), nil
	}
	if fn, ok := lookupSlot(v, value.MetaIterator); ok {
		r, err := th.call(fn, []value.Value{v})
		if err != nil {
			return nil, err
		}
		if it, ok := r.(value.Iterator); ok {
			return it, nil
		}
		return nil, newError(KindTypeError, "@iterator override did not return an iterator")
	}
	return nil, newError(KindTypeError, "%s is not iterable", v.Type())
}

func divide(x, y value.Value) (value.Value, bool) {
	xf, xok := numToFloat(x)
	yf, yok := numToFloat(y)
	if !xok || !yok {
		return nil, false
	}
	return value.Float(xf / yf), true
}

func numToFloat(v value.Value) (float64, bool) {
	switch v := v.(type) {
	case value.Int:
		return float64(v), true
	case value.Float:
		return float64(v), true
	default:
		return 0, false
	}
}

func addInt64(x, y int64) (int64, bool) {
	r := x + y
	return r, !((x > 0 && y > 0 && r < 0) || (x < 0 && y < 0 && r > 0))
}
func addFloat64(x, y float64) float64 { return x + y }
func subInt64(x, y int64) (int64, bool) {
	r := x - y
	return r, !((x >= 0 && y < 0 && r < 0) || (x < 0 && y > 0 && r > 0))
}
func subFloat64(x, y float64) float64 { return x - y }
func mulInt64(x, y int64) (int64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	r := x * y
	return r, r/y == x
}
func mulFloat64(x, y float64) float64 { return x * y }
