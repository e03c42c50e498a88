package iterator

import (
	"fmt"

	"github.com/mna/ember/lang/value"
)

// ToList drains src into a new List.
func ToList(src value.Iterator) *value.List {
	var elems []value.Value
	var x value.Value
	for src.Next(&x) {
		elems = append(elems, x)
	}
	src.Done()
	return value.NewList(elems)
}

// ToTuple drains src into a Tuple.
func ToTuple(src value.Iterator) value.Tuple {
	var elems []value.Value
	var x value.Value
	for src.Next(&x) {
		elems = append(elems, x)
	}
	src.Done()
	return value.NewTuple(elems)
}

// ToMap drains src, which must yield 2-element Tuples (key, value), into
// a new Map.
func ToMap(src value.Iterator) (*value.Map, error) {
	m := value.NewMap(0)
	var x value.Value
	for src.Next(&x) {
		t, ok := x.(value.Tuple)
		if !ok || t.Len() != 2 {
			return nil, fmt.Errorf("to_map: expected (key, value) pairs")
		}
		if err := m.SetKey(t.Index(0), t.Index(1)); err != nil {
			return nil, err
		}
	}
	src.Done()
	return m, nil
}

// ToString drains src and concatenates each element's String() form.
func ToString(src value.Iterator) value.String {
	var sb []byte
	var x value.Value
	for src.Next(&x) {
		sb = append(sb, x.String()...)
	}
	src.Done()
	return value.String(sb)
}

// Count drains src, returning the number of elements produced.
func Count(src value.Iterator) int {
	n := 0
	var x value.Value
	for src.Next(&x) {
		n++
	}
	src.Done()
	return n
}

// Consume drains src for side effects only, discarding every element.
func Consume(src value.Iterator) {
	var x value.Value
	for src.Next(&x) {
	}
	src.Done()
}

// Find returns the first element satisfying pred, and whether one exists.
func Find(src value.Iterator, pred func(value.Value) (bool, error)) (value.Value, bool, error) {
	defer src.Done()
	var x value.Value
	for src.Next(&x) {
		ok, err := pred(x)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return x, true, nil
		}
	}
	return nil, false, nil
}

// Position returns the index of the first element satisfying pred.
func Position(src value.Iterator, pred func(value.Value) (bool, error)) (int, bool, error) {
	defer src.Done()
	var x value.Value
	i := 0
	for src.Next(&x) {
		ok, err := pred(x)
		if err != nil {
			return 0, false, err
		}
		if ok {
			return i, true, nil
		}
		i++
	}
	return 0, false, nil
}

// Last returns the final element src produces, if any.
func Last(src value.Iterator) (value.Value, bool) {
	defer src.Done()
	var x, last value.Value
	found := false
	for src.Next(&x) {
		last, found = x, true
	}
	return last, found
}

// Fold reduces src to a single value starting from init.
func Fold(src value.Iterator, init value.Value, f func(acc, x value.Value) (value.Value, error)) (value.Value, error) {
	defer src.Done()
	acc := init
	var x value.Value
	for src.Next(&x) {
		var err error
		acc, err = f(acc, x)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// All reports whether pred holds for every element (vacuously true if src
// is empty), short-circuiting on the first false.
func All(src value.Iterator, pred func(value.Value) (bool, error)) (bool, error) {
	defer src.Done()
	var x value.Value
	for src.Next(&x) {
		ok, err := pred(x)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Any reports whether pred holds for at least one element, short-circuiting
// on the first true.
func Any(src value.Iterator, pred func(value.Value) (bool, error)) (bool, error) {
	defer src.Done()
	var x value.Value
	for src.Next(&x) {
		ok, err := pred(x)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// MaxMin is shared by Max/Min/MinMax: it finds both extremes in a single
// pass using key (or value.Compare when key is nil) for ordering.
func MaxMin(src value.Iterator, key func(value.Value) (value.Value, error)) (min, max value.Value, err error) {
	defer src.Done()
	var x value.Value
	first := true
	for src.Next(&x) {
		k := x
		if key != nil {
			if k, err = key(x); err != nil {
				return nil, nil, err
			}
		}
		if first {
			min, max = x, x
			first = false
			continue
		}
		minK := k
		if key != nil {
			if minK, err = key(min); err != nil {
				return nil, nil, err
			}
		}
		c, err := value.Compare(k, minK)
		if err != nil {
			return nil, nil, err
		}
		if c < 0 {
			min = x
		}
		maxK := k
		if key != nil {
			if maxK, err = key(max); err != nil {
				return nil, nil, err
			}
		}
		c, err = value.Compare(k, maxK)
		if err != nil {
			return nil, nil, err
		}
		if c > 0 {
			max = x
		}
	}
	return min, max, nil
}

// Sum adds every numeric element, starting from 0.
func Sum(src value.Iterator) (value.Value, error) {
	defer src.Done()
	var acc value.Value = value.Int(0)
	var x value.Value
	for src.Next(&x) {
		sum, ok := value.NumericBinary(addInt64, addFloat64, acc, x)
		if !ok {
			return nil, fmt.Errorf("sum: non-numeric element %s", x.Type())
		}
		acc = sum
	}
	return acc, nil
}

// Product multiplies every numeric element, starting from 1.
func Product(src value.Iterator) (value.Value, error) {
	defer src.Done()
	var acc value.Value = value.Int(1)
	var x value.Value
	for src.Next(&x) {
		prod, ok := value.NumericBinary(mulInt64, mulFloat64, acc, x)
		if !ok {
			return nil, fmt.Errorf("product: non-numeric element %s", x.Type())
		}
		acc = prod
	}
	return acc, nil
}

func addInt64(x, y int64) (int64, bool) {
	r := x + y
	overflow := (x > 0 && y > 0 && r < 0) || (x < 0 && y < 0 && r > 0)
	return r, !overflow
}
func addFloat64(x, y float64) float64 { return x + y }

func mulInt64(x, y int64) (int64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	r := x * y
	return r, r/y == x
}
func mulFloat64(x, y float64) float64 { return x * y }
