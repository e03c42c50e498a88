// Package iterator implements the adaptor set spec.md §4.6 requires the
// standard library's iterator module to expose, built directly on
// value.Iterator/value.Iterable so the VM's native-function bindings for
// these adaptors are thin wrappers around the functions here.
package iterator

import "github.com/mna/ember/lang/value"

// Map returns a lazy iterator applying f to each element of src.
func Map(src value.Iterator, f func(value.Value) (value.Value, error)) value.Iterator {
	return &mapIter{src: src, f: f}
}

type mapIter struct {
	src value.Iterator
	f   func(value.Value) (value.Value, error)
	err error
}

func (it *mapIter) Next(p *value.Value) bool {
	if it.err != nil {
		return false
	}
	var x value.Value
	if !it.src.Next(&x) {
		return false
	}
	y, err := it.f(x)
	if err != nil {
		it.err = err
		return false
	}
	*p = y
	return true
}
func (it *mapIter) Done() { it.src.Done() }

// Err returns the first error a lazy iterator's callback produced, if any;
// callers should check it once Next returns false.
func Err(it value.Iterator) error {
	switch it := it.(type) {
	case *mapIter:
		return it.err
	case *keepIter:
		return it.err
	case *takeWhileIter:
		return it.err
	case *generateIter:
		return it.err
	default:
		return nil
	}
}

// Keep (aka "filter") returns a lazy iterator yielding only the elements
// of src for which pred returns true.
func Keep(src value.Iterator, pred func(value.Value) (bool, error)) value.Iterator {
	return &keepIter{src: src, pred: pred}
}

type keepIter struct {
	src  value.Iterator
	pred func(value.Value) (bool, error)
	err  error
}

func (it *keepIter) Next(p *value.Value) bool {
	for {
		if it.err != nil {
			return false
		}
		var x value.Value
		if !it.src.Next(&x) {
			return false
		}
		ok, err := it.pred(x)
		if err != nil {
			it.err = err
			return false
		}
		if ok {
			*p = x
			return true
		}
	}
}
func (it *keepIter) Done() { it.src.Done() }

// Chain concatenates several iterators in order.
func Chain(srcs ...value.Iterator) value.Iterator { return &chainIter{srcs: srcs} }

type chainIter struct {
	srcs []value.Iterator
}

func (it *chainIter) Next(p *value.Value) bool {
	for len(it.srcs) > 0 {
		if it.srcs[0].Next(p) {
			return true
		}
		it.srcs[0].Done()
		it.srcs = it.srcs[1:]
	}
	return false
}
func (it *chainIter) Done() {
	for _, s := range it.srcs {
		s.Done()
	}
}

// Skip drops the first n elements of src.
func Skip(src value.Iterator, n int) value.Iterator {
	var x value.Value
	for i := 0; i < n && src.Next(&x); i++ {
	}
	return src
}

// Step yields every nth element of src, starting with the first.
func Step(src value.Iterator, n int) value.Iterator { return &stepIter{src: src, n: n} }

type stepIter struct {
	src   value.Iterator
	n     int
	first bool
}

func (it *stepIter) Next(p *value.Value) bool {
	if !it.first {
		it.first = true
		return it.src.Next(p)
	}
	var x value.Value
	for i := 1; i < it.n; i++ {
		if !it.src.Next(&x) {
			return false
		}
	}
	return it.src.Next(p)
}
func (it *stepIter) Done() { it.src.Done() }

// Take yields elements from src until n have been produced.
func Take(src value.Iterator, n int) value.Iterator { return &takeIter{src: src, remaining: n} }

type takeIter struct {
	src       value.Iterator
	remaining int
}

func (it *takeIter) Next(p *value.Value) bool {
	if it.remaining <= 0 {
		return false
	}
	it.remaining--
	return it.src.Next(p)
}
func (it *takeIter) Done() { it.src.Done() }

// TakeWhile yields elements from src while pred holds.
func TakeWhile(src value.Iterator, pred func(value.Value) (bool, error)) value.Iterator {
	return &takeWhileIter{src: src, pred: pred}
}

type takeWhileIter struct {
	src  value.Iterator
	pred func(value.Value) (bool, error)
	done bool
	err  error
}

func (it *takeWhileIter) Next(p *value.Value) bool {
	if it.done || it.err != nil {
		return false
	}
	var x value.Value
	if !it.src.Next(&x) {
		it.done = true
		return false
	}
	ok, err := it.pred(x)
	if err != nil {
		it.err = err
		return false
	}
	if !ok {
		it.done = true
		return false
	}
	*p = x
	return true
}
func (it *takeWhileIter) Done() { it.src.Done() }

// Once yields v exactly once.
func Once(v value.Value) value.Iterator { return &onceIter{v: v, has: true} }

type onceIter struct {
	v   value.Value
	has bool
}

func (it *onceIter) Next(p *value.Value) bool {
	if !it.has {
		return false
	}
	it.has = false
	*p = it.v
	return true
}
func (it *onceIter) Done() {}

// Repeat yields v forever, or n times if n >= 0.
func Repeat(v value.Value, n int) value.Iterator { return &repeatIter{v: v, n: n} }

type repeatIter struct {
	v value.Value
	n int // < 0 means infinite
}

func (it *repeatIter) Next(p *value.Value) bool {
	if it.n == 0 {
		return false
	}
	if it.n > 0 {
		it.n--
	}
	*p = it.v
	return true
}
func (it *repeatIter) Done() {}

// Cycle repeats src's full sequence forever by buffering it on first pass.
func Cycle(src value.Iterator) value.Iterator {
	var buf []value.Value
	var x value.Value
	for src.Next(&x) {
		buf = append(buf, x)
	}
	src.Done()
	return &cycleIter{buf: buf}
}

type cycleIter struct {
	buf []value.Value
	i   int
}

func (it *cycleIter) Next(p *value.Value) bool {
	if len(it.buf) == 0 {
		return false
	}
	*p = it.buf[it.i%len(it.buf)]
	it.i++
	return true
}
func (it *cycleIter) Done() {}

// Generate yields f() repeatedly, n times if n >= 0, else forever or until
// f returns an error.
func Generate(f func() (value.Value, error), n int) value.Iterator {
	return &generateIter{f: f, n: n}
}

type generateIter struct {
	f   func() (value.Value, error)
	n   int
	err error
}

func (it *generateIter) Next(p *value.Value) bool {
	if it.err != nil || it.n == 0 {
		return false
	}
	if it.n > 0 {
		it.n--
	}
	v, err := it.f()
	if err != nil {
		it.err = err
		return false
	}
	*p = v
	return true
}
func (it *generateIter) Done() {}

// Enumerate pairs each element of src with its index, as a Tuple(index, v).
func Enumerate(src value.Iterator) value.Iterator { return &enumerateIter{src: src} }

type enumerateIter struct {
	src value.Iterator
	i   int
}

func (it *enumerateIter) Next(p *value.Value) bool {
	var x value.Value
	if !it.src.Next(&x) {
		return false
	}
	*p = value.NewTuple([]value.Value{value.Int(it.i), x})
	it.i++
	return true
}
func (it *enumerateIter) Done() { it.src.Done() }

// Zip pairs up elements from each source, stopping at the shortest.
func Zip(srcs ...value.Iterator) value.Iterator { return &zipIter{srcs: srcs} }

type zipIter struct{ srcs []value.Iterator }

func (it *zipIter) Next(p *value.Value) bool {
	elems := make([]value.Value, len(it.srcs))
	for i, s := range it.srcs {
		if !s.Next(&elems[i]) {
			return false
		}
	}
	*p = value.NewTuple(elems)
	return true
}
func (it *zipIter) Done() {
	for _, s := range it.srcs {
		s.Done()
	}
}

// Intersperse inserts sep between every pair of consecutive elements.
func Intersperse(src value.Iterator, sep value.Value) value.Iterator {
	return &intersperseIter{src: src, sep: sep}
}

type intersperseIter struct {
	src     value.Iterator
	sep     value.Value
	pending *value.Value
	started bool
}

func (it *intersperseIter) Next(p *value.Value) bool {
	if it.pending != nil {
		*p = *it.pending
		it.pending = nil
		return true
	}
	var x value.Value
	if !it.src.Next(&x) {
		return false
	}
	if it.started {
		it.pending = &x
		*p = it.sep
		return true
	}
	it.started = true
	*p = x
	return true
}
func (it *intersperseIter) Done() { it.src.Done() }

// Flatten concatenates the elements of each Iterable src yields, one level.
func Flatten(src value.Iterator) value.Iterator { return &flattenIter{outer: src} }

type flattenIter struct {
	outer value.Iterator
	inner value.Iterator
}

func (it *flattenIter) Next(p *value.Value) bool {
	for {
		if it.inner != nil {
			if it.inner.Next(p) {
				return true
			}
			it.inner.Done()
			it.inner = nil
		}
		var x value.Value
		if !it.outer.Next(&x) {
			return false
		}
		if iterable, ok := x.(value.Iterable); ok {
			it.inner = iterable.Iterate()
		}
	}
}
func (it *flattenIter) Done() {
	if it.inner != nil {
		it.inner.Done()
	}
	it.outer.Done()
}
