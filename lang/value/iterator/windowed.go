package iterator

import "github.com/mna/ember/lang/value"

// Windows yields overlapping Tuples of n consecutive elements, sliding by
// one each step: [1,2,3,4].windows(2) -> (1,2), (2,3), (3,4).
func Windows(src value.Iterator, n int) value.Iterator {
	return &windowsIter{src: src, n: n}
}

type windowsIter struct {
	src   value.Iterator
	n     int
	buf   []value.Value
	ready bool
}

func (it *windowsIter) Next(p *value.Value) bool {
	if it.n <= 0 {
		return false
	}
	if !it.ready {
		it.buf = make([]value.Value, 0, it.n)
		for len(it.buf) < it.n {
			var x value.Value
			if !it.src.Next(&x) {
				return false
			}
			it.buf = append(it.buf, x)
		}
		it.ready = true
		*p = value.NewTuple(append([]value.Value(nil), it.buf...))
		return true
	}
	var x value.Value
	if !it.src.Next(&x) {
		return false
	}
	it.buf = append(it.buf[1:], x)
	*p = value.NewTuple(append([]value.Value(nil), it.buf...))
	return true
}
func (it *windowsIter) Done() { it.src.Done() }

// Chunks yields non-overlapping Tuples of up to n consecutive elements,
// the last chunk possibly shorter.
func Chunks(src value.Iterator, n int) value.Iterator {
	return &chunksIter{src: src, n: n}
}

type chunksIter struct {
	src value.Iterator
	n   int
}

func (it *chunksIter) Next(p *value.Value) bool {
	if it.n <= 0 {
		return false
	}
	buf := make([]value.Value, 0, it.n)
	var x value.Value
	for len(buf) < it.n && it.src.Next(&x) {
		buf = append(buf, x)
	}
	if len(buf) == 0 {
		return false
	}
	*p = value.NewTuple(buf)
	return true
}
func (it *chunksIter) Done() { it.src.Done() }

// Reversed drains src (which must be finite) and yields its elements back
// to front.
func Reversed(src value.Iterator) value.Iterator {
	var buf []value.Value
	var x value.Value
	for src.Next(&x) {
		buf = append(buf, x)
	}
	src.Done()
	return &reversedIter{buf: buf, i: len(buf) - 1}
}

type reversedIter struct {
	buf []value.Value
	i   int
}

func (it *reversedIter) Next(p *value.Value) bool {
	if it.i < 0 {
		return false
	}
	*p = it.buf[it.i]
	it.i--
	return true
}
func (it *reversedIter) Done() {}
