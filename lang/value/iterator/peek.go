package iterator

import "github.com/mna/ember/lang/value"

// Peekable wraps src with a single-element lookahead buffer.
type Peekable struct {
	src     value.Iterator
	buf     value.Value
	hasBuf  bool
}

var _ value.Iterator = (*Peekable)(nil)

// NewPeekable returns a Peekable view over src.
func NewPeekable(src value.Iterator) *Peekable { return &Peekable{src: src} }

// Peek returns the next element without consuming it.
func (p *Peekable) Peek() (value.Value, bool) {
	if !p.hasBuf {
		var x value.Value
		if !p.src.Next(&x) {
			return nil, false
		}
		p.buf, p.hasBuf = x, true
	}
	return p.buf, true
}

func (p *Peekable) Next(out *value.Value) bool {
	if p.hasBuf {
		*out = p.buf
		p.hasBuf = false
		return true
	}
	return p.src.Next(out)
}
func (p *Peekable) Done() { p.src.Done() }

// Next1 advances src by exactly one element, eagerly, returning it.
func Next1(src value.Iterator) (value.Value, bool) {
	var x value.Value
	ok := src.Next(&x)
	return x, ok
}

// NextBack1 advances src from the back by one element, if src supports it.
func NextBack1(src value.Iterator) (value.Value, bool) {
	bd, ok := src.(value.Bidirectional)
	if !ok {
		return nil, false
	}
	var x value.Value
	ok = bd.NextBack(&x)
	return x, ok
}
