package vm

import (
	"fmt"
	"strings"

	"github.com/mna/ember/lang/ast"
	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/value"
)

// stringBuilder is the transient, register-resident accumulator behind
// StringStart/StringPush/StringFinish: interpolated strings are built
// fragment by fragment and never observed as a value.Value by user code,
// so it only needs to satisfy the interface well enough to sit in a
// register alongside real values.
type stringBuilder struct{ sb strings.Builder }

func (*stringBuilder) String() string    { return "<string builder>" }
func (*stringBuilder) Type() string      { return "string_builder" }
func (*stringBuilder) Truth() value.Bool { return value.True }

// step decodes and executes one instruction starting at *pc (already
// advanced past the opcode byte), returning the frame's result and true
// once a Return/Yield-to-toplevel completes it.
func (th *Thread) step(fr *Frame, op compiler.Opcode, code []byte, pc *uint32, regs []value.Value) (value.Value, bool, error) {
	switch op {
	case compiler.Nop:

	case compiler.Copy:
		dst, src := readU8(code, pc), readU8(code, pc)
		regs[dst] = regs[src]
	case compiler.SetNull:
		regs[readU8(code, pc)] = value.NullValue
	case compiler.SetFalse:
		regs[readU8(code, pc)] = value.False
	case compiler.SetTrue:
		regs[readU8(code, pc)] = value.True
	case compiler.Set0:
		regs[readU8(code, pc)] = value.Int(0)
	case compiler.Set1:
		regs[readU8(code, pc)] = value.Int(1)
	case compiler.SetNumberU8:
		dst, n := readU8(code, pc), readU8(code, pc)
		regs[dst] = value.Int(n)

	case compiler.LoadFloat:
		dst, idx := readU8(code, pc), readU8(code, pc)
		regs[dst] = value.Float(th.pool.Float(constIdx(idx)))
	case compiler.LoadFloat16:
		dst, idx := readU8(code, pc), readU16(code, pc)
		regs[dst] = value.Float(th.pool.Float(constIdx(idx)))
	case compiler.LoadFloat24:
		dst, idx := readU8(code, pc), readU32(code, pc)
		regs[dst] = value.Float(th.pool.Float(constIdx(idx)))
	case compiler.LoadInt:
		dst, idx := readU8(code, pc), readU8(code, pc)
		regs[dst] = value.Int(th.pool.Int(constIdx(idx)))
	case compiler.LoadInt16:
		dst, idx := readU8(code, pc), readU16(code, pc)
		regs[dst] = value.Int(th.pool.Int(constIdx(idx)))
	case compiler.LoadInt24:
		dst, idx := readU8(code, pc), readU32(code, pc)
		regs[dst] = value.Int(th.pool.Int(constIdx(idx)))
	case compiler.LoadString:
		dst, idx := readU8(code, pc), readU8(code, pc)
		regs[dst] = value.String(th.pool.String(constIdx(idx)))
	case compiler.LoadString16:
		dst, idx := readU8(code, pc), readU16(code, pc)
		regs[dst] = value.String(th.pool.String(constIdx(idx)))
	case compiler.LoadString24:
		dst, idx := readU8(code, pc), readU32(code, pc)
		regs[dst] = value.String(th.pool.String(constIdx(idx)))
	case compiler.LoadNonLocal:
		dst, idx := readU8(code, pc), readU8(code, pc)
		v, err := th.loadGlobal(th.pool.String(constIdx(idx)))
		if err != nil {
			return nil, false, err
		}
		regs[dst] = v
	case compiler.LoadNonLocal16:
		dst, idx := readU8(code, pc), readU16(code, pc)
		v, err := th.loadGlobal(th.pool.String(constIdx(idx)))
		if err != nil {
			return nil, false, err
		}
		regs[dst] = v
	case compiler.LoadNonLocal24:
		dst, idx := readU8(code, pc), readU32(code, pc)
		v, err := th.loadGlobal(th.pool.String(constIdx(idx)))
		if err != nil {
			return nil, false, err
		}
		regs[dst] = v

	case compiler.MakeTempTuple:
		dst, base, n := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		elems := make([]value.Value, n)
		copy(elems, regs[base:base+n])
		regs[dst] = value.NewTuple(elems)
	case compiler.TempTupleToTuple:
		dst, src := readU8(code, pc), readU8(code, pc)
		regs[dst] = regs[src]
	case compiler.TempIndex:
		dst, tup, idx := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		t, ok := regs[tup].(value.Tuple)
		if !ok {
			return nil, false, newError(KindTypeError, "temp_index: %s is not a tuple", regs[tup].Type())
		}
		regs[dst] = t.Index(idx)

	case compiler.MakeMap:
		dst, n := readU8(code, pc), readU8(code, pc)
		regs[dst] = value.NewMap(n)
	case compiler.MakeMap32:
		dst, n := readU8(code, pc), readU32(code, pc)
		regs[dst] = value.NewMap(n)
	case compiler.SequenceStart:
		dst, n := readU8(code, pc), readU8(code, pc)
		regs[dst] = value.NewList(make([]value.Value, 0, n))
	case compiler.SequenceStart32:
		dst, n := readU8(code, pc), readU32(code, pc)
		regs[dst] = value.NewList(make([]value.Value, 0, n))
	case compiler.SequencePush:
		seq, val := readU8(code, pc), readU8(code, pc)
		if err := regs[seq].(*value.List).Append(regs[val]); err != nil {
			return nil, false, err
		}
	case compiler.SequencePushN:
		seq, base, n := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		l := regs[seq].(*value.List)
		for i := 0; i < n; i++ {
			if err := l.Append(regs[base+i]); err != nil {
				return nil, false, err
			}
		}
	case compiler.SequenceToList:
		dst, seq := readU8(code, pc), readU8(code, pc)
		regs[dst] = regs[seq]
	case compiler.SequenceToTuple:
		dst, seq := readU8(code, pc), readU8(code, pc)
		l := regs[seq].(*value.List)
		elems := make([]value.Value, l.Len())
		for i := range elems {
			elems[i] = l.Index(i)
		}
		regs[dst] = value.NewTuple(elems)

	case compiler.Range:
		dst, lo, hi := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		regs[dst] = value.Range{Lo: int64(regs[lo].(value.Int)), Hi: int64(regs[hi].(value.Int))}
	case compiler.RangeInclusive:
		dst, lo, hi := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		regs[dst] = value.Range{Lo: int64(regs[lo].(value.Int)), Hi: int64(regs[hi].(value.Int)), Inclusive: true}
	case compiler.RangeTo:
		dst, hi := readU8(code, pc), readU8(code, pc)
		regs[dst] = value.Range{Hi: int64(regs[hi].(value.Int))}
	case compiler.RangeToInclusive:
		dst, hi := readU8(code, pc), readU8(code, pc)
		regs[dst] = value.Range{Hi: int64(regs[hi].(value.Int)), Inclusive: true}
	case compiler.RangeFrom:
		dst, lo := readU8(code, pc), readU8(code, pc)
		regs[dst] = value.Range{Lo: int64(regs[lo].(value.Int)), Hi: 1<<63 - 1}
	case compiler.RangeFull:
		dst := readU8(code, pc)
		regs[dst] = value.Range{Hi: 1<<63 - 1}

	case compiler.MakeIterator:
		dst, src := readU8(code, pc), readU8(code, pc)
		it, err := th.iterate(regs[src])
		if err != nil {
			return nil, false, err
		}
		regs[dst] = iteratorValue{it}
	case compiler.IterNext:
		dst, iter := readU8(code, pc), readU8(code, pc)
		off := readU16(code, pc)
		it := regs[iter].(iteratorValue).Iterator
		var v value.Value
		if it.Next(&v) {
			regs[dst] = v
		} else {
			*pc += uint32(off)
		}
	case compiler.IterNextTemp:
		base, iter := readU8(code, pc), readU8(code, pc)
		off := readU16(code, pc)
		it := regs[iter].(iteratorValue).Iterator
		var v value.Value
		if it.Next(&v) {
			if t, ok := v.(value.Tuple); ok {
				for i := 0; i < t.Len(); i++ {
					regs[base+i] = t.Index(i)
				}
			} else {
				regs[base] = v
			}
		} else {
			*pc += uint32(off)
		}
	case compiler.IterNextQuiet:
		iter := readU8(code, pc)
		off := readU16(code, pc)
		it := regs[iter].(iteratorValue).Iterator
		var v value.Value
		if !it.Next(&v) {
			*pc += uint32(off)
		}

	case compiler.SimpleFunction:
		dst, idx := readU8(code, pc), readU16(code, pc)
		chunk := th.funcs[idx]
		regs[dst] = &value.Function{Chunk: chunk, FuncName: chunk.Name}
	case compiler.Function:
		dst, idx := readU8(code, pc), readU16(code, pc)
		flags := readU8(code, pc)
		ncap := readU8(code, pc)
		_ = readU16(code, pc) // bodySize: Capture instructions follow inline, executed normally
		_ = flags
		chunk := th.funcs[idx]
		regs[dst] = &value.Function{Chunk: chunk, FuncName: chunk.Name, Captures: make([]value.Value, ncap)}
	case compiler.Capture:
		fn, target, src := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		_ = readU8(code, pc) // fromUpvalue: always a plain register in this model
		regs[fn].(*value.Function).Captures[target] = regs[src]

	case compiler.Negate:
		dst, src := readU8(code, pc), readU8(code, pc)
		v, err := th.negate(regs[src])
		if err != nil {
			return nil, false, err
		}
		regs[dst] = v
	case compiler.Not:
		dst, src := readU8(code, pc), readU8(code, pc)
		regs[dst] = !regs[src].Truth()
	case compiler.Add, compiler.Subtract, compiler.Multiply, compiler.Divide, compiler.Remainder:
		dst, lhs, rhs := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		v, err := th.binary(op, regs[lhs], regs[rhs])
		if err != nil {
			return nil, false, err
		}
		regs[dst] = v

	case compiler.Less, compiler.LessOrEqual, compiler.Greater, compiler.GreaterOrEqual,
		compiler.Equal, compiler.NotEqual:
		dst, lhs, rhs := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		v, err := th.compare(op, regs[lhs], regs[rhs])
		if err != nil {
			return nil, false, err
		}
		regs[dst] = v

	case compiler.Jump:
		off := readU16(code, pc)
		*pc += uint32(off)
	case compiler.JumpBack:
		off := readU16(code, pc)
		*pc -= uint32(off)
	case compiler.JumpIfTrue:
		cond := readU8(code, pc)
		off := readU16(code, pc)
		if bool(regs[cond].Truth()) {
			*pc += uint32(off)
		}
	case compiler.JumpIfFalse:
		cond := readU8(code, pc)
		off := readU16(code, pc)
		if !bool(regs[cond].Truth()) {
			*pc += uint32(off)
		}

	case compiler.Call:
		dst, fn, base := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		argc := readU8(code, pc)
		args := append([]value.Value(nil), regs[base:base+argc]...)
		v, err := th.call(regs[fn], args)
		if err != nil {
			return nil, false, err
		}
		regs[dst] = v
	case compiler.CallInstance:
		dst, fn, inst, base := readU8(code, pc), readU8(code, pc), readU8(code, pc), readU8(code, pc)
		argc := readU8(code, pc)
		args := make([]value.Value, 0, argc+1)
		args = append(args, regs[inst])
		args = append(args, regs[base:base+argc]...)
		v, err := th.call(regs[fn], args)
		if err != nil {
			return nil, false, err
		}
		regs[dst] = v
	case compiler.Return:
		src := readU8(code, pc)
		return regs[src], true, nil
	case compiler.Yield:
		src := readU8(code, pc)
		if fr.coro == nil {
			return nil, false, newError(KindError, "yield outside a generator")
		}
		if err := fr.coro.yield(regs[src]); err != nil {
			return nil, false, err
		}
	case compiler.Throw:
		src := readU8(code, pc)
		return nil, false, &ThrownError{Value: regs[src]}

	case compiler.Size:
		dst, src := readU8(code, pc), readU8(code, pc)
		switch s := regs[src].(type) {
		case value.Sequence:
			regs[dst] = value.Int(s.Len())
		case value.Indexable:
			regs[dst] = value.Int(s.Len())
		default:
			return nil, false, newError(KindTypeError, "%s has no size", regs[src].Type())
		}
	case compiler.SliceFrom:
		dst, src, lo := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		v, err := th.sliceFrom(regs[src], regs[lo])
		if err != nil {
			return nil, false, err
		}
		regs[dst] = v
	case compiler.SliceTo:
		dst, src, hi := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		v, err := th.sliceTo(regs[src], regs[hi])
		if err != nil {
			return nil, false, err
		}
		regs[dst] = v
	case compiler.IsTuple:
		dst, src := readU8(code, pc), readU8(code, pc)
		_, ok := regs[src].(value.Tuple)
		regs[dst] = value.Bool(ok)
	case compiler.IsList:
		dst, src := readU8(code, pc), readU8(code, pc)
		_, ok := regs[src].(*value.List)
		regs[dst] = value.Bool(ok)
	case compiler.Index:
		dst, src, key := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		v, err := th.index(regs[src], regs[key])
		if err != nil {
			return nil, false, err
		}
		regs[dst] = v
	case compiler.SetIndex:
		target, key, val := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		if err := th.setIndex(regs[target], regs[key], regs[val]); err != nil {
			return nil, false, err
		}

	case compiler.MapInsert:
		m, key, val := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		if err := regs[m].(*value.Map).SetKey(regs[key], regs[val]); err != nil {
			return nil, false, err
		}
	case compiler.MetaInsert:
		m, key, val := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		mt, err := th.metatableOf(regs[m])
		if err != nil {
			return nil, false, err
		}
		mt.Set(value.MetaKey(key), regs[val])
	case compiler.MetaInsertNamed:
		m, idx, val := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		mt, err := th.metatableOf(regs[m])
		if err != nil {
			return nil, false, err
		}
		mt.SetNamed(th.pool.String(constIdx(idx)), regs[val])
	case compiler.MetaExport:
		m, key, val := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		mt, err := th.metatableOf(regs[m])
		if err != nil {
			return nil, false, err
		}
		mk := value.MetaKey(key)
		mt.Set(mk, regs[val])
		fr.export(mk.String(), regs[val])
	case compiler.MetaExportNamed:
		m, idx, val := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		mt, err := th.metatableOf(regs[m])
		if err != nil {
			return nil, false, err
		}
		name := th.pool.String(constIdx(idx))
		mt.SetNamed(name, regs[val])
		fr.export(name, regs[val])
	case compiler.Access:
		dst, src, idx := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		v, err := th.attr(regs[src], th.pool.String(constIdx(idx)))
		if err != nil {
			return nil, false, err
		}
		regs[dst] = v
	case compiler.Access16:
		dst, src, idx := readU8(code, pc), readU8(code, pc), readU16(code, pc)
		v, err := th.attr(regs[src], th.pool.String(constIdx(idx)))
		if err != nil {
			return nil, false, err
		}
		regs[dst] = v
	case compiler.Access24:
		dst, src, idx := readU8(code, pc), readU8(code, pc), readU32(code, pc)
		v, err := th.attr(regs[src], th.pool.String(constIdx(idx)))
		if err != nil {
			return nil, false, err
		}
		regs[dst] = v
	case compiler.AccessString:
		dst, src, key := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		name, ok := regs[key].(value.String)
		if !ok {
			return nil, false, newError(KindTypeError, "dynamic attribute name must be a string, got %s", regs[key].Type())
		}
		v, err := th.attr(regs[src], string(name))
		if err != nil {
			return nil, false, err
		}
		regs[dst] = v

	case compiler.TryStart:
		catchReg := readU8(code, pc)
		off := readU16(code, pc)
		fr.handlers = append(fr.handlers, handler{catchReg: catchReg, target: *pc + uint32(off)})
	case compiler.TryEnd:
		fr.handlers = fr.handlers[:len(fr.handlers)-1]
	case compiler.Debug:
		src := readU8(code, pc)
		s, err := th.display(regs[src])
		if err != nil {
			return nil, false, err
		}
		fmt.Fprintf(th.stderr, "debug %s:%d: %s\n", fr.name, fr.chunk.LineForPc(fr.pc), s)
	case compiler.CheckType:
		src, tag := readU8(code, pc), readU8(code, pc)
		_ = src
		_ = tag
		// reserved: no compiler emission site yet defines the tag encoding.
	case compiler.CheckSize:
		matched, src, n := readU8(code, pc), readU8(code, pc), readU8(code, pc)
		sized, ok := regs[src].(value.Indexable)
		ok = ok && sized.Len() == n
		regs[matched] = value.Bool(bool(regs[matched].Truth()) && ok)

	case compiler.StringStart:
		dst, n := readU8(code, pc), readU8(code, pc)
		sb := &stringBuilder{}
		sb.sb.Grow(n)
		regs[dst] = sb
	case compiler.StringStart32:
		dst, n := readU8(code, pc), readU32(code, pc)
		sb := &stringBuilder{}
		sb.sb.Grow(n)
		regs[dst] = sb
	case compiler.StringPush:
		dst, frag := readU8(code, pc), readU8(code, pc)
		sb := regs[dst].(*stringBuilder)
		v := regs[frag]
		if s, ok := v.(value.String); ok {
			sb.sb.WriteString(string(s))
		} else {
			disp, err := th.display(v)
			if err != nil {
				return nil, false, err
			}
			sb.sb.WriteString(disp)
		}
	case compiler.StringFinish:
		dst := readU8(code, pc)
		sb := regs[dst].(*stringBuilder)
		regs[dst] = value.String(sb.sb.String())

	case compiler.Import:
		dst, idx := readU8(code, pc), readU16(code, pc)
		mod, err := th.importModule(th.pool.String(constIdx(idx)))
		if err != nil {
			return nil, false, err
		}
		regs[dst] = mod
	case compiler.ValueExport:
		idx, src := readU16(code, pc), readU8(code, pc)
		fr.export(th.pool.String(constIdx(idx)), regs[src])

	default:
		return nil, false, newError(KindError, "unimplemented opcode %s", op)
	}
	return nil, false, nil
}

func constIdx(i int) ast.ConstantIndex { return ast.ConstantIndex(i) }

// iteratorValue lets a value.Iterator (which is not itself a value.Value)
// sit in a register between MakeIterator and the IterNext family.
type iteratorValue struct{ value.Iterator }

func (iteratorValue) String() string    { return "<iterator>" }
func (iteratorValue) Type() string      { return "iterator" }
func (iteratorValue) Truth() value.Bool { return value.True }
