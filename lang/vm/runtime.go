package vm

import (
	"github.com/mna/ember/lang/value"
)

// loadGlobal resolves a LoadNonLocal opcode's name against the thread's
// global namespace, the only non-local scope this module's resolver
// leaves for the VM to handle at runtime (locals and captures are all
// resolved to fixed registers at compile time).
func (th *Thread) loadGlobal(name string) (value.Value, error) {
	if v, ok := th.Globals[name]; ok {
		return v, nil
	}
	return nil, newError(KindNameError, "undefined name %q", name)
}

// metatableOf returns x's MetaTable, lazily attaching a fresh one if x
// supports meta-tables but doesn't have one yet (the case for a Map or
// Object literal gaining its first `@meta`/operator override entry).
func (th *Thread) metatableOf(x value.Value) (*value.MetaTable, error) {
	hm, ok := x.(value.HasMetatable)
	if !ok {
		return nil, newError(KindTypeError, "%s cannot carry a meta-table", x.Type())
	}
	mt := hm.Metatable()
	if mt == nil {
		mt = value.NewMetaTable()
		hm.SetMetatable(mt)
	}
	return mt, nil
}

func asInt(v value.Value) (int, bool) {
	i, ok := v.(value.Int)
	return int(i), ok
}

// sliceFrom evaluates `src[lo:]`.
func (th *Thread) sliceFrom(src, loV value.Value) (value.Value, error) {
	lo, ok := asInt(loV)
	if !ok {
		return nil, newError(KindTypeError, "slice bound must be an int, got %s", loV.Type())
	}
	switch s := src.(type) {
	case *value.List:
		lo = clampIndex(lo, s.Len())
		elems := make([]value.Value, s.Len()-lo)
		for i := range elems {
			elems[i] = s.Index(lo + i)
		}
		return value.NewList(elems), nil
	case value.Tuple:
		lo = clampIndex(lo, s.Len())
		elems := make([]value.Value, s.Len()-lo)
		for i := range elems {
			elems[i] = s.Index(lo + i)
		}
		return value.NewTuple(elems), nil
	case value.String:
		lo = clampIndex(lo, len(s))
		return s[lo:], nil
	default:
		return nil, newError(KindTypeError, "%s cannot be sliced", src.Type())
	}
}

// sliceTo evaluates `src[:hi]`.
func (th *Thread) sliceTo(src, hiV value.Value) (value.Value, error) {
	hi, ok := asInt(hiV)
	if !ok {
		return nil, newError(KindTypeError, "slice bound must be an int, got %s", hiV.Type())
	}
	switch s := src.(type) {
	case *value.List:
		hi = clampIndex(hi, s.Len())
		elems := make([]value.Value, hi)
		for i := range elems {
			elems[i] = s.Index(i)
		}
		return value.NewList(elems), nil
	case value.Tuple:
		hi = clampIndex(hi, s.Len())
		elems := make([]value.Value, hi)
		for i := range elems {
			elems[i] = s.Index(i)
		}
		return value.NewTuple(elems), nil
	case value.String:
		hi = clampIndex(hi, len(s))
		return s[:hi], nil
	default:
		return nil, newError(KindTypeError, "%s cannot be sliced", src.Type())
	}
}

func clampIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}

// importModule loads and runs the module at path exactly once per call
// site (no cache: a host embedding this VM is expected to memoize its
// ModuleLoader if a module is heavy to compile), returning its exported
// bindings as a Map.
//
// A module owns its own constant pool and nested function Chunks (it was
// compiled from its own lang/ast.Tree), so the thread's pool/funcs are
// swapped for the module's own for the duration of running it and
// restored before returning, the same way callFunction would need to if
// this module system grew cross-pool closures.
func (th *Thread) importModule(path string) (value.Value, error) {
	if th.ModuleLoader == nil {
		return nil, newError(KindError, "import is not supported on this thread")
	}
	prog, err := th.ModuleLoader(path)
	if err != nil {
		return nil, newError(KindError, "import %q: %v", path, err)
	}

	savedPool, savedFuncs := th.pool, th.funcs
	th.pool, th.funcs = prog.Pool, prog.Funcs
	fr := newFrame(prog.Main, path)
	_, runErr := th.run(fr)
	th.pool, th.funcs = savedPool, savedFuncs
	if runErr != nil {
		return nil, runErr
	}

	if fr.exports == nil {
		return value.NewMap(0), nil
	}
	return fr.exports, nil
}
