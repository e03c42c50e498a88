package value

// MetaKey tags one of the fixed operator/protocol overload slots a
// meta-table may bind, looked up by array index for O(1) dispatch.
type MetaKey uint8

const (
	MetaAdd MetaKey = iota
	MetaSub
	MetaMul
	MetaDiv
	MetaRem
	MetaEq
	MetaNotEq
	MetaLess
	MetaLessEq
	MetaGreater
	MetaGreaterEq
	MetaAddAssign
	MetaSubAssign
	MetaIndex
	MetaOr
	MetaIterator
	MetaNext
	MetaNextBack
	MetaDisplay
	MetaBase

	metaKeyCount
)

var metaKeyNames = [metaKeyCount]string{
	MetaAdd:        "@+",
	MetaSub:        "@-",
	MetaMul:        "@*",
	MetaDiv:        "@/",
	MetaRem:        "@%",
	MetaEq:         "@==",
	MetaNotEq:      "@!=",
	MetaLess:       "@<",
	MetaLessEq:     "@<=",
	MetaGreater:    "@>",
	MetaGreaterEq:  "@>=",
	MetaAddAssign:  "@+=",
	MetaSubAssign:  "@-=",
	MetaIndex:      "@[]",
	MetaOr:         "@||",
	MetaIterator:   "@iterator",
	MetaNext:       "@next",
	MetaNextBack:   "@next_back",
	MetaDisplay:    "@display",
	MetaBase:       "@base",
}

func (k MetaKey) String() string {
	if int(k) < len(metaKeyNames) {
		return metaKeyNames[k]
	}
	return "@?"
}

// LookupMetaKey returns the MetaKey named by s (e.g. "@+"), and whether
// one exists.
func LookupMetaKey(s string) (MetaKey, bool) {
	for k, name := range metaKeyNames {
		if name == s {
			return MetaKey(k), true
		}
	}
	return 0, false
}

// MetaTable holds a value's operator/protocol overrides: a fixed-size
// array indexed by MetaKey for the closed set of overloadable operators,
// plus a side map for arbitrary named entries (`@meta name: ...`). Shared
// like Map/List: Copy/DeepCopy of the owning value preserve the binding
// (the MetaTable pointer itself, not a clone of it), matching this
// module's container ownership rule that meta-tables travel with copy
// the same way a Map's own entries do.
type MetaTable struct {
	slots [metaKeyCount]Value
	named map[string]Value
}

// NewMetaTable returns an empty MetaTable.
func NewMetaTable() *MetaTable { return &MetaTable{} }

// Get returns the value bound to k, or (nil, false) if unbound.
func (mt *MetaTable) Get(k MetaKey) (Value, bool) {
	if mt == nil {
		return nil, false
	}
	v := mt.slots[k]
	return v, v != nil
}

// Set binds k to v.
func (mt *MetaTable) Set(k MetaKey, v Value) { mt.slots[k] = v }

// GetNamed returns the value bound to the named meta entry name, or
// (nil, false) if unbound.
func (mt *MetaTable) GetNamed(name string) (Value, bool) {
	if mt == nil || mt.named == nil {
		return nil, false
	}
	v, ok := mt.named[name]
	return v, ok
}

// SetNamed binds a named meta entry (export via `@meta name: value`).
func (mt *MetaTable) SetNamed(name string, v Value) {
	if mt.named == nil {
		mt.named = make(map[string]Value)
	}
	mt.named[name] = v
}
