package value

import "sort"

// Object is a host-provided compound value: a named bag of fields plus an
// optional meta-table, used by embedding applications to expose native
// data structures and methods to scripts without going through Map.
type Object struct {
	TypeName string
	fields   map[string]Value
	meta     *MetaTable
}

var (
	_ Value         = (*Object)(nil)
	_ HasAttrs      = (*Object)(nil)
	_ HasSetField   = (*Object)(nil)
	_ HasMetatable  = (*Object)(nil)
)

// NewObject returns an empty Object of the given type name.
func NewObject(typeName string) *Object {
	return &Object{TypeName: typeName, fields: make(map[string]Value)}
}

func (o *Object) String() string { return o.TypeName + "{}" }
func (o *Object) Type() string   { return o.TypeName }
func (*Object) Truth() Bool      { return True }

func (o *Object) Attr(name string) (Value, error) {
	v, ok := o.fields[name]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (o *Object) SetField(name string, v Value) error {
	o.fields[name] = v
	return nil
}

func (o *Object) AttrNames() []string {
	names := make([]string, 0, len(o.fields))
	for n := range o.fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (o *Object) Metatable() *MetaTable      { return o.meta }
func (o *Object) SetMetatable(mt *MetaTable) { o.meta = mt }
