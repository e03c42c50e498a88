package value_test

import (
	"testing"

	"github.com/mna/ember/lang/value"
	"github.com/stretchr/testify/require"
)

func TestListCopySemantics(t *testing.T) {
	l := value.NewList([]value.Value{value.Int(1), value.Int(2)})
	alias := l
	require.NoError(t, alias.SetIndex(0, value.Int(99)))
	require.Equal(t, value.Int(99), l.Index(0), "alias mutation must be visible through the original")

	dup := l.Copy()
	require.NoError(t, dup.SetIndex(0, value.Int(1)))
	require.Equal(t, value.Int(99), l.Index(0), "copy must not affect the original")
}

func TestListMutationDuringIterationFails(t *testing.T) {
	l := value.NewList([]value.Value{value.Int(1), value.Int(2)})
	it := l.Iterate()
	err := l.Append(value.Int(3))
	require.Error(t, err)
	it.Done()
	require.NoError(t, l.Append(value.Int(3)))
}

func TestMapGetSetDelete(t *testing.T) {
	m := value.NewMap(0)
	require.NoError(t, m.SetKey(value.String("a"), value.Int(1)))
	v, ok, err := m.Get(value.String("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, value.Int(1), v)

	require.NoError(t, m.Delete(value.String("a")))
	_, ok, err = m.Get(value.String("a"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMapPreservesInsertionOrder(t *testing.T) {
	m := value.NewMap(0)
	require.NoError(t, m.SetKey(value.String("b"), value.Int(2)))
	require.NoError(t, m.SetKey(value.String("a"), value.Int(1)))
	items := m.Items()
	require.Len(t, items, 2)
	require.Equal(t, value.String("b"), items[0].Index(0))
	require.Equal(t, value.String("a"), items[1].Index(0))
}

func TestMapDeepCopyPreservesMetatable(t *testing.T) {
	m := value.NewMap(0)
	mt := value.NewMetaTable()
	mt.Set(value.MetaAdd, &value.NativeFunction{FuncName: "add"})
	m.SetMetatable(mt)

	dup := m.DeepCopy()
	got, ok := dup.Metatable().Get(value.MetaAdd)
	require.True(t, ok)
	require.NotNil(t, got)
	require.Same(t, mt, dup.Metatable(), "deep_copy preserves the meta-table binding, not a clone of it")
}

func TestTupleEquality(t *testing.T) {
	a := value.NewTuple([]value.Value{value.Int(1), value.String("x")})
	b := value.NewTuple([]value.Value{value.Int(1), value.String("x")})
	eq, err := a.Equals(b)
	require.NoError(t, err)
	require.True(t, eq)
}

func TestRangeIteration(t *testing.T) {
	r := value.Range{Lo: 1, Hi: 3, Inclusive: false}
	it := r.Iterate()
	var got []int64
	var x value.Value
	for it.Next(&x) {
		got = append(got, int64(x.(value.Int)))
	}
	require.Equal(t, []int64{1, 2}, got)
}

func TestRangeInclusive(t *testing.T) {
	r := value.Range{Lo: 1, Hi: 3, Inclusive: true}
	it := r.Iterate()
	var got []int64
	var x value.Value
	for it.Next(&x) {
		got = append(got, int64(x.(value.Int)))
	}
	require.Equal(t, []int64{1, 2, 3}, got)
}

func TestRemainderByZeroIsNaN(t *testing.T) {
	r, ok := value.Remainder(value.Int(5), value.Int(0))
	require.True(t, ok)
	f, isFloat := r.(value.Float)
	require.True(t, isFloat)
	require.True(t, float64(f) != float64(f), "expected NaN")
}

func TestNumericBinaryPromotesOnOverflow(t *testing.T) {
	const maxInt64 = int64(1<<63 - 1)
	r, ok := value.NumericBinary(func(x, y int64) (int64, bool) {
		s := x + y
		return s, s >= x // overflow check
	}, func(x, y float64) float64 { return x + y }, value.Int(maxInt64), value.Int(1))
	require.True(t, ok)
	_, isFloat := r.(value.Float)
	require.True(t, isFloat, "overflowing int add should promote to float")
}

func TestMetaTableNamedEntries(t *testing.T) {
	mt := value.NewMetaTable()
	mt.SetNamed("greeting", value.String("hi"))
	v, ok := mt.GetNamed("greeting")
	require.True(t, ok)
	require.Equal(t, value.String("hi"), v)
}

func TestObjectAttrs(t *testing.T) {
	o := value.NewObject("point")
	require.NoError(t, o.SetField("x", value.Int(1)))
	v, err := o.Attr("x")
	require.NoError(t, err)
	require.Equal(t, value.Int(1), v)

	v, err = o.Attr("missing")
	require.NoError(t, err)
	require.Nil(t, v)
}
