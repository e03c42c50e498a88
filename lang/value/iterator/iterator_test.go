package iterator_test

import (
	"testing"

	"github.com/mna/ember/lang/value"
	"github.com/mna/ember/lang/value/iterator"
	"github.com/stretchr/testify/require"
)

func ints(xs ...int64) value.Iterator {
	elems := make([]value.Value, len(xs))
	for i, x := range xs {
		elems[i] = value.Int(x)
	}
	return value.NewList(elems).Iterate()
}

func drain(t *testing.T, it value.Iterator) []value.Value {
	t.Helper()
	var out []value.Value
	var x value.Value
	for it.Next(&x) {
		out = append(out, x)
	}
	return out
}

func TestMapKeep(t *testing.T) {
	doubled := iterator.Map(ints(1, 2, 3), func(v value.Value) (value.Value, error) {
		return value.Int(int64(v.(value.Int)) * 2), nil
	})
	require.Equal(t, []value.Value{value.Int(2), value.Int(4), value.Int(6)}, drain(t, doubled))

	evens := iterator.Keep(ints(1, 2, 3, 4), func(v value.Value) (bool, error) {
		return int64(v.(value.Int))%2 == 0, nil
	})
	require.Equal(t, []value.Value{value.Int(2), value.Int(4)}, drain(t, evens))
}

func TestChainFlatten(t *testing.T) {
	chained := iterator.Chain(ints(1, 2), ints(3, 4))
	require.Equal(t, []value.Value{value.Int(1), value.Int(2), value.Int(3), value.Int(4)}, drain(t, chained))

	nested := value.NewList([]value.Value{
		value.NewList([]value.Value{value.Int(1), value.Int(2)}),
		value.NewList([]value.Value{value.Int(3)}),
	})
	flat := iterator.Flatten(nested.Iterate())
	require.Equal(t, []value.Value{value.Int(1), value.Int(2), value.Int(3)}, drain(t, flat))
}

func TestSkipTakeStep(t *testing.T) {
	require.Equal(t, []value.Value{value.Int(3), value.Int(4)}, drain(t, iterator.Skip(ints(1, 2, 3, 4), 2)))
	require.Equal(t, []value.Value{value.Int(1), value.Int(2)}, drain(t, iterator.Take(ints(1, 2, 3, 4), 2)))
	require.Equal(t, []value.Value{value.Int(1), value.Int(3)}, drain(t, iterator.Step(ints(1, 2, 3, 4), 2)))
}

func TestEnumerateZip(t *testing.T) {
	got := drain(t, iterator.Enumerate(ints(10, 20)))
	require.Len(t, got, 2)
	require.Equal(t, value.NewTuple([]value.Value{value.Int(0), value.Int(10)}), got[0])

	zipped := drain(t, iterator.Zip(ints(1, 2), ints(9, 8, 7)))
	require.Len(t, zipped, 2, "zip stops at the shortest source")
}

func TestWindowsChunks(t *testing.T) {
	w := drain(t, iterator.Windows(ints(1, 2, 3, 4), 2))
	require.Len(t, w, 3)
	require.Equal(t, value.NewTuple([]value.Value{value.Int(1), value.Int(2)}), w[0])
	require.Equal(t, value.NewTuple([]value.Value{value.Int(3), value.Int(4)}), w[2])

	c := drain(t, iterator.Chunks(ints(1, 2, 3, 4, 5), 2))
	require.Len(t, c, 3)
	require.Equal(t, value.NewTuple([]value.Value{value.Int(5)}), c[2])
}

func TestReversedCycle(t *testing.T) {
	require.Equal(t, []value.Value{value.Int(3), value.Int(2), value.Int(1)}, drain(t, iterator.Reversed(ints(1, 2, 3))))

	cy := iterator.Cycle(ints(1, 2))
	var got []value.Value
	var x value.Value
	for i := 0; i < 5; i++ {
		cy.Next(&x)
		got = append(got, x)
	}
	require.Equal(t, []value.Value{value.Int(1), value.Int(2), value.Int(1), value.Int(2), value.Int(1)}, got)
}

func TestEagerAdaptors(t *testing.T) {
	require.Equal(t, 3, iterator.Count(ints(1, 2, 3)))

	sum, err := iterator.Sum(ints(1, 2, 3))
	require.NoError(t, err)
	require.Equal(t, value.Int(6), sum)

	product, err := iterator.Product(ints(2, 3, 4))
	require.NoError(t, err)
	require.Equal(t, value.Int(24), product)

	found, ok, err := iterator.Find(ints(1, 2, 3), func(v value.Value) (bool, error) {
		return int64(v.(value.Int)) == 2, nil
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, value.Int(2), found)

	all, err := iterator.All(ints(2, 4, 6), func(v value.Value) (bool, error) {
		return int64(v.(value.Int))%2 == 0, nil
	})
	require.NoError(t, err)
	require.True(t, all)
}

func TestPeekable(t *testing.T) {
	p := iterator.NewPeekable(ints(1, 2))
	v, ok := p.Peek()
	require.True(t, ok)
	require.Equal(t, value.Int(1), v)

	var x value.Value
	require.True(t, p.Next(&x))
	require.Equal(t, value.Int(1), x, "peek must not consume")
}

func TestToListToTuple(t *testing.T) {
	l := iterator.ToList(ints(1, 2, 3))
	require.Equal(t, 3, l.Len())

	tup := iterator.ToTuple(ints(1, 2))
	require.Equal(t, 2, tup.Len())
}
