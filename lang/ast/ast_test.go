package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstantPoolDedup(t *testing.T) {
	p := NewConstantPool()
	a := p.AddString("foo")
	b := p.AddString("bar")
	c := p.AddString("foo")
	require.Equal(t, a, c)
	require.NotEqual(t, a, b)
	require.Equal(t, "foo", p.String(a))
	require.Equal(t, "bar", p.String(b))
	require.Equal(t, 2, p.Len())

	i := p.AddInt(42)
	require.Equal(t, int64(42), p.Int(i))
	f := p.AddFloat(1.5)
	require.Equal(t, 1.5, p.Float(f))
}

func TestEncodedWidth(t *testing.T) {
	require.Equal(t, 1, EncodedWidth(0))
	require.Equal(t, 1, EncodedWidth(0xFF))
	require.Equal(t, 2, EncodedWidth(0x100))
	require.Equal(t, 2, EncodedWidth(0xFFFF))
	require.Equal(t, 3, EncodedWidth(0x10000))
}

func TestTreeEntryPoint(t *testing.T) {
	tr := NewTree()
	_, ok := tr.EntryPoint()
	require.False(t, ok)

	lit := tr.Push(Node{Kind: KindInt, Const: tr.Pool.AddInt(1)})
	stmt := tr.Push(Node{Kind: KindExprStmt, Lhs: lit})
	main := tr.Push(Node{Kind: KindMainBlock, Items: []AstIndex{stmt}})

	idx, ok := tr.EntryPoint()
	require.True(t, ok)
	require.Equal(t, main, idx)

	// parent index must exceed every child index it references.
	require.Greater(t, main, stmt)
	require.Greater(t, stmt, lit)
}

func TestWalkVisitsChildren(t *testing.T) {
	tr := NewTree()
	one := tr.Push(Node{Kind: KindInt, Const: tr.Pool.AddInt(1)})
	two := tr.Push(Node{Kind: KindInt, Const: tr.Pool.AddInt(2)})
	sum := tr.Push(Node{Kind: KindBinaryExpr, Lhs: one, Rhs: two})

	var visited []AstIndex
	Walk(tr, sum, func(_ *Tree, idx AstIndex) bool {
		visited = append(visited, idx)
		return true
	})
	require.Equal(t, []AstIndex{sum, one, two}, visited)
}

func TestDumpRendersTree(t *testing.T) {
	tr := NewTree()
	lit := tr.Push(Node{Kind: KindInt, Const: tr.Pool.AddInt(7)})
	out := Dump(tr, lit)
	require.Contains(t, out, "(int 7)")
}
