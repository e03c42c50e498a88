package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type span struct{ s, e Pos }

func (sp span) Span() (start, end Pos) { return sp.s, sp.e }

func TestPosInside(t *testing.T) {
	cases := []struct {
		ref, test span
		want      bool
	}{
		{span{1, 10}, span{2, 9}, true},
		{span{1, 10}, span{1, 10}, true},
		{span{1, 10}, span{0, 10}, false},
		{span{1, 10}, span{2, 11}, false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, PosInside(c.ref, c.test))
	}
}

func TestFileSetPosition(t *testing.T) {
	fs := NewFileSet()
	f := fs.AddFile("a.em", -1, 20)
	f.AddLine(5)
	f.AddLine(10)

	pos := f.Pos(6)
	got := f.Position(pos)
	require.Equal(t, Position{Filename: "a.em", Line: 2, Column: 2}, got)

	g := fs.AddFile("b.em", -1, 5)
	require.Equal(t, f.base+f.size+1, g.Base())
	require.Same(t, g, fs.File(g.Pos(0)))
}

func TestFormatPos(t *testing.T) {
	fs := NewFileSet()
	f := fs.AddFile("a.em", -1, 10)
	p := f.Pos(3)

	require.Equal(t, "-", FormatPos(PosOffsets, f, NoPos, true))
	require.Equal(t, "3", FormatPos(PosOffsets, f, p, true))
	require.Equal(t, "a.em:1:4", FormatPos(PosLong, f, p, true))
	require.Equal(t, "1:4", FormatPos(PosLong, f, p, false))
	require.Equal(t, "", FormatPos(PosNone, f, p, true))
}
