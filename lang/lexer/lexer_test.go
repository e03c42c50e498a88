package lexer

import (
	"testing"

	"github.com/mna/ember/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) ([]token.Token, []token.Value) {
	t.Helper()
	fset := token.NewFileSet()
	f := fset.AddFile("test.em", -1, len(src))

	var errs token.ErrorList
	var s Scanner
	s.Init(f, []byte(src), func(pos token.Position, msg string) { errs.Add(pos, msg) })

	var toks []token.Token
	var vals []token.Value
	for {
		var v token.Value
		tok := s.Scan(&v)
		toks = append(toks, tok)
		vals = append(vals, v)
		if tok == token.EOF {
			break
		}
	}
	require.Empty(t, errs, "unexpected lexer errors")
	return toks, vals
}

func TestIdentsAndKeywords(t *testing.T) {
	toks, vals := scanAll(t, "foo bar_baz _ _ignored if else")
	require.Equal(t, []token.Token{token.IDENT, token.IDENT, token.IGNORE, token.IDENT, token.IF, token.ELSE, token.EOF}, toks)
	require.Equal(t, "foo", vals[0].Raw)
	require.Equal(t, "bar_baz", vals[1].Raw)
	require.Equal(t, "_ignored", vals[3].Raw)
}

func TestElseIfFusion(t *testing.T) {
	toks, _ := scanAll(t, "if x\nelse if y\nelse\n")
	require.Contains(t, toks, token.ELIF)
	require.NotContains(t, toks[2:4], token.ELSE)
}

func TestNumbers(t *testing.T) {
	toks, vals := scanAll(t, "123 1_000 0x1F 0o17 0b101 1.5 1.5e10 .5")
	require.Equal(t, token.INT, toks[0])
	require.EqualValues(t, 123, vals[0].Int)
	require.Equal(t, token.INT, toks[1])
	require.EqualValues(t, 1000, vals[1].Int)
	require.Equal(t, token.INT, toks[2])
	require.EqualValues(t, 31, vals[2].Int)
	require.Equal(t, token.INT, toks[3])
	require.EqualValues(t, 15, vals[3].Int)
	require.Equal(t, token.INT, toks[4])
	require.EqualValues(t, 5, vals[4].Int)
	require.Equal(t, token.FLOAT, toks[5])
	require.InDelta(t, 1.5, vals[5].Float, 1e-9)
	require.Equal(t, token.FLOAT, toks[6])
	require.InDelta(t, 1.5e10, vals[6].Float, 1)
	require.Equal(t, token.FLOAT, toks[7])
}

func TestPlainString(t *testing.T) {
	toks, vals := scanAll(t, `"hello\nworld"`)
	require.Equal(t, []token.Token{token.STRING_START, token.STRING_END, token.EOF}, toks)
	require.Equal(t, "hello\nworld", vals[1].Str)
}

func TestInterpolatedString(t *testing.T) {
	toks, vals := scanAll(t, `"x = {x}!"`)
	require.Equal(t, token.STRING_START, toks[0])
	require.Equal(t, token.STRING_FRAG, toks[1])
	require.Equal(t, "x = ", vals[1].Str)
	require.Equal(t, token.IDENT, toks[2])
	require.Equal(t, "x", vals[2].Raw)
	require.Equal(t, token.STRING_END, toks[3])
	require.Equal(t, "!", vals[3].Str)
}

func TestInterpolatedStringWithFormatSpec(t *testing.T) {
	toks, vals := scanAll(t, `"{x:.2f}"`)
	require.Equal(t, []token.Token{
		token.STRING_START, token.STRING_FRAG, token.IDENT, token.COLON, token.STRING_FRAG, token.STRING_END, token.EOF,
	}, toks)
	require.Equal(t, ".2f", vals[4].Str)
}

func TestRawString(t *testing.T) {
	toks, vals := scanAll(t, `r#"no \n escapes { here }"#`)
	require.Equal(t, []token.Token{token.STRING_START, token.STRING_END, token.EOF}, toks)
	require.Equal(t, `no \n escapes { here }`, vals[1].Str)
}

func TestComments(t *testing.T) {
	toks, vals := scanAll(t, "# line comment\n#- block\ncomment -#\nfoo")
	require.Equal(t, token.COMMENT, toks[0])
	require.Equal(t, "line comment", vals[0].Str)
	require.Equal(t, token.NEWLINE, toks[1])
	require.Equal(t, token.COMMENT, toks[2])
}

func TestIndentation(t *testing.T) {
	src := "if x\n  a\n  b\nc\n"
	toks, _ := scanAll(t, src)
	require.Equal(t, []token.Token{
		token.IF, token.IDENT, token.NEWLINE,
		token.INDENT, token.IDENT, token.NEWLINE,
		token.IDENT, token.NEWLINE,
		token.DEDENT, token.IDENT, token.NEWLINE,
		token.EOF,
	}, toks)
}

func TestBracketsSuppressNewline(t *testing.T) {
	toks, _ := scanAll(t, "f(\n  1,\n  2,\n)\n")
	require.NotContains(t, toks[:len(toks)-2], token.NEWLINE)
}

func TestPeekDoesNotConsume(t *testing.T) {
	fset := token.NewFileSet()
	src := "a b c"
	f := fset.AddFile("t.em", -1, len(src))
	var s Scanner
	s.Init(f, []byte(src), nil)

	tok, val := s.Peek()
	require.Equal(t, token.IDENT, tok)
	require.Equal(t, "a", val.Raw)

	tok2, val2 := s.PeekN(1)
	require.Equal(t, token.IDENT, tok2)
	require.Equal(t, "b", val2.Raw)

	var got token.Value
	require.Equal(t, token.IDENT, s.Scan(&got))
	require.Equal(t, "a", got.Raw)
	require.Equal(t, token.IDENT, s.Scan(&got))
	require.Equal(t, "b", got.Raw)
}
