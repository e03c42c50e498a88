package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		if tok.String() == "" {
			t.Errorf("missing string representation of token %d", tok)
		}
	}
}

func TestLookupKw(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		if tok == ELIF {
			// never produced by keyword lookup, see LookupKw.
			continue
		}
		expect := tok > kwStart && tok < kwEnd
		got := LookupKw(tok.String())
		if expect {
			require.Equal(t, tok, got)
		} else {
			require.Equal(t, IDENT, got)
		}
	}
}

func TestIsAugBinop(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		require.Equal(t, tok > augopStart && tok < augopEnd, tok.IsAugBinop())
	}
}

func TestIsAtom(t *testing.T) {
	require.True(t, INT.IsAtom())
	require.True(t, TRUE.IsAtom())
	require.False(t, PLUS.IsAtom())
}

func TestLiteral(t *testing.T) {
	val := Value{Raw: "ident", Str: "hi", Int: 1, Float: 2}
	require.Equal(t, "ident", IDENT.Literal(val))
	require.Equal(t, `"hi"`, STRING.Literal(val))
	require.Equal(t, "1", INT.Literal(val))
	require.Equal(t, "2", FLOAT.Literal(val))
	require.Equal(t, "", ILLEGAL.Literal(val))
}
