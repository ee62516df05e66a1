package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toks(words ...string) []Token {
	out := make([]Token, len(words))
	pos := 0
	for i, w := range words {
		out[i] = Token{Text: w, Folded: Fold(w), Start: pos, End: pos + len(w)}
		pos += len(w) + 1
	}
	return out
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantLen   int
		wantExact bool
		wantErr   error
	}{
		{"single literal", "suizidgedanken", 1, true, nil},
		{"multi token literal", "akute suizidalität", 2, true, nil},
		{"alternation", "gewalt|aggression", 1, false, nil},
		{"prefix wildcard", "suizid*", 1, false, nil},
		{"bare wildcard with anchor", "hinweise auf * suizidalität", 4, false, nil},
		{"empty", "   ", 0, false, ErrEmptyPattern},
		{"only wildcards", "* *", 0, false, ErrNoLiteralToken},
		{"empty alternative", "gewalt|", 0, false, ErrEmptyAlternative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePattern(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, p.Len())
			assert.Equal(t, tt.wantExact, p.Exact)
		})
	}
}

func TestPatternMatchAt(t *testing.T) {
	tokens := toks("pat", "äußert", "akute", "suizidgedanken", "seit", "tagen")

	t.Run("literal phrase matches with fold", func(t *testing.T) {
		p, err := ParsePattern("aussert akute suizidgedanken")
		require.NoError(t, err)
		end, ok := p.MatchAt(tokens, 1)
		assert.True(t, ok)
		assert.Equal(t, 4, end)
	})

	t.Run("no match at wrong offset", func(t *testing.T) {
		p, err := ParsePattern("akute suizidgedanken")
		require.NoError(t, err)
		_, ok := p.MatchAt(tokens, 1)
		assert.False(t, ok)
	})

	t.Run("prefix wildcard", func(t *testing.T) {
		p, err := ParsePattern("suizid*")
		require.NoError(t, err)
		end, ok := p.MatchAt(tokens, 3)
		assert.True(t, ok)
		assert.Equal(t, 4, end)
	})

	t.Run("alternation", func(t *testing.T) {
		p, err := ParsePattern("akute|chronische suizidgedanken")
		require.NoError(t, err)
		_, ok := p.MatchAt(tokens, 2)
		assert.True(t, ok)
	})

	t.Run("single token wildcard bridges one token", func(t *testing.T) {
		p, err := ParsePattern("äußert * suizidgedanken")
		require.NoError(t, err)
		end, ok := p.MatchAt(tokens, 1)
		assert.True(t, ok)
		assert.Equal(t, 4, end)
	})

	t.Run("pattern longer than remaining tokens", func(t *testing.T) {
		p, err := ParsePattern("seit tagen ohne")
		require.NoError(t, err)
		_, ok := p.MatchAt(tokens, 4)
		assert.False(t, ok)
	})
}
