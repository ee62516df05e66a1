package domain

import "strings"

// Token is a single normalized token with byte offsets into the original
// field text. Text is the lower-cased surface form, Folded additionally has
// diacritics folded away for matching. Offsets always point into the
// unmodified original so that spans can be mapped back for UI highlighting.
type Token struct {
	Text   string `json:"text"`
	Folded string `json:"folded"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// NormalizedText is the tokenized, case- and whitespace-normalized form of
// one clinical field. It is ephemeral: built per match request, discarded
// after matching.
type NormalizedText struct {
	Original string  `json:"original"`
	Tokens   []Token `json:"tokens"`

	// Folded records that at least one token required diacritic folding,
	// so callers know the folded forms are not byte-exact substrings.
	Folded bool `json:"folded"`
}

// Span is a half-open byte range [Start, End) into the original field text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Fold lower-cases s and folds diacritics to their base letters.
// Both trigger patterns and field tokens go through the same fold, so the
// comparison stays consistent regardless of how the rule author spelled
// umlauts. Fold is total: unknown runes pass through unchanged.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		b.WriteString(foldRune(r))
	}
	return b.String()
}

func foldRune(r rune) string {
	switch r {
	case 'ä', 'à', 'â', 'á', 'å':
		return "a"
	case 'ö', 'ô', 'ó', 'ò':
		return "o"
	case 'ü', 'û', 'ú', 'ù':
		return "u"
	case 'é', 'è', 'ê', 'ë':
		return "e"
	case 'î', 'ï', 'í', 'ì':
		return "i"
	case 'ç':
		return "c"
	case 'ñ':
		return "n"
	case 'ß':
		return "ss"
	default:
		return string(r)
	}
}
