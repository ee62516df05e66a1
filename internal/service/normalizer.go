// Package service implements the screening engine: text normalization,
// rule matching with negation handling, and resolution of rule matches
// against external model flags into the final advisory list.
package service

import (
	"strings"
	"unicode"

	"github.com/redflag-advisory-server/internal/domain"
)

// Normalize tokenizes one clinical field for matching. Tokens are runs of
// letters and digits; everything else separates. Each token carries its
// byte offsets into the original text, its lower-cased form and a
// diacritic-folded form. The original text is never modified, offsets stay
// valid for highlighting. Normalize is deterministic and side-effect free.
func Normalize(fieldText string) domain.NormalizedText {
	nt := domain.NormalizedText{Original: fieldText}

	start := -1
	for i, r := range fieldText {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			nt.Tokens = append(nt.Tokens, makeToken(fieldText, start, i))
			start = -1
		}
	}
	if start >= 0 {
		nt.Tokens = append(nt.Tokens, makeToken(fieldText, start, len(fieldText)))
	}

	for _, tok := range nt.Tokens {
		if tok.Folded != tok.Text {
			nt.Folded = true
			break
		}
	}
	return nt
}

func makeToken(original string, start, end int) domain.Token {
	raw := original[start:end]
	return domain.Token{
		Text:   strings.ToLower(raw),
		Folded: domain.Fold(raw),
		Start:  start,
		End:    end,
	}
}
