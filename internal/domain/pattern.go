package domain

import (
	"fmt"
	"strings"
)

// Pattern validation errors.
var (
	ErrEmptyPattern     = fmt.Errorf("pattern is empty")
	ErrNoLiteralToken   = fmt.Errorf("pattern needs at least one non-wildcard token")
	ErrEmptyAlternative = fmt.Errorf("pattern alternation has an empty branch")
)

// PatternToken is one position in a compiled trigger pattern. Exactly one of
// the shapes applies: a plain literal, an alternation over literals, a
// prefix match, or a single-token wildcard.
type PatternToken struct {
	Literal      string
	Alternatives []string
	Prefix       string
	Wildcard     bool
}

// Exact reports whether the token matches only one exact surface form.
func (t PatternToken) Exact() bool {
	return !t.Wildcard && t.Prefix == "" && len(t.Alternatives) == 0
}

// Matches reports whether the folded form of a text token satisfies this
// pattern position.
func (t PatternToken) Matches(folded string) bool {
	switch {
	case t.Wildcard:
		return true
	case t.Prefix != "":
		return strings.HasPrefix(folded, t.Prefix)
	case len(t.Alternatives) > 0:
		for _, alt := range t.Alternatives {
			if folded == alt {
				return true
			}
		}
		return false
	default:
		return folded == t.Literal
	}
}

// Pattern is a compiled trigger pattern: a fixed-length sequence of token
// matchers applied to contiguous text tokens. Exact is true when every
// position is a plain literal, which drives the match confidence.
type Pattern struct {
	Raw    string
	Tokens []PatternToken
	Exact  bool
}

// Len returns the number of token positions the pattern consumes.
func (p Pattern) Len() int {
	return len(p.Tokens)
}

// MatchAt reports whether the pattern matches the token sequence starting at
// index start. On success it returns the index one past the last consumed
// token.
func (p Pattern) MatchAt(tokens []Token, start int) (end int, ok bool) {
	if start < 0 || start+len(p.Tokens) > len(tokens) {
		return 0, false
	}
	for i, pt := range p.Tokens {
		if !pt.Matches(tokens[start+i].Folded) {
			return 0, false
		}
	}
	return start + len(p.Tokens), true
}

// ParsePattern compiles a raw trigger pattern from a rule source. The raw
// form is a whitespace-separated token sequence where a token may be a
// literal, an alternation "a|b", a prefix wildcard "suizid*", or a bare "*"
// matching any single token. Literals are folded with Fold so rule authors
// may write umlauts or not. A pattern of only wildcards is rejected, it
// would fire on arbitrary text.
func ParsePattern(raw string) (Pattern, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Pattern{}, fmt.Errorf("%w: %q", ErrEmptyPattern, raw)
	}

	p := Pattern{Raw: raw, Exact: true}
	anchored := false
	for _, f := range fields {
		pt, err := parsePatternToken(f)
		if err != nil {
			return Pattern{}, fmt.Errorf("pattern %q: %w", raw, err)
		}
		if !pt.Exact() {
			p.Exact = false
		}
		if !pt.Wildcard {
			anchored = true
		}
		p.Tokens = append(p.Tokens, pt)
	}
	if !anchored {
		return Pattern{}, fmt.Errorf("%w: %q", ErrNoLiteralToken, raw)
	}
	return p, nil
}

func parsePatternToken(f string) (PatternToken, error) {
	if f == "*" {
		return PatternToken{Wildcard: true}, nil
	}
	if strings.Contains(f, "|") {
		parts := strings.Split(f, "|")
		alts := make([]string, 0, len(parts))
		for _, part := range parts {
			if part == "" {
				return PatternToken{}, ErrEmptyAlternative
			}
			alts = append(alts, Fold(part))
		}
		return PatternToken{Alternatives: alts}, nil
	}
	if strings.HasSuffix(f, "*") {
		prefix := strings.TrimSuffix(f, "*")
		if prefix == "" {
			return PatternToken{Wildcard: true}, nil
		}
		return PatternToken{Prefix: Fold(prefix)}, nil
	}
	return PatternToken{Literal: Fold(f)}, nil
}
