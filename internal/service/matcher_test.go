package service

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redflag-advisory-server/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testMatcherConfig() *domain.MatcherConfig {
	return &domain.MatcherConfig{
		NegationWindow: 5,
		NegationCues:   []string{"no", "not", "denies", "verneint", "keine", "ohne"},
		Breakers:       []string{"but", "jedoch", "aber"},
	}
}

func testCatalogue(t *testing.T, rules ...domain.Rule) *domain.RuleCatalogue {
	t.Helper()
	for i := range rules {
		require.NoError(t, rules[i].Validate())
	}
	catalogue, _ := domain.NewRuleCatalogue(
		domain.RuleSet{Source: domain.SourcePrimary, Rules: rules},
		domain.RuleSet{Source: domain.SourceFallback},
	)
	return catalogue
}

func suicidalityRule() domain.Rule {
	return domain.Rule{
		ID:       "sui-001",
		Category: domain.CategorySuicidality,
		Severity: domain.SeverityCritical,
		Patterns: []string{"suizidgedanken", "akute suizidalität"},
		Message:  "Hinweis auf akute Suizidalität.",
	}
}

func TestMatchExactLiteral(t *testing.T) {
	matcher := NewMatcher(testMatcherConfig(), quietLogger())
	catalogue := testCatalogue(t, suicidalityRule())

	text := "Pat. berichtet Suizidgedanken, aktuell akut."
	matches := matcher.Match(Normalize(text), domain.FieldAnamnesis, catalogue)

	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, "sui-001", m.RuleID)
	assert.Equal(t, domain.FieldAnamnesis, m.Field)
	assert.Equal(t, 1.0, m.Confidence)
	assert.False(t, m.Negated)
	assert.Equal(t, "Suizidgedanken", text[m.Span.Start:m.Span.End])
}

func TestMatchNegation(t *testing.T) {
	matcher := NewMatcher(testMatcherConfig(), quietLogger())
	catalogue := testCatalogue(t, suicidalityRule())

	tests := []struct {
		name    string
		text    string
		negated bool
	}{
		{"keine negates", "Pat. hat keine Suizidgedanken.", true},
		{"verneint negates", "Verneint Suizidgedanken und Fremdgefährdung.", true},
		{"affirmed", "Suizidgedanken, aktuell akut.", false},
		{"cue outside window", "Keine Beschwerden im Alltag, berichtet jetzt aber über akute starke Suizidgedanken.", false},
		{"breaker blocks cue", "Keine Panikattacken, jedoch Suizidgedanken.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := matcher.Match(Normalize(tt.text), domain.FieldAnamnesis, catalogue)
			require.Len(t, matches, 1, "negated matches must be retained, not dropped")
			assert.Equal(t, tt.negated, matches[0].Negated)
		})
	}
}

func TestMatchPerRuleNegationOverrides(t *testing.T) {
	rule := suicidalityRule()
	rule.NegationWindow = 2
	rule.NegationCues = []string{"verneint"}

	matcher := NewMatcher(testMatcherConfig(), quietLogger())
	catalogue := testCatalogue(t, rule)

	// "keine" is not in the rule's own cue list.
	matches := matcher.Match(Normalize("keine Suizidgedanken"), domain.FieldAnamnesis, catalogue)
	require.Len(t, matches, 1)
	assert.False(t, matches[0].Negated)

	// The rule window of 2 is shorter than the global 5.
	matches = matcher.Match(Normalize("verneint jegliche Art von Suizidgedanken"), domain.FieldAnamnesis, catalogue)
	require.Len(t, matches, 1)
	assert.False(t, matches[0].Negated)

	matches = matcher.Match(Normalize("verneint aktuell Suizidgedanken"), domain.FieldAnamnesis, catalogue)
	require.Len(t, matches, 1)
	assert.True(t, matches[0].Negated)
}

func TestMatchWildcardConfidence(t *testing.T) {
	rule := domain.Rule{
		ID:       "sui-002",
		Category: domain.CategorySuicidality,
		Severity: domain.SeverityHigh,
		Patterns: []string{"selbstverletz*", "hinweise auf * suizidalität"},
		Message:  "Hinweis auf Selbstverletzung.",
	}
	matcher := NewMatcher(testMatcherConfig(), quietLogger())
	catalogue := testCatalogue(t, rule)

	matches := matcher.Match(Normalize("Selbstverletzungen am Unterarm."), domain.FieldFindings, catalogue)
	require.Len(t, matches, 1)
	assert.Equal(t, 0.7, matches[0].Confidence)

	matches = matcher.Match(Normalize("Hinweise auf akute Suizidalität."), domain.FieldAssessment, catalogue)
	require.Len(t, matches, 1)
	assert.Equal(t, 0.7, matches[0].Confidence)
}

func TestMatchOneFirePerSpan(t *testing.T) {
	// Both patterns cover the same span; the exact one wins on confidence.
	rule := domain.Rule{
		ID:       "sui-003",
		Category: domain.CategorySuicidality,
		Severity: domain.SeverityHigh,
		Patterns: []string{"suizidgedanken", "suizid*"},
		Message:  "Hinweis.",
	}
	matcher := NewMatcher(testMatcherConfig(), quietLogger())
	catalogue := testCatalogue(t, rule)

	matches := matcher.Match(Normalize("Suizidgedanken seit Tagen."), domain.FieldAnamnesis, catalogue)
	require.Len(t, matches, 1)
	assert.Equal(t, 1.0, matches[0].Confidence)
}

func TestMatchDistinctSpansFireSeparately(t *testing.T) {
	matcher := NewMatcher(testMatcherConfig(), quietLogger())
	catalogue := testCatalogue(t, suicidalityRule())

	text := "Suizidgedanken morgens, Suizidgedanken abends."
	matches := matcher.Match(Normalize(text), domain.FieldAnamnesis, catalogue)
	require.Len(t, matches, 2)
	assert.Less(t, matches[0].Span.Start, matches[1].Span.Start)
}

func TestMatchIdempotent(t *testing.T) {
	matcher := NewMatcher(testMatcherConfig(), quietLogger())
	catalogue := testCatalogue(t, suicidalityRule())
	nt := Normalize("Keine Suizidgedanken, jedoch akute Suizidalität.")

	first := matcher.Match(nt, domain.FieldAnamnesis, catalogue)
	second := matcher.Match(nt, domain.FieldAnamnesis, catalogue)
	assert.Equal(t, first, second)
}

func TestMatchEmptyText(t *testing.T) {
	matcher := NewMatcher(testMatcherConfig(), quietLogger())
	catalogue := testCatalogue(t, suicidalityRule())
	assert.Nil(t, matcher.Match(Normalize(""), domain.FieldAnamnesis, catalogue))
}
