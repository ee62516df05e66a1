package service

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/redflag-advisory-server/internal/domain"
)

// Match confidence by pattern shape.
const (
	confidenceExact  = 1.0
	confidenceFuzzy  = 0.7
	defaultNegWindow = 5
)

// Matcher applies catalogue rules to normalized field text. It is stateless
// apart from configuration and safe for concurrent use.
type Matcher struct {
	window   int
	cues     map[string]bool
	breakers map[string]bool
	logger   *logrus.Logger
}

// NewMatcher creates a matcher with the given negation settings. Cue and
// breaker words are folded so they compare against folded tokens.
func NewMatcher(cfg *domain.MatcherConfig, logger *logrus.Logger) *Matcher {
	if logger == nil {
		logger = logrus.New()
	}
	m := &Matcher{
		window:   defaultNegWindow,
		cues:     foldSet(cfg.NegationCues),
		breakers: foldSet(cfg.Breakers),
		logger:   logger,
	}
	if cfg.NegationWindow > 0 {
		m.window = cfg.NegationWindow
	}
	return m
}

func foldSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[domain.Fold(w)] = true
	}
	return set
}

// Match runs every catalogue rule over the normalized text and returns the
// raw matches, negated ones included. A rule fires at most once per
// distinct span; when several of its patterns cover the same span the
// highest confidence wins. Output order is deterministic: rule id, then
// span start, then span end. Match is pure, the same input always yields
// the same output.
func (m *Matcher) Match(normalized domain.NormalizedText, field domain.FieldName, catalogue *domain.RuleCatalogue) []domain.RawMatch {
	tokens := normalized.Tokens
	if len(tokens) == 0 {
		return nil
	}

	type spanKey struct {
		ruleID     string
		start, end int
	}
	best := make(map[spanKey]domain.RawMatch)

	for _, rule := range catalogue.Rules() {
		for _, pattern := range catalogue.Patterns(rule.ID) {
			for start := 0; start+pattern.Len() <= len(tokens); start++ {
				end, ok := pattern.MatchAt(tokens, start)
				if !ok {
					continue
				}
				confidence := confidenceFuzzy
				if pattern.Exact {
					confidence = confidenceExact
				}
				match := domain.RawMatch{
					RuleID:     rule.ID,
					Field:      field,
					Span:       domain.Span{Start: tokens[start].Start, End: tokens[end-1].End},
					Confidence: confidence,
					Negated:    m.isNegated(tokens, start, &rule),
				}
				key := spanKey{rule.ID, match.Span.Start, match.Span.End}
				if prev, seen := best[key]; !seen || match.Confidence > prev.Confidence {
					best[key] = match
				}
			}
		}
	}

	matches := make([]domain.RawMatch, 0, len(best))
	for _, match := range best {
		if match.Negated {
			m.logger.WithFields(match.LogFields()).Info("Negated rule match retained for audit")
		}
		matches = append(matches, match)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].RuleID != matches[j].RuleID {
			return matches[i].RuleID < matches[j].RuleID
		}
		if matches[i].Span.Start != matches[j].Span.Start {
			return matches[i].Span.Start < matches[j].Span.Start
		}
		return matches[i].Span.End < matches[j].Span.End
	})
	return matches
}

// isNegated scans backwards from the match start through the negation
// window. A cue word negates the match unless an affirmation breaker sits
// between the cue and the match.
func (m *Matcher) isNegated(tokens []domain.Token, start int, rule *domain.Rule) bool {
	window := m.window
	if rule.NegationWindow > 0 {
		window = rule.NegationWindow
	}
	cues := m.cues
	if len(rule.NegationCues) > 0 {
		cues = foldSet(rule.NegationCues)
	}

	for i := start - 1; i >= 0 && start-i <= window; i-- {
		folded := tokens[i].Folded
		if m.breakers[folded] {
			return false
		}
		if cues[folded] {
			return true
		}
	}
	return false
}
