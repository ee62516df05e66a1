package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Rule is a single red-flag screening rule as declared in a rule source.
// Patterns are kept in their raw textual form here; the catalogue compiles
// them once at load time.
type Rule struct {
	ID             string    `yaml:"id" json:"id"`
	Category       Category  `yaml:"category" json:"category"`
	Severity       Severity  `yaml:"severity" json:"severity"`
	Patterns       []string  `yaml:"patterns" json:"patterns"`
	NegationCues   []string  `yaml:"negation_cues,omitempty" json:"negation_cues,omitempty"`
	NegationWindow int       `yaml:"negation_window,omitempty" json:"negation_window,omitempty"`
	Message        string    `yaml:"message" json:"message"`
	Source         SourceSet `yaml:"-" json:"source"`
}

// Validate checks structural integrity of the rule, including that every
// trigger pattern compiles. It returns the first problem found.
func (r *Rule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingRuleID
	}
	if !r.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, r.Category)
	}
	if !r.Severity.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, r.Severity)
	}
	if len(r.Patterns) == 0 {
		return ErrNoTriggerPatterns
	}
	for _, raw := range r.Patterns {
		if _, err := ParsePattern(raw); err != nil {
			return err
		}
	}
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("rule %s: message is required", r.ID)
	}
	if r.NegationWindow < 0 {
		return fmt.Errorf("rule %s: negation window must not be negative", r.ID)
	}
	return nil
}

// LogFields returns structured log fields identifying the rule without its
// message text.
func (r *Rule) LogFields() logrus.Fields {
	return logrus.Fields{
		"rule_id":  r.ID,
		"category": r.Category.String(),
		"severity": r.Severity.String(),
		"source":   r.Source.String(),
	}
}

// RuleSet is the collection of valid rules loaded from one source.
type RuleSet struct {
	Source SourceSet
	Rules  []Rule
}

// RuleCatalogue is the immutable merged rule collection the matcher runs
// against. It is built once at startup; all methods are safe for concurrent
// use because nothing mutates after construction.
type RuleCatalogue struct {
	rules       map[string]Rule
	compiled    map[string][]Pattern
	ids         []string
	fingerprint string
}

// NewRuleCatalogue merges the primary and fallback rule sets. When both
// sources define the same rule id the primary definition wins entirely, the
// fallback version contributes nothing. Rules are assumed validated; a
// pattern that fails to compile here is a programming error and is skipped.
// The returned overridden slice lists fallback ids shadowed by primary.
func NewRuleCatalogue(primary, fallback RuleSet) (*RuleCatalogue, []string) {
	c := &RuleCatalogue{
		rules:    make(map[string]Rule, len(primary.Rules)+len(fallback.Rules)),
		compiled: make(map[string][]Pattern, len(primary.Rules)+len(fallback.Rules)),
	}

	for _, r := range primary.Rules {
		r.Source = SourcePrimary
		c.add(r)
	}

	var overridden []string
	for _, r := range fallback.Rules {
		if _, exists := c.rules[r.ID]; exists {
			overridden = append(overridden, r.ID)
			continue
		}
		r.Source = SourceFallback
		c.add(r)
	}

	c.ids = make([]string, 0, len(c.rules))
	for id := range c.rules {
		c.ids = append(c.ids, id)
	}
	sort.Strings(c.ids)
	c.fingerprint = c.computeFingerprint()
	return c, overridden
}

func (c *RuleCatalogue) add(r Rule) {
	patterns := make([]Pattern, 0, len(r.Patterns))
	for _, raw := range r.Patterns {
		p, err := ParsePattern(raw)
		if err != nil {
			continue
		}
		patterns = append(patterns, p)
	}
	if len(patterns) == 0 {
		return
	}
	c.rules[r.ID] = r
	c.compiled[r.ID] = patterns
}

// Rule returns the rule for the given id.
func (c *RuleCatalogue) Rule(id string) (Rule, bool) {
	r, ok := c.rules[id]
	return r, ok
}

// Rules returns all rules in stable id order.
func (c *RuleCatalogue) Rules() []Rule {
	out := make([]Rule, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.rules[id])
	}
	return out
}

// Patterns returns the compiled trigger patterns for a rule id.
func (c *RuleCatalogue) Patterns(id string) []Pattern {
	return c.compiled[id]
}

// Len returns the number of rules in the catalogue.
func (c *RuleCatalogue) Len() int {
	return len(c.rules)
}

// MaxSeverity returns the highest severity any catalogue rule assigns to the
// category. The second return is false when no rule covers the category.
func (c *RuleCatalogue) MaxSeverity(cat Category) (Severity, bool) {
	var best Severity
	found := false
	for _, r := range c.rules {
		if r.Category != cat {
			continue
		}
		if !found || r.Severity.Rank() > best.Rank() {
			best = r.Severity
			found = true
		}
	}
	return best, found
}

// Fingerprint returns a stable hash of the full catalogue content, used to
// key match caches so that a rule change invalidates cached results.
func (c *RuleCatalogue) Fingerprint() string {
	return c.fingerprint
}

func (c *RuleCatalogue) computeFingerprint() string {
	h := sha256.New()
	for _, id := range c.ids {
		r := c.rules[id]
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00", r.ID, r.Category, r.Severity)
		h.Write([]byte(strings.Join(r.Patterns, "\x01")))
		h.Write([]byte{0})
		h.Write([]byte(strings.Join(r.NegationCues, "\x01")))
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(r.NegationWindow)))
		h.Write([]byte{0})
		h.Write([]byte(r.Message))
		h.Write([]byte{0})
		h.Write([]byte(r.Source))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// LoadReport collects everything that went wrong while loading rule sources
// without aborting the load. The engine starts with whatever subset of rules
// survived; the report is surfaced through logs and the rules endpoint.
type LoadReport struct {
	SourceErrors     []RuleSourceError     `json:"source_errors,omitempty"`
	ValidationErrors []RuleValidationError `json:"validation_errors,omitempty"`
	Overridden       []string              `json:"overridden,omitempty"`
	PrimaryCount     int                   `json:"primary_count"`
	FallbackCount    int                   `json:"fallback_count"`
}

// Degraded reports whether any rule source failed to load entirely.
func (r *LoadReport) Degraded() bool {
	return len(r.SourceErrors) > 0
}

// Warnings flattens the report into human-readable warning strings.
func (r *LoadReport) Warnings() []string {
	var out []string
	for _, e := range r.SourceErrors {
		out = append(out, e.Error())
	}
	for _, e := range r.ValidationErrors {
		out = append(out, e.Error())
	}
	return out
}

// LogFields returns structured log fields summarizing the load outcome.
func (r *LoadReport) LogFields() logrus.Fields {
	return logrus.Fields{
		"primary_rules":     r.PrimaryCount,
		"fallback_rules":    r.FallbackCount,
		"overridden_rules":  len(r.Overridden),
		"source_errors":     len(r.SourceErrors),
		"validation_errors": len(r.ValidationErrors),
	}
}
