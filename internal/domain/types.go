// Package domain contains the core business entities for red-flag screening
// of clinical note fields: risk categories, severities, rules, matches and
// the advisory records surfaced to the documenting clinician.
//
// Advisories are hints for human review. Nothing in this package, or in the
// engine built on top of it, writes into the clinical record.
package domain

import (
	"errors"
	"fmt"
)

// Category represents the clinical risk category a rule or advisory belongs to.
type Category string

const (
	CategorySuicidality  Category = "suicidality"
	CategoryViolenceRisk Category = "violence_risk"
	CategoryPsychosis    Category = "psychosis"
	CategorySubstance    Category = "substance"
	CategoryOtherSafety  Category = "other_safety"
)

// Severity represents the ordered urgency of an advisory.
// Ordering is critical > high > moderate > low.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityModerate Severity = "moderate"
	SeverityLow      Severity = "low"
)

// Provenance tags how an advisory was produced: by deterministic rule
// matching, by the external language model alone, or by both agreeing.
type Provenance string

const (
	ProvenanceRule  Provenance = "rule_matched"
	ProvenanceModel Provenance = "model_only"
	ProvenanceBoth  Provenance = "both"
)

// SourceSet identifies which rule source a rule was loaded from.
// The primary set outranks the fallback set on id conflicts.
type SourceSet string

const (
	SourcePrimary  SourceSet = "primary"
	SourceFallback SourceSet = "fallback"
)

// FieldName identifies a clinical note field.
type FieldName string

const (
	FieldAnamnesis  FieldName = "anamnesis"
	FieldFindings   FieldName = "findings"
	FieldAssessment FieldName = "assessment"
	FieldProcedure  FieldName = "procedure"
)

// FieldOrder is the fixed processing order for note fields. The resolver's
// tie-breaking depends on it, so it must never be reordered at runtime.
var FieldOrder = []FieldName{FieldAnamnesis, FieldFindings, FieldAssessment, FieldProcedure}

// Validation errors for rule and advisory integrity.
var (
	ErrInvalidCategory   = errors.New("invalid risk category")
	ErrInvalidSeverity   = errors.New("invalid severity")
	ErrInvalidProvenance = errors.New("invalid provenance")
	ErrMissingRuleID     = errors.New("rule id is required")
	ErrNoTriggerPatterns = errors.New("rule has no trigger patterns")
)

// IsValid reports whether the category is one of the known risk categories.
func (c Category) IsValid() bool {
	switch c {
	case CategorySuicidality, CategoryViolenceRisk, CategoryPsychosis, CategorySubstance, CategoryOtherSafety:
		return true
	default:
		return false
	}
}

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// IsValid reports whether the severity token is recognized.
func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

// Rank returns the numeric order of the severity, higher is more urgent.
// Unknown severities rank zero and must be rejected at load time.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityModerate:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid reports whether the provenance tag is recognized.
func (p Provenance) IsValid() bool {
	return p.Rank() > 0
}

// Rank orders provenance for the final advisory sort:
// corroborated matches outrank rule-only, which outrank model-only.
func (p Provenance) Rank() int {
	switch p {
	case ProvenanceBoth:
		return 3
	case ProvenanceRule:
		return 2
	case ProvenanceModel:
		return 1
	default:
		return 0
	}
}

// String returns the string representation of the provenance tag.
func (p Provenance) String() string {
	return string(p)
}

// IsValid reports whether the source-set tag is recognized.
func (s SourceSet) IsValid() bool {
	return s == SourcePrimary || s == SourceFallback
}

// Rank orders rule sources for tie-breaking, primary before fallback.
func (s SourceSet) Rank() int {
	switch s {
	case SourcePrimary:
		return 2
	case SourceFallback:
		return 1
	default:
		return 0
	}
}

// String returns the string representation of the source set.
func (s SourceSet) String() string {
	return string(s)
}

// IsValid reports whether the field name is one of the four note fields.
func (f FieldName) IsValid() bool {
	return f.Order() < len(FieldOrder)
}

// Order returns the position of the field in the fixed processing order.
// Unknown fields sort after all known ones.
func (f FieldName) Order() int {
	for i, known := range FieldOrder {
		if f == known {
			return i
		}
	}
	return len(FieldOrder)
}

// String returns the string representation of the field name.
func (f FieldName) String() string {
	return string(f)
}

// ParseCategory converts an untrusted category token into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// ParseSeverity converts an untrusted severity token into a Severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
	}
	return sev, nil
}
