package domain

import "github.com/sirupsen/logrus"

// NoteFields holds the free-text clinical fields of one note, keyed by
// field name. Absent or empty fields are simply skipped during matching.
type NoteFields map[FieldName]string

// RawMatch is one rule firing on one span of one field, before resolution.
// Negated matches are retained for auditing but never become advisories.
type RawMatch struct {
	RuleID     string    `json:"rule_id"`
	Field      FieldName `json:"field"`
	Span       Span      `json:"span"`
	Confidence float64   `json:"confidence"`
	Negated    bool      `json:"negated"`
}

// LogFields returns structured log fields for the match. Offsets only,
// never the matched text.
func (m RawMatch) LogFields() logrus.Fields {
	return logrus.Fields{
		"rule_id":    m.RuleID,
		"field":      m.Field.String(),
		"span_start": m.Span.Start,
		"span_end":   m.Span.End,
		"confidence": m.Confidence,
		"negated":    m.Negated,
	}
}

// ModelFlag is a risk flag proposed by the external language model for the
// note as a whole. Flags are advisory input only; the resolver decides
// whether they corroborate a rule match or stand alone.
type ModelFlag struct {
	Category  Category `json:"category"`
	Rationale string   `json:"rationale,omitempty"`
}

// Advisory is one deduplicated, severity-ordered entry of the final result,
// rendered to the documenting clinician as a review hint.
type Advisory struct {
	ID         string     `json:"id"`
	Category   Category   `json:"category"`
	Severity   Severity   `json:"severity"`
	Message    string     `json:"message"`
	Provenance Provenance `json:"provenance"`
	Rationale  string     `json:"rationale,omitempty"`
	Source     SourceSet  `json:"source,omitempty"`
	Matches    []RawMatch `json:"matches,omitempty"`
}

// LogFields returns structured log fields identifying the advisory.
func (a Advisory) LogFields() logrus.Fields {
	return logrus.Fields{
		"advisory_id": a.ID,
		"category":    a.Category.String(),
		"severity":    a.Severity.String(),
		"provenance":  a.Provenance.String(),
	}
}

// CheckResult is the outcome of screening one note.
type CheckResult struct {
	ScanID     string     `json:"scan_id"`
	Advisories []Advisory `json:"advisories"`

	// Degraded is set when the model-flag input was unavailable, so the
	// result reflects rule matching alone.
	Degraded bool `json:"degraded"`

	// Warnings carries rule-load warnings through to the caller.
	Warnings []string `json:"warnings,omitempty"`
}
