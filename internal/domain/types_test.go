package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityRank(t *testing.T) {
	tests := []struct {
		name     string
		severity Severity
		rank     int
	}{
		{"critical ranks highest", SeverityCritical, 4},
		{"high below critical", SeverityHigh, 3},
		{"moderate below high", SeverityModerate, 2},
		{"low ranks lowest", SeverityLow, 1},
		{"unknown ranks zero", Severity("urgent"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.rank, tt.severity.Rank())
		})
	}
}

func TestProvenanceRank(t *testing.T) {
	assert.Greater(t, ProvenanceBoth.Rank(), ProvenanceRule.Rank())
	assert.Greater(t, ProvenanceRule.Rank(), ProvenanceModel.Rank())
	assert.Equal(t, 0, Provenance("guess").Rank())
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Category
		wantErr bool
	}{
		{"suicidality", "suicidality", CategorySuicidality, false},
		{"violence risk", "violence_risk", CategoryViolenceRisk, false},
		{"psychosis", "psychosis", CategoryPsychosis, false},
		{"substance", "substance", CategorySubstance, false},
		{"other safety", "other_safety", CategoryOtherSafety, false},
		{"unknown rejected", "self_harm", "", true},
		{"empty rejected", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCategory)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSeverity(t *testing.T) {
	got, err := ParseSeverity("critical")
	assert.NoError(t, err)
	assert.Equal(t, SeverityCritical, got)

	_, err = ParseSeverity("severe")
	assert.True(t, errors.Is(err, ErrInvalidSeverity))
}

func TestFieldOrder(t *testing.T) {
	assert.Equal(t, 0, FieldAnamnesis.Order())
	assert.Equal(t, 1, FieldFindings.Order())
	assert.Equal(t, 2, FieldAssessment.Order())
	assert.Equal(t, 3, FieldProcedure.Order())
	assert.Equal(t, len(FieldOrder), FieldName("diagnosis").Order())
	assert.False(t, FieldName("diagnosis").IsValid())
}

func TestFold(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Suizid", "suizid"},
		{"umlauts folded", "Suizidalität", "suizidalitat"},
		{"eszett folded", "äußert", "aussert"},
		{"plain ascii unchanged", "keine", "keine"},
		{"mixed accents", "Séjour à Genève", "sejour a geneve"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.input))
		})
	}
}
