// Package rulestore loads red-flag rule sets from the primary and fallback
// sources, validates them and builds the immutable catalogue the matcher
// runs against. Loading never fails hard: a broken source yields an empty
// set plus a warning in the load report, a broken rule is skipped.
package rulestore

import (
	"embed"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/redflag-advisory-server/internal/domain"
)

//go:embed rules/psych_red_flags.yaml rules/red_flags.yaml
var embeddedRules embed.FS

// Embedded rule file names, used when no on-disk path is configured.
const (
	EmbeddedPrimary  = "rules/psych_red_flags.yaml"
	EmbeddedFallback = "rules/red_flags.yaml"
)

// Loader reads and validates rule sources.
type Loader struct {
	logger *logrus.Logger
}

// NewLoader creates a rule loader.
func NewLoader(logger *logrus.Logger) *Loader {
	if logger == nil {
		logger = logrus.New()
	}
	return &Loader{logger: logger}
}

// Load builds the rule catalogue from the primary and fallback sources.
// An empty path selects the corresponding embedded default file. The
// catalogue is built once and never mutated afterwards; callers share it
// freely across goroutines.
func (l *Loader) Load(primaryPath, fallbackPath string) (*domain.RuleCatalogue, *domain.LoadReport) {
	report := &domain.LoadReport{}

	primary := l.loadSet(domain.SourcePrimary, primaryPath, EmbeddedPrimary, report)
	fallback := l.loadSet(domain.SourceFallback, fallbackPath, EmbeddedFallback, report)

	report.PrimaryCount = len(primary.Rules)
	report.FallbackCount = len(fallback.Rules)

	catalogue, overridden := domain.NewRuleCatalogue(primary, fallback)
	report.Overridden = overridden

	l.logger.WithFields(report.LogFields()).Info("Rule catalogue loaded")
	for _, w := range report.Warnings() {
		l.logger.WithField("warning", w).Warn("Rule load warning")
	}

	return catalogue, report
}

// loadSet reads one source into a RuleSet. Source-level failures are
// recorded in the report and produce an empty set.
func (l *Loader) loadSet(source domain.SourceSet, path, embeddedName string, report *domain.LoadReport) domain.RuleSet {
	set := domain.RuleSet{Source: source}

	data, origin, err := l.readSource(path, embeddedName)
	if err != nil {
		report.SourceErrors = append(report.SourceErrors, domain.RuleSourceError{
			Source: source,
			Path:   origin,
			Reason: err.Error(),
		})
		return set
	}

	var raw []domain.Rule
	if err := yaml.Unmarshal(data, &raw); err != nil {
		report.SourceErrors = append(report.SourceErrors, domain.RuleSourceError{
			Source: source,
			Path:   origin,
			Reason: fmt.Sprintf("parse failed: %v", err),
		})
		return set
	}

	seen := make(map[string]bool, len(raw))
	for i := range raw {
		rule := raw[i]
		rule.Source = source
		if err := rule.Validate(); err != nil {
			report.ValidationErrors = append(report.ValidationErrors, domain.RuleValidationError{
				Source: source,
				RuleID: rule.ID,
				Index:  i,
				Reason: err.Error(),
			})
			continue
		}
		if seen[rule.ID] {
			report.ValidationErrors = append(report.ValidationErrors, domain.RuleValidationError{
				Source: source,
				RuleID: rule.ID,
				Index:  i,
				Reason: "duplicate rule id within source",
			})
			continue
		}
		seen[rule.ID] = true
		set.Rules = append(set.Rules, rule)
	}

	return set
}

// readSource returns the raw bytes of a source and the name to report it
// under. A configured path reads from disk, otherwise the embedded default
// is used.
func (l *Loader) readSource(path, embeddedName string) ([]byte, string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, path, fmt.Errorf("read failed: %w", err)
		}
		return data, path, nil
	}
	data, err := embeddedRules.ReadFile(embeddedName)
	if err != nil {
		return nil, embeddedName, fmt.Errorf("embedded read failed: %w", err)
	}
	return data, embeddedName, nil
}
