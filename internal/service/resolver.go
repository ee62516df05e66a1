package service

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/redflag-advisory-server/internal/domain"
)

// Resolver reconciles deterministic rule matches with the risk flags
// proposed by the external language model.
type Resolver struct {
	logger *logrus.Logger
}

// NewResolver creates a resolver.
func NewResolver(logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{logger: logger}
}

// Resolve merges raw matches and model flags into the final advisory list.
// Negated matches never become advisories. Each category yields at most one
// advisory, the one backed by the highest severity rule; ties go to the
// primary source, then to the earlier note field. Model flags corroborating
// a surviving advisory upgrade its provenance to "both"; flags for
// categories no rule fired on become model-only advisories. A nil (as
// opposed to empty) modelFlags slice marks the result degraded.
func (r *Resolver) Resolve(rawMatches []domain.RawMatch, modelFlags []domain.ModelFlag, catalogue *domain.RuleCatalogue) ([]domain.Advisory, bool) {
	degraded := modelFlags == nil

	byRule := make(map[string][]domain.RawMatch)
	for _, match := range rawMatches {
		if match.Negated {
			continue
		}
		byRule[match.RuleID] = append(byRule[match.RuleID], match)
	}

	// One candidate advisory per fired rule.
	candidates := make([]domain.Advisory, 0, len(byRule))
	for ruleID, matches := range byRule {
		rule, ok := catalogue.Rule(ruleID)
		if !ok {
			r.logger.WithField("rule_id", ruleID).Warn("Match references unknown rule, skipping")
			continue
		}
		candidates = append(candidates, domain.Advisory{
			ID:         rule.ID,
			Category:   rule.Category,
			Severity:   rule.Severity,
			Message:    rule.Message,
			Provenance: domain.ProvenanceRule,
			Source:     rule.Source,
			Matches:    matches,
		})
	}

	// Per-category dedup keeping the strongest candidate.
	byCategory := make(map[domain.Category]domain.Advisory)
	for _, cand := range candidates {
		current, exists := byCategory[cand.Category]
		if !exists || strongerCandidate(cand, current) {
			byCategory[cand.Category] = cand
		}
	}

	// Merge model flags. Rationale from a corroborating flag is kept on
	// the advisory, duplicate flags for one category collapse to the first.
	flagsByCategory := make(map[domain.Category]domain.ModelFlag)
	for _, flag := range modelFlags {
		if !flag.Category.IsValid() {
			r.logger.WithField("category", string(flag.Category)).Warn("Model flag with unknown category, skipping")
			continue
		}
		if _, seen := flagsByCategory[flag.Category]; !seen {
			flagsByCategory[flag.Category] = flag
		}
	}

	advisories := make([]domain.Advisory, 0, len(byCategory)+len(flagsByCategory))
	for cat, adv := range byCategory {
		if flag, ok := flagsByCategory[cat]; ok {
			adv.Provenance = domain.ProvenanceBoth
			adv.Rationale = flag.Rationale
			delete(flagsByCategory, cat)
		}
		advisories = append(advisories, adv)
	}

	for cat, flag := range flagsByCategory {
		advisories = append(advisories, r.modelOnlyAdvisory(cat, flag, catalogue))
	}

	sort.Slice(advisories, func(i, j int) bool {
		a, b := advisories[i], advisories[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Provenance.Rank() != b.Provenance.Rank() {
			return a.Provenance.Rank() > b.Provenance.Rank()
		}
		return a.Category < b.Category
	})

	return advisories, degraded
}

// strongerCandidate reports whether a should replace b as the category's
// advisory: higher severity first, then primary over fallback, then the
// earlier field, then the lexically smaller rule id for determinism.
func strongerCandidate(a, b domain.Advisory) bool {
	if a.Severity.Rank() != b.Severity.Rank() {
		return a.Severity.Rank() > b.Severity.Rank()
	}
	if a.Source.Rank() != b.Source.Rank() {
		return a.Source.Rank() > b.Source.Rank()
	}
	if fa, fb := earliestField(a.Matches), earliestField(b.Matches); fa != fb {
		return fa < fb
	}
	return a.ID < b.ID
}

func earliestField(matches []domain.RawMatch) int {
	earliest := len(domain.FieldOrder)
	for _, m := range matches {
		if o := m.Field.Order(); o < earliest {
			earliest = o
		}
	}
	return earliest
}

// modelOnlyAdvisory builds the advisory for a model flag no rule
// corroborated. It takes the highest severity the catalogue defines for the
// category, or moderate when the catalogue has no rule for it.
func (r *Resolver) modelOnlyAdvisory(cat domain.Category, flag domain.ModelFlag, catalogue *domain.RuleCatalogue) domain.Advisory {
	severity, ok := catalogue.MaxSeverity(cat)
	if !ok {
		severity = domain.SeverityModerate
	}
	return domain.Advisory{
		ID:         fmt.Sprintf("model-only:%s", cat),
		Category:   cat,
		Severity:   severity,
		Message:    modelOnlyMessage(cat),
		Provenance: domain.ProvenanceModel,
		Rationale:  flag.Rationale,
	}
}

func modelOnlyMessage(cat domain.Category) string {
	switch cat {
	case domain.CategorySuicidality:
		return "Modellhinweis auf mögliche Suizidalität. Bitte aktiv prüfen."
	case domain.CategoryViolenceRisk:
		return "Modellhinweis auf mögliche Fremdgefährdung. Bitte aktiv prüfen."
	case domain.CategoryPsychosis:
		return "Modellhinweis auf mögliches psychotisches Erleben. Bitte aktiv prüfen."
	case domain.CategorySubstance:
		return "Modellhinweis auf mögliche Substanzproblematik. Bitte aktiv prüfen."
	default:
		return "Modellhinweis auf ein mögliches Sicherheitsrisiko. Bitte aktiv prüfen."
	}
}
