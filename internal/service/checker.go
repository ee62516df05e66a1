package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/redflag-advisory-server/internal/domain"
)

const defaultCacheSize = 512

// MatchAuditor persists raw matches for later review. Implementations must
// never receive clinical text, only rule ids and offsets.
type MatchAuditor interface {
	RecordScan(ctx context.Context, scanID string, matches []domain.RawMatch) error
}

// Checker is the engine entry point. It screens the fields of one note
// concurrently against the immutable catalogue, then resolves the matches
// together with externally supplied model flags.
type Checker struct {
	matcher   *Matcher
	resolver  *Resolver
	catalogue *domain.RuleCatalogue
	report    *domain.LoadReport
	cache     *lru.Cache[string, []domain.RawMatch]
	auditor   MatchAuditor
	logger    *logrus.Logger
}

// NewChecker creates a checker over the given catalogue. The auditor may be
// nil, auditing is then skipped. cacheSize <= 0 selects the default.
func NewChecker(matcher *Matcher, resolver *Resolver, catalogue *domain.RuleCatalogue, report *domain.LoadReport, auditor MatchAuditor, cacheSize int, logger *logrus.Logger) (*Checker, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, []domain.RawMatch](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create match cache: %w", err)
	}
	return &Checker{
		matcher:   matcher,
		resolver:  resolver,
		catalogue: catalogue,
		report:    report,
		cache:     cache,
		auditor:   auditor,
		logger:    logger,
	}, nil
}

// CheckNote screens one note. Fields are matched concurrently in the fixed
// field order anamnesis, findings, assessment, procedure; empty fields are
// skipped. A nil modelFlags slice marks the result degraded, an empty
// non-nil slice means the model ran and proposed nothing. The note text is
// neither mutated nor persisted.
func (c *Checker) CheckNote(ctx context.Context, fields domain.NoteFields, modelFlags []domain.ModelFlag) (*domain.CheckResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("check aborted: %w", err)
	}

	scanID := uuid.NewString()
	perField := make([][]domain.RawMatch, len(domain.FieldOrder))

	var wg sync.WaitGroup
	for i, field := range domain.FieldOrder {
		text := fields[field]
		if text == "" {
			continue
		}
		wg.Add(1)
		go func(slot int, field domain.FieldName, text string) {
			defer wg.Done()
			perField[slot] = c.matchField(field, text)
		}(i, field, text)
	}
	wg.Wait()

	// Join in field order so downstream tie-breaking stays deterministic.
	var rawMatches []domain.RawMatch
	for _, matches := range perField {
		rawMatches = append(rawMatches, matches...)
	}

	if c.auditor != nil && len(rawMatches) > 0 {
		if err := c.auditor.RecordScan(ctx, scanID, rawMatches); err != nil {
			c.logger.WithError(err).WithField("scan_id", scanID).Error("Failed to record match audit")
		}
	}

	advisories, degraded := c.resolver.Resolve(rawMatches, modelFlags, c.catalogue)

	result := &domain.CheckResult{
		ScanID:     scanID,
		Advisories: advisories,
		Degraded:   degraded,
	}
	if c.report != nil {
		result.Warnings = c.report.Warnings()
	}

	c.logger.WithFields(logrus.Fields{
		"scan_id":     scanID,
		"raw_matches": len(rawMatches),
		"advisories":  len(advisories),
		"degraded":    degraded,
	}).Info("Note checked")

	return result, nil
}

// matchField normalizes and matches one field, consulting the LRU cache
// first. The cache key binds the text hash to the catalogue fingerprint, so
// a rule change invalidates every cached entry.
func (c *Checker) matchField(field domain.FieldName, text string) []domain.RawMatch {
	key := c.cacheKey(field, text)
	if matches, ok := c.cache.Get(key); ok {
		return matches
	}
	matches := c.matcher.Match(Normalize(text), field, c.catalogue)
	c.cache.Add(key, matches)
	return matches
}

func (c *Checker) cacheKey(field domain.FieldName, text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s|%s|%s", c.catalogue.Fingerprint(), field, hex.EncodeToString(h[:]))
}

// Catalogue exposes the immutable catalogue for the serving surfaces.
func (c *Checker) Catalogue() *domain.RuleCatalogue {
	return c.catalogue
}

// LoadReport exposes the rule load report for the serving surfaces.
func (c *Checker) LoadReport() *domain.LoadReport {
	return c.report
}
