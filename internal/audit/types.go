// Package audit persists rule match metadata for later review. Records
// carry rule ids and byte offsets only; the clinical text itself is never
// written to any store.
package audit

import (
	"context"
	"time"

	"github.com/redflag-advisory-server/internal/domain"
)

// MatchRecord is one persisted rule firing, negated firings included.
type MatchRecord struct {
	ID         int64     `json:"id"`
	ScanID     string    `json:"scan_id"`
	RuleID     string    `json:"rule_id"`
	Field      string    `json:"field"`
	SpanStart  int       `json:"span_start"`
	SpanEnd    int       `json:"span_end"`
	Confidence float64   `json:"confidence"`
	Negated    bool      `json:"negated"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists and queries match audit records.
type Store interface {
	// RecordScan stores all matches of one scan.
	RecordScan(ctx context.Context, scanID string, matches []domain.RawMatch) error

	// ListByScan returns the records of one scan in insertion order.
	ListByScan(ctx context.Context, scanID string) ([]*MatchRecord, error)

	// List returns records newest first with pagination.
	List(ctx context.Context, limit, offset int) ([]*MatchRecord, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// DeleteOlderThan removes records created before the cutoff and
	// returns how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Close closes the store and releases resources.
	Close() error
}
