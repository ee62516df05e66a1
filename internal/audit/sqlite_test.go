package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redflag-advisory-server/internal/domain"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleMatches() []domain.RawMatch {
	return []domain.RawMatch{
		{
			RuleID: "sui-001", Field: domain.FieldAnamnesis,
			Span: domain.Span{Start: 10, End: 24}, Confidence: 1.0, Negated: true,
		},
		{
			RuleID: "sui-001", Field: domain.FieldAssessment,
			Span: domain.Span{Start: 0, End: 26}, Confidence: 0.7, Negated: false,
		},
	}
}

func TestSQLiteRecordScanAndListByScan(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordScan(ctx, "scan-1", sampleMatches()))

	records, err := store.ListByScan(ctx, "scan-1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "sui-001", records[0].RuleID)
	assert.Equal(t, "anamnesis", records[0].Field)
	assert.Equal(t, 10, records[0].SpanStart)
	assert.Equal(t, 24, records[0].SpanEnd)
	assert.True(t, records[0].Negated)
	assert.False(t, records[1].Negated)

	records, err = store.ListByScan(ctx, "scan-unknown")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLiteRecordScanEmptyIsNoop(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordScan(ctx, "scan-1", nil))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSQLiteListAndCount(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordScan(ctx, "scan-1", sampleMatches()))
	require.NoError(t, store.RecordScan(ctx, "scan-2", sampleMatches()[:1]))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	records, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = store.List(ctx, 10, 2)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLiteDeleteOlderThan(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordScan(ctx, "scan-1", sampleMatches()))

	deleted, err := store.DeleteOlderThan(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = store.DeleteOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
