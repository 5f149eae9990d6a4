package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/thesaurus/pkg/db"
)

func TestRunItemsRecordsItemErrors(t *testing.T) {
	conn := setupDB(t)
	metrics := NewMetrics(prometheus.NewRegistry())
	runner := NewRunner(conn, nil, metrics)

	var progress []string
	runner.OnProgress = func(processed int, item string, err error) {
		progress = append(progress, item)
	}

	stats, err := runner.RunItems(context.Background(), db.SourceLocal, "test", []string{"a", "b", "c"},
		func(ctx context.Context, item string) (Result, error) {
			if item == "b" {
				return Result{}, errors.New("boom")
			}
			return Result{TermsAdded: 1, SynonymsAdded: 2}, nil
		})
	require.NoError(t, err)

	assert.Equal(t, db.StatusCompletedWithErrors, stats.Status)
	assert.Equal(t, db.SyncCounts{TermsProcessed: 3, TermsAdded: 2, SynonymsAdded: 4}, stats.Counts)
	assert.Equal(t, []string{"b: boom"}, stats.Errors)
	assert.Equal(t, []string{"a", "b", "c"}, progress)
	assert.NotEmpty(t, stats.RunID)

	logged, err := db.GetSyncLog(context.Background(), conn, stats.LogID)
	require.NoError(t, err)
	assert.Equal(t, stats.RunID, logged.RunID)
	assert.Equal(t, db.StatusCompletedWithErrors, logged.Status)
	assert.Equal(t, 3, logged.TermsProcessed)
	assert.Equal(t, 4, logged.SynonymsAdded)
	assert.Equal(t, []string{"b: boom"}, logged.Errors)
	assert.NotNil(t, logged.StartedAt)
	assert.NotNil(t, logged.CompletedAt)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.items.WithLabelValues(db.SourceLocal, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.items.WithLabelValues(db.SourceLocal, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues(db.SourceLocal, db.StatusCompletedWithErrors)))
}

func TestRunCancelledIsFailed(t *testing.T) {
	conn := setupDB(t)
	runner := NewRunner(conn, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	stats, err := runner.RunItems(ctx, db.SourceLexical, "archival", []string{"a", "b", "c"},
		func(ctx context.Context, item string) (Result, error) {
			calls++
			cancel()
			return Result{TermsAdded: 1}, nil
		})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, stats)

	assert.Equal(t, 1, calls)
	assert.Equal(t, db.StatusFailed, stats.Status)
	assert.Equal(t, 1, stats.Counts.TermsProcessed)
	require.NotEmpty(t, stats.Errors)
	assert.Contains(t, stats.Errors[len(stats.Errors)-1], "run cancelled")

	logged, err := db.GetSyncLog(context.Background(), conn, stats.LogID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusFailed, logged.Status)
	assert.NotNil(t, logged.CompletedAt)
}

func TestRunFnErrorCompletesWithErrors(t *testing.T) {
	conn := setupDB(t)
	runner := NewRunner(conn, nil, nil)

	stats, err := runner.Run(context.Background(), db.SourceGraph, "graph_classes", func(ctx context.Context, b *Batch) error {
		b.Fail(errors.New("class Q1: listing unavailable"))
		return errors.New("endpoint down")
	})
	require.NoError(t, err)
	assert.Equal(t, db.StatusCompletedWithErrors, stats.Status)
	assert.Equal(t, []string{"class Q1: listing unavailable", "endpoint down"}, stats.Errors)
	assert.Zero(t, stats.Counts.TermsProcessed)
}

func TestRunLogIsRunningUntilComplete(t *testing.T) {
	conn := setupDB(t)
	runner := NewRunner(conn, nil, nil)

	var during db.SyncLog
	stats, err := runner.Run(context.Background(), db.SourceLexical, "archival", func(ctx context.Context, b *Batch) error {
		logs, err := db.RecentSyncLogs(ctx, conn, 1)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		during = logs[0]
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, stats.LogID, during.ID)
	assert.Equal(t, db.StatusRunning, during.Status)
	assert.NotNil(t, during.StartedAt)
	assert.Nil(t, during.CompletedAt)

	logged, err := db.GetSyncLog(context.Background(), conn, stats.LogID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCompleted, logged.Status)
}

func TestRunCompleted(t *testing.T) {
	conn := setupDB(t)
	runner := NewRunner(conn, nil, nil)

	stats, err := runner.RunItems(context.Background(), db.SourceLocal, "archival", []string{"fonds"},
		func(ctx context.Context, item string) (Result, error) {
			return Result{TermsUpdated: 1}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, db.StatusCompleted, stats.Status)
	assert.Empty(t, stats.Errors)
	assert.Equal(t, 1, stats.Counts.TermsUpdated)
}

func TestSumSkipsNil(t *testing.T) {
	total := Sum(
		&Stats{Counts: db.SyncCounts{TermsProcessed: 2, TermsAdded: 1}},
		nil,
		&Stats{Counts: db.SyncCounts{TermsProcessed: 3, SynonymsAdded: 5}},
	)
	assert.Equal(t, db.SyncCounts{TermsProcessed: 5, TermsAdded: 1, SynonymsAdded: 5}, total)
}
