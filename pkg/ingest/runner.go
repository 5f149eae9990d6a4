// Package ingest synchronizes the thesaurus from external lexical and
// knowledge-graph sources.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/japaniel/thesaurus/pkg/db"
)

// Result is what processing one item changed in the store.
type Result struct {
	TermsAdded    int
	TermsUpdated  int
	SynonymsAdded int
}

// ItemFunc processes one item of a sync run.
type ItemFunc func(ctx context.Context, item string) (Result, error)

// Stats summarizes a finished sync run.
type Stats struct {
	RunID    string        `json:"run_id"`
	LogID    int64         `json:"log_id"`
	Source   string        `json:"source"`
	SyncType string        `json:"sync_type"`
	Status   string        `json:"status"`
	Counts   db.SyncCounts `json:"counts"`
	Errors   []string      `json:"errors,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Sum adds up the counts of several runs.
func Sum(runs ...*Stats) db.SyncCounts {
	var total db.SyncCounts
	for _, s := range runs {
		if s == nil {
			continue
		}
		total.TermsProcessed += s.Counts.TermsProcessed
		total.TermsAdded += s.Counts.TermsAdded
		total.TermsUpdated += s.Counts.TermsUpdated
		total.SynonymsAdded += s.Counts.SynonymsAdded
	}
	return total
}

// Runner executes sync runs one item at a time and keeps the sync log.
// A failing item is recorded and the run continues with the next one.
type Runner struct {
	DB      *sql.DB
	Logger  *zap.Logger
	Metrics *Metrics
	// OnProgress is called after every item. nil means no callback.
	OnProgress func(processed int, item string, err error)
}

// NewRunner creates a Runner. logger and metrics may be nil.
func NewRunner(conn *sql.DB, logger *zap.Logger, metrics *Metrics) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{DB: conn, Logger: logger.Named("sync"), Metrics: metrics}
}

// Batch is the handle a run function uses to process items and record
// run-level failures.
type Batch struct {
	runner *Runner
	stats  *Stats
	logger *zap.Logger
}

// Item runs fn for one item. Errors from fn are recorded as "<key>: <err>"
// and swallowed. Item returns an error only when ctx is done, which tells
// the caller to stop.
func (b *Batch) Item(ctx context.Context, key string, fn func(ctx context.Context) (Result, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := fn(ctx)
	b.stats.Counts.TermsProcessed++
	b.runner.Metrics.itemDone(b.stats.Source, err)
	if b.runner.OnProgress != nil {
		b.runner.OnProgress(b.stats.Counts.TermsProcessed, key, err)
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		b.stats.Errors = append(b.stats.Errors, fmt.Sprintf("%s: %v", key, err))
		b.logger.Warn("sync item failed", zap.String("item", key), zap.Error(err))
		return nil
	}

	b.stats.Counts.TermsAdded += res.TermsAdded
	b.stats.Counts.TermsUpdated += res.TermsUpdated
	b.stats.Counts.SynonymsAdded += res.SynonymsAdded
	b.logger.Debug("sync item done",
		zap.String("item", key),
		zap.Int("terms_added", res.TermsAdded),
		zap.Int("synonyms_added", res.SynonymsAdded))
	return nil
}

// Fail records a failure that is not tied to a single item, such as a
// class listing that could not be fetched.
func (b *Batch) Fail(err error) {
	b.stats.Errors = append(b.stats.Errors, err.Error())
	b.logger.Warn("sync step failed", zap.Error(err))
}

// Run creates a running sync log entry, calls fn and completes
// the entry exactly once. An error returned by fn is recorded and the run
// completes with errors. If ctx is cancelled the entry is completed as
// failed and the context error is returned alongside the stats.
func (r *Runner) Run(ctx context.Context, source, syncType string, fn func(ctx context.Context, b *Batch) error) (*Stats, error) {
	start := time.Now()
	stats := &Stats{RunID: uuid.NewString(), Source: source, SyncType: syncType}
	logger := r.Logger.With(
		zap.String("run_id", stats.RunID),
		zap.String("source", source),
		zap.String("sync_type", syncType))

	logID, err := db.CreateSyncLog(ctx, r.DB, stats.RunID, source, syncType)
	if err != nil {
		return nil, fmt.Errorf("create sync log: %w", err)
	}
	stats.LogID = logID
	logger.Info("sync started", zap.Int64("log_id", logID))

	runErr := fn(ctx, &Batch{runner: r, stats: stats, logger: logger})

	cancelled := ctx.Err()
	switch {
	case cancelled != nil:
		stats.Status = db.StatusFailed
		stats.Errors = append(stats.Errors, "run cancelled: "+cancelled.Error())
	case runErr != nil:
		stats.Errors = append(stats.Errors, runErr.Error())
		stats.Status = db.StatusCompletedWithErrors
	case len(stats.Errors) > 0:
		stats.Status = db.StatusCompletedWithErrors
	default:
		stats.Status = db.StatusCompleted
	}
	stats.Duration = time.Since(start)

	if err := db.CompleteSyncLog(context.WithoutCancel(ctx), r.DB, logID, stats.Status, stats.Counts, stats.Errors); err != nil {
		return stats, fmt.Errorf("complete sync log: %w", err)
	}
	r.Metrics.runDone(source, stats.Status)

	logger.Info("sync finished",
		zap.String("status", stats.Status),
		zap.Int("terms_processed", stats.Counts.TermsProcessed),
		zap.Int("terms_added", stats.Counts.TermsAdded),
		zap.Int("terms_updated", stats.Counts.TermsUpdated),
		zap.Int("synonyms_added", stats.Counts.SynonymsAdded),
		zap.Int("errors", len(stats.Errors)),
		zap.Duration("took", stats.Duration))

	if cancelled != nil {
		return stats, cancelled
	}
	return stats, nil
}

// RunItems runs fn over items in order.
func (r *Runner) RunItems(ctx context.Context, source, syncType string, items []string, fn ItemFunc) (*Stats, error) {
	return r.Run(ctx, source, syncType, func(ctx context.Context, b *Batch) error {
		for _, item := range items {
			item := item
			err := b.Item(ctx, item, func(ctx context.Context) (Result, error) { return fn(ctx, item) })
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Fail records a run that could not start its items, such as one whose
// seed file failed to load. The log completes with errors and zero items.
func (r *Runner) Fail(ctx context.Context, source, syncType string, cause error) (*Stats, error) {
	if cause == nil {
		cause = errors.New("unknown failure")
	}
	return r.Run(ctx, source, syncType, func(context.Context, *Batch) error { return cause })
}
