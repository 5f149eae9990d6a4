package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const syncLogColumns = `id, run_id, source, sync_type, status, terms_processed, terms_added,
	terms_updated, synonyms_added, errors, started_at, completed_at, created_at`

func scanSyncLog(row rowScanner) (*SyncLog, error) {
	var l SyncLog
	var errs sql.NullString
	var started, completed sql.NullTime
	if err := row.Scan(&l.ID, &l.RunID, &l.Source, &l.SyncType, &l.Status, &l.TermsProcessed,
		&l.TermsAdded, &l.TermsUpdated, &l.SynonymsAdded, &errs, &started, &completed, &l.CreatedAt); err != nil {
		return nil, err
	}
	if errs.Valid && errs.String != "" {
		if err := json.Unmarshal([]byte(errs.String), &l.Errors); err != nil {
			return nil, fmt.Errorf("decode errors column: %w", err)
		}
	}
	if started.Valid {
		t := started.Time
		l.StartedAt = &t
	}
	if completed.Valid {
		t := completed.Time
		l.CompletedAt = &t
	}
	return &l, nil
}

// CreateSyncLog appends a running sync log entry and returns its id. The
// entry is updated once more, by CompleteSyncLog.
func CreateSyncLog(ctx context.Context, db DBExecutor, runID, source, syncType string) (int64, error) {
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx,
		`INSERT INTO thesaurus_sync_log (run_id, source, sync_type, status, started_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, source, syncType, StatusRunning, now, now)
	if err != nil {
		return 0, storeErr("create sync log", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr("create sync log", err)
	}
	return id, nil
}

// CompleteSyncLog writes the final status and counts of a run. An entry is
// completed exactly once; completing a finished entry is an error.
func CompleteSyncLog(ctx context.Context, db DBExecutor, id int64, status string, counts SyncCounts, errs []string) error {
	switch status {
	case StatusCompleted, StatusCompletedWithErrors, StatusFailed:
	default:
		return storeErr("complete sync log", fmt.Errorf("invalid final status %q", status))
	}
	var errJSON interface{}
	if len(errs) > 0 {
		b, err := json.Marshal(errs)
		if err != nil {
			return storeErr("complete sync log", err)
		}
		errJSON = string(b)
	}
	res, err := db.ExecContext(ctx,
		`UPDATE thesaurus_sync_log
		 SET status = ?, completed_at = ?, terms_processed = ?, terms_added = ?,
		     terms_updated = ?, synonyms_added = ?, errors = ?
		 WHERE id = ? AND completed_at IS NULL`,
		status, time.Now().UTC(), counts.TermsProcessed, counts.TermsAdded,
		counts.TermsUpdated, counts.SynonymsAdded, errJSON, id)
	if err != nil {
		return storeErr("complete sync log", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeErr("complete sync log", fmt.Errorf("sync log %d already completed or missing", id))
	}
	return nil
}

// GetSyncLog returns a single sync log entry.
func GetSyncLog(ctx context.Context, db DBExecutor, id int64) (*SyncLog, error) {
	l, err := scanSyncLog(db.QueryRowContext(ctx,
		`SELECT `+syncLogColumns+` FROM thesaurus_sync_log WHERE id = ?`, id))
	if err != nil {
		return nil, storeErr("get sync log", err)
	}
	return l, nil
}

// RecentSyncLogs returns the latest sync log entries, newest first.
func RecentSyncLogs(ctx context.Context, db DBExecutor, limit int) ([]SyncLog, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+syncLogColumns+` FROM thesaurus_sync_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storeErr("recent sync logs", err)
	}
	defer rows.Close()

	var out []SyncLog
	for rows.Next() {
		l, err := scanSyncLog(rows)
		if err != nil {
			return nil, storeErr("recent sync logs", err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("recent sync logs", err)
	}
	return out, nil
}
