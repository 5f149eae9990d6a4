package db

import (
	"context"
	"database/sql"
	"time"
)

// SearchLogEntry records one search and how it was expanded.
type SearchLogEntry struct {
	OriginalQuery  string
	ExpandedQuery  string
	ExpansionTerms string // JSON
	Took           time.Duration
}

// PopularSearch is an original query and how often it was searched.
type PopularSearch struct {
	Query string `json:"original_query"`
	Count int    `json:"count"`
}

// ExpansionStats reports how many logged searches were expanded.
type ExpansionStats struct {
	TotalSearches    int     `json:"total_searches"`
	ExpandedSearches int     `json:"expanded_searches"`
	ExpansionRate    float64 `json:"expansion_rate"`
}

// InsertSearchLog appends a search log entry.
func InsertSearchLog(ctx context.Context, db DBExecutor, e SearchLogEntry) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO thesaurus_search_log (original_query, expanded_query, expansion_terms, took_ms, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.OriginalQuery, nullableString(e.ExpandedQuery), nullableString(e.ExpansionTerms),
		e.Took.Milliseconds(), time.Now().UTC())
	if err != nil {
		return storeErr("insert search log", err)
	}
	return nil
}

// PopularSearches returns the most frequent original queries logged since
// the given time (zero means all time).
func PopularSearches(ctx context.Context, db DBExecutor, limit int, since time.Time) ([]PopularSearch, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows *sql.Rows
	var err error
	if since.IsZero() {
		rows, err = db.QueryContext(ctx,
			`SELECT original_query, COUNT(*) AS c FROM thesaurus_search_log
			 GROUP BY original_query ORDER BY c DESC, original_query ASC LIMIT ?`, limit)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT original_query, COUNT(*) AS c FROM thesaurus_search_log
			 WHERE created_at >= ?
			 GROUP BY original_query ORDER BY c DESC, original_query ASC LIMIT ?`, since.UTC(), limit)
	}
	if err != nil {
		return nil, storeErr("popular searches", err)
	}
	defer rows.Close()

	var out []PopularSearch
	for rows.Next() {
		var p PopularSearch
		if err := rows.Scan(&p.Query, &p.Count); err != nil {
			return nil, storeErr("popular searches", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("popular searches", err)
	}
	return out, nil
}

// GetExpansionStats reports the share of logged searches that were expanded.
func GetExpansionStats(ctx context.Context, db DBExecutor) (*ExpansionStats, error) {
	var st ExpansionStats
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(expansion_terms) FROM thesaurus_search_log`,
	).Scan(&st.TotalSearches, &st.ExpandedSearches); err != nil {
		return nil, storeErr("expansion stats", err)
	}
	if st.TotalSearches > 0 {
		rate := float64(st.ExpandedSearches) / float64(st.TotalSearches) * 100
		st.ExpansionRate = float64(int(rate*100+0.5)) / 100
	}
	return &st, nil
}
