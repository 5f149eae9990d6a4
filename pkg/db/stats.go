package db

import "context"

// Stats summarizes the thesaurus contents.
type Stats struct {
	TotalTerms    int            `json:"total_terms"`
	TotalSynonyms int            `json:"total_synonyms"`
	BySource      map[string]int `json:"by_source"`
	ByDomain      map[string]int `json:"by_domain"`
	RecentSyncs   []SyncLog      `json:"recent_syncs"`
}

// GetStats counts active terms and relations and lists the latest syncs.
func GetStats(ctx context.Context, db DBExecutor) (*Stats, error) {
	st := &Stats{BySource: map[string]int{}, ByDomain: map[string]int{}}

	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM thesaurus_terms WHERE is_active = 1`).Scan(&st.TotalTerms); err != nil {
		return nil, storeErr("stats", err)
	}
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM thesaurus_synonyms WHERE is_active = 1`).Scan(&st.TotalSynonyms); err != nil {
		return nil, storeErr("stats", err)
	}
	if err := groupCount(ctx, db, "source", st.BySource); err != nil {
		return nil, err
	}
	if err := groupCount(ctx, db, "domain", st.ByDomain); err != nil {
		return nil, err
	}

	recent, err := RecentSyncLogs(ctx, db, 5)
	if err != nil {
		return nil, err
	}
	st.RecentSyncs = recent
	return st, nil
}

// groupCount fills out with active term counts grouped by column, which must
// be a trusted column name.
func groupCount(ctx context.Context, db DBExecutor, column string, out map[string]int) error {
	rows, err := db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM thesaurus_terms WHERE is_active = 1 GROUP BY `+column)
	if err != nil {
		return storeErr("stats", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return storeErr("stats", err)
		}
		out[key] = n
	}
	if err := rows.Err(); err != nil {
		return storeErr("stats", err)
	}
	return nil
}
