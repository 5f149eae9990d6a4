package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const termColumns = `id, term, normalized_term, language, source, source_ref, domain,
	definition, part_of_speech, is_preferred, is_active, frequency, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTerm(row rowScanner) (*Term, error) {
	var t Term
	var ref, def, pos sql.NullString
	var preferred, active int
	if err := row.Scan(&t.ID, &t.Text, &t.NormalizedText, &t.Language, &t.Source, &ref, &t.Domain,
		&def, &pos, &preferred, &active, &t.Frequency, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.SourceRef = ref.String
	t.Definition = def.String
	t.PartOfSpeech = pos.String
	t.Preferred = preferred == 1
	t.Active = active == 1
	return &t, nil
}

// UpsertTerm finds an active term by (normalized text, source, language) and
// updates its mutable fields, or inserts a new one. It returns the term id and
// whether a new row was created.
func UpsertTerm(ctx context.Context, db DBExecutor, in TermInput) (int64, bool, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return 0, false, storeErr("upsert term", fmt.Errorf("term text must be non-empty"))
	}
	if strings.TrimSpace(in.Source) == "" {
		return 0, false, storeErr("upsert term", fmt.Errorf("source must be non-empty"))
	}
	language := in.Language
	if language == "" {
		language = "en"
	}
	domain := in.Domain
	if domain == "" {
		domain = DomainGeneral
	}
	normalized := NormalizeTerm(text)

	var existing int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM thesaurus_terms WHERE normalized_term = ? AND source = ? AND language = ? AND is_active = 1`,
		normalized, in.Source, language,
	).Scan(&existing)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return 0, false, storeErr("upsert term", err)
	}

	now := time.Now().UTC()
	var id int64
	query := `INSERT INTO thesaurus_terms
			    (term, normalized_term, language, source, source_ref, domain, definition, part_of_speech,
			     is_preferred, is_active, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
			  ON CONFLICT(normalized_term, source, language) WHERE is_active = 1
			  DO UPDATE SET
			    term = excluded.term,
			    domain = excluded.domain,
			    source_ref = COALESCE(excluded.source_ref, thesaurus_terms.source_ref),
			    definition = COALESCE(excluded.definition, thesaurus_terms.definition),
			    part_of_speech = COALESCE(excluded.part_of_speech, thesaurus_terms.part_of_speech),
			    is_preferred = excluded.is_preferred,
			    updated_at = excluded.updated_at
			  RETURNING id`
	err = db.QueryRowContext(ctx, query,
		text, normalized, language, in.Source, nullableString(in.SourceRef), domain,
		nullableString(in.Definition), nullableString(in.PartOfSpeech), boolToInt(in.Preferred),
		now, now,
	).Scan(&id)
	if err != nil {
		return 0, false, storeErr("upsert term", err)
	}
	return id, created, nil
}

// GetTerm returns an active term by id.
func GetTerm(ctx context.Context, db DBExecutor, id int64) (*Term, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+termColumns+` FROM thesaurus_terms WHERE id = ? AND is_active = 1`, id)
	t, err := scanTerm(row)
	if err != nil {
		return nil, storeErr("get term", err)
	}
	return t, nil
}

// FindTerm looks up an active term by text and language, optionally
// restricted to one source. It returns nil when nothing matches.
func FindTerm(ctx context.Context, db DBExecutor, text, source, language string) (*Term, error) {
	query := `SELECT ` + termColumns + ` FROM thesaurus_terms
		WHERE normalized_term = ? AND language = ? AND is_active = 1`
	args := []interface{}{NormalizeTerm(text), language}
	if source != "" {
		query += ` AND source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY is_preferred DESC, id ASC LIMIT 1`

	t, err := scanTerm(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("find term", err)
	}
	return t, nil
}

// SearchTerms returns active terms whose raw or normalized text contains
// query. Exact normalized matches come first, then higher usage frequency.
func SearchTerms(ctx context.Context, db DBExecutor, query string, limit int) ([]Term, error) {
	if limit <= 0 {
		limit = 20
	}
	normalized := NormalizeTerm(query)
	rows, err := db.QueryContext(ctx,
		`SELECT `+termColumns+` FROM thesaurus_terms
		 WHERE is_active = 1
		   AND (term LIKE ? ESCAPE '\' OR normalized_term LIKE ? ESCAPE '\')
		 ORDER BY CASE WHEN normalized_term = ? THEN 0 ELSE 1 END,
		          frequency DESC, normalized_term ASC, id ASC
		 LIMIT ?`,
		"%"+escapeLike(strings.TrimSpace(query))+"%", "%"+escapeLike(normalized)+"%", normalized, limit)
	if err != nil {
		return nil, storeErr("search terms", err)
	}
	defer rows.Close()

	var out []Term
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, storeErr("search terms", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("search terms", err)
	}
	return out, nil
}

// DeactivateTerm soft-deletes a term and its outgoing relations.
func DeactivateTerm(ctx context.Context, db DBExecutor, id int64) error {
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx,
		`UPDATE thesaurus_terms SET is_active = 0, updated_at = ? WHERE id = ? AND is_active = 1`, now, id)
	if err != nil {
		return storeErr("deactivate term", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeErr("deactivate term", ErrNotFound)
	}
	if _, err := db.ExecContext(ctx,
		`UPDATE thesaurus_synonyms SET is_active = 0, updated_at = ? WHERE term_id = ?`, now, id); err != nil {
		return storeErr("deactivate term", err)
	}
	return nil
}

// IncrementFrequency bumps the usage counter of the given terms.
func IncrementFrequency(ctx context.Context, db DBExecutor, ids ...int64) error {
	for _, id := range ids {
		if _, err := db.ExecContext(ctx,
			`UPDATE thesaurus_terms SET frequency = frequency + 1 WHERE id = ?`, id); err != nil {
			return storeErr("increment frequency", err)
		}
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
