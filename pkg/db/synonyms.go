package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const synonymColumns = `id, term_id, synonym_text, normalized_synonym, synonym_term_id, relationship_type,
	weight, source, is_bidirectional, is_active, created_at, updated_at`

func scanSynonym(row rowScanner) (*Synonym, error) {
	var s Synonym
	var target sql.NullInt64
	var kind string
	var bidi, active int
	if err := row.Scan(&s.ID, &s.TermID, &s.Text, &s.NormalizedText, &target, &kind,
		&s.Weight, &s.Source, &bidi, &active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.SynonymTermID = target.Int64
	s.Kind = Kind(kind)
	s.Bidirectional = bidi == 1
	s.Active = active == 1
	return &s, nil
}

// UpsertSynonym records a relation from a term to synonym text. Repeated
// imports of the same (term, text, kind) update weight and metadata rather
// than duplicating the relation. It returns the relation id and whether a new
// row was created.
func UpsertSynonym(ctx context.Context, db DBExecutor, in SynonymInput) (int64, bool, error) {
	if in.TermID <= 0 {
		return 0, false, storeErr("upsert synonym", fmt.Errorf("termID must be positive"))
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return 0, false, storeErr("upsert synonym", fmt.Errorf("synonym text must be non-empty"))
	}
	kind := in.Kind
	if kind == "" {
		kind = KindSynonym
	}
	if !kind.Valid() {
		return 0, false, storeErr("upsert synonym", fmt.Errorf("unknown relationship type %q", kind))
	}
	if in.Weight < 0 || in.Weight > 1 {
		return 0, false, storeErr("upsert synonym", fmt.Errorf("weight %.2f outside [0, 1]", in.Weight))
	}
	normalized := NormalizeTerm(text)

	var existing int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM thesaurus_synonyms WHERE term_id = ? AND normalized_synonym = ? AND relationship_type = ?`,
		in.TermID, normalized, string(kind),
	).Scan(&existing)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return 0, false, storeErr("upsert synonym", err)
	}

	now := time.Now().UTC()
	var id int64
	err = db.QueryRowContext(ctx,
		`INSERT INTO thesaurus_synonyms
		   (term_id, synonym_text, normalized_synonym, synonym_term_id, relationship_type,
		    weight, source, is_bidirectional, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT(term_id, normalized_synonym, relationship_type) DO UPDATE SET
		   synonym_text = excluded.synonym_text,
		   synonym_term_id = COALESCE(excluded.synonym_term_id, thesaurus_synonyms.synonym_term_id),
		   weight = excluded.weight,
		   source = excluded.source,
		   is_bidirectional = excluded.is_bidirectional,
		   is_active = 1,
		   updated_at = excluded.updated_at
		 RETURNING id`,
		in.TermID, text, normalized, nullableInt64(in.SynonymTermID), string(kind),
		in.Weight, in.Source, boolToInt(kind.Bidirectional()), now, now,
	).Scan(&id)
	if err != nil {
		return 0, false, storeErr("upsert synonym", err)
	}
	return id, created, nil
}

// GetSynonyms returns the active relations of a term with weight at least
// minWeight, strongest first. An empty kind matches every kind.
func GetSynonyms(ctx context.Context, db DBExecutor, termID int64, kind Kind, minWeight float64, limit int) ([]Synonym, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + synonymColumns + ` FROM thesaurus_synonyms
		WHERE term_id = ? AND is_active = 1 AND weight >= ?`
	args := []interface{}{termID, minWeight}
	if kind != "" {
		query += ` AND relationship_type = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY weight DESC, id ASC LIMIT ?`
	args = append(args, limit)

	return querySynonyms(ctx, db, "get synonyms", query, args...)
}

// DirectSynonyms returns relations whose source is any active term with the
// given normalized text and language, strongest first.
func DirectSynonyms(ctx context.Context, db DBExecutor, normalized, language string, minWeight float64, limit int) ([]Synonym, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT s.id, s.term_id, s.synonym_text, s.normalized_synonym, s.synonym_term_id,
		       s.relationship_type, s.weight, s.source, s.is_bidirectional, s.is_active,
		       s.created_at, s.updated_at
		FROM thesaurus_synonyms s
		JOIN thesaurus_terms t ON t.id = s.term_id
		WHERE t.normalized_term = ? AND t.language = ? AND t.is_active = 1
		  AND s.is_active = 1 AND s.weight >= ?
		ORDER BY s.weight DESC, s.id ASC
		LIMIT ?`
	return querySynonyms(ctx, db, "direct synonyms", query, normalized, language, minWeight, limit)
}

// ReverseSynonyms finds bidirectional relations on other terms whose target
// text equals normalized. Results carry the source term's text.
func ReverseSynonyms(ctx context.Context, db DBExecutor, normalized, language string, minWeight float64, limit int) ([]ReverseMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx,
		`SELECT t.term, s.weight, s.relationship_type, s.source
		 FROM thesaurus_synonyms s
		 JOIN thesaurus_terms t ON t.id = s.term_id
		 WHERE s.normalized_synonym = ? AND s.is_bidirectional = 1 AND s.is_active = 1
		   AND t.is_active = 1 AND t.language = ? AND s.weight >= ?
		 ORDER BY s.weight DESC, s.id ASC
		 LIMIT ?`,
		normalized, language, minWeight, limit)
	if err != nil {
		return nil, storeErr("reverse synonyms", err)
	}
	defer rows.Close()

	var out []ReverseMatch
	for rows.Next() {
		var m ReverseMatch
		var kind string
		if err := rows.Scan(&m.TermText, &m.Weight, &kind, &m.Source); err != nil {
			return nil, storeErr("reverse synonyms", err)
		}
		m.Kind = Kind(kind)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("reverse synonyms", err)
	}
	return out, nil
}

// DeactivateSynonym soft-deletes a single relation.
func DeactivateSynonym(ctx context.Context, db DBExecutor, id int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE thesaurus_synonyms SET is_active = 0, updated_at = ? WHERE id = ? AND is_active = 1`,
		time.Now().UTC(), id)
	if err != nil {
		return storeErr("deactivate synonym", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeErr("deactivate synonym", ErrNotFound)
	}
	return nil
}

// SynonymGroup is one export line: a normalized term and its synonym texts.
type SynonymGroup struct {
	Term     string
	Synonyms []string
}

// ActiveSynonymMap collects, for every active term with active relations of
// kind at or above floor, up to perTermLimit target texts. Groups are keyed
// and sorted by normalized term text; terms sharing a normalized text across
// sources or languages are merged. Within a group texts are ordered by weight
// then text.
func ActiveSynonymMap(ctx context.Context, db DBExecutor, kind Kind, floor float64, perTermLimit int) ([]SynonymGroup, error) {
	if perTermLimit <= 0 {
		perTermLimit = 10
	}
	rows, err := db.QueryContext(ctx,
		`SELECT t.normalized_term, s.synonym_text, s.normalized_synonym
		 FROM thesaurus_synonyms s
		 JOIN thesaurus_terms t ON t.id = s.term_id
		 WHERE t.is_active = 1 AND s.is_active = 1
		   AND s.relationship_type = ? AND s.weight >= ?
		 ORDER BY t.normalized_term ASC, s.weight DESC, s.normalized_synonym ASC, s.id ASC`,
		string(kind), floor)
	if err != nil {
		return nil, storeErr("synonym map", err)
	}
	defer rows.Close()

	var out []SynonymGroup
	seen := map[string]bool{}
	for rows.Next() {
		var term, text, normalized string
		if err := rows.Scan(&term, &text, &normalized); err != nil {
			return nil, storeErr("synonym map", err)
		}
		if normalized == term {
			continue
		}
		if len(out) == 0 || out[len(out)-1].Term != term {
			out = append(out, SynonymGroup{Term: term})
			seen = map[string]bool{}
		}
		g := &out[len(out)-1]
		if seen[normalized] || len(g.Synonyms) >= perTermLimit {
			continue
		}
		seen[normalized] = true
		g.Synonyms = append(g.Synonyms, text)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("synonym map", err)
	}
	return out, nil
}

func querySynonyms(ctx context.Context, db DBExecutor, op, query string, args ...interface{}) ([]Synonym, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	var out []Synonym
	for rows.Next() {
		s, err := scanSynonym(rows)
		if err != nil {
			return nil, storeErr(op, err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}
