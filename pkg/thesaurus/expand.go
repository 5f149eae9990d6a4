package thesaurus

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/japaniel/thesaurus/pkg/analysis"
	"github.com/japaniel/thesaurus/pkg/db"
)

// TermExpansion lists the synonyms found for one query token.
type TermExpansion struct {
	Token    string   `json:"token"`
	Synonyms []string `json:"synonyms"`
}

// Expansion is the result of expanding a query.
type Expansion struct {
	OriginalQuery  string          `json:"original_query"`
	ExpandedQuery  string          `json:"expanded_query"`
	Language       string          `json:"language"`
	Terms          []TermExpansion `json:"expanded_terms"`
	Matches        []Match         `json:"expansions"`
	ExpansionCount int             `json:"expansion_count"`
}

// Expanded reports whether any synonym was added.
func (e *Expansion) Expanded() bool {
	return e != nil && e.ExpansionCount > 0
}

// Synonyms returns the distinct synonym texts in discovery order.
func (e *Expansion) Synonyms() []string {
	if e == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, m := range e.Matches {
		key := db.NormalizeTerm(m.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m.Text)
	}
	return out
}

// DisplayText formats the expansion for users, e.g.
// "Search expanded: record (document, file)". It is empty when nothing
// was expanded.
func (e *Expansion) DisplayText() string {
	if !e.Expanded() {
		return ""
	}
	parts := make([]string, 0, len(e.Terms))
	for _, te := range e.Terms {
		parts = append(parts, te.Token+" ("+strings.Join(te.Synonyms, ", ")+")")
	}
	return "Search expanded: " + strings.Join(parts, "; ")
}

// ExpandQuery tokenizes query, looks up synonyms for every token and
// appends the distinct synonym texts to the original query.
func (t *Thesaurus) ExpandQuery(ctx context.Context, query, language string) (*Expansion, error) {
	exp := &Expansion{OriginalQuery: query, ExpandedQuery: query, Language: language}

	done := map[string]bool{}
	for _, token := range analysis.Segment(t.analyzer, query, language) {
		if done[token] {
			continue
		}
		done[token] = true

		matches, err := t.SynonymsForText(ctx, token, language)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", query, err)
		}
		if len(matches) == 0 {
			continue
		}
		te := TermExpansion{Token: token}
		for _, m := range matches {
			te.Synonyms = append(te.Synonyms, m.Text)
		}
		exp.Terms = append(exp.Terms, te)
		exp.Matches = append(exp.Matches, matches...)
	}

	synonyms := exp.Synonyms()
	exp.ExpansionCount = len(synonyms)
	if len(synonyms) > 0 {
		exp.ExpandedQuery = query + " " + strings.Join(synonyms, " ")
	}

	t.logger.Debug("expanded query",
		zap.String("query", query),
		zap.String("language", language),
		zap.Int("expansion_count", exp.ExpansionCount))
	return exp, nil
}
