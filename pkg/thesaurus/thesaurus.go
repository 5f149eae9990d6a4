// Package thesaurus expands search queries with weighted synonyms from the
// term store.
package thesaurus

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/japaniel/thesaurus/pkg/analysis"
	"github.com/japaniel/thesaurus/pkg/config"
	"github.com/japaniel/thesaurus/pkg/db"
)

// Match is one synonym found for a piece of text.
type Match struct {
	Text    string  `json:"text"`
	Weight  float64 `json:"weight"`
	Kind    db.Kind `json:"type"`
	Source  string  `json:"source"`
	Reverse bool    `json:"reverse,omitempty"`
}

// Thesaurus answers synonym lookups against the store. It only reads and
// is safe for concurrent use.
type Thesaurus struct {
	conn     db.DBExecutor
	cfg      config.ExpansionConfig
	analyzer *analysis.Analyzer
	logger   *zap.Logger
}

// New creates a Thesaurus. analyzer may be nil, in which case Japanese
// queries use the default tokenizer.
func New(conn db.DBExecutor, cfg config.ExpansionConfig, analyzer *analysis.Analyzer, logger *zap.Logger) *Thesaurus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Thesaurus{conn: conn, cfg: cfg, analyzer: analyzer, logger: logger.Named("thesaurus")}
}

// SynonymsForText returns the synonyms of text in language: relations of
// every active term with the same normalized text, plus terms that list
// text as a bidirectional synonym. Direct relations win over reverse ones
// with the same text. Results are ordered by weight and capped at the
// expansion limit.
func (t *Thesaurus) SynonymsForText(ctx context.Context, text, language string) ([]Match, error) {
	normalized := db.NormalizeTerm(text)
	if normalized == "" {
		return nil, nil
	}
	limit := t.cfg.Limit

	direct, err := db.DirectSynonyms(ctx, t.conn, normalized, language, t.cfg.MinSynonymWeight, limit)
	if err != nil {
		return nil, fmt.Errorf("direct synonyms for %q: %w", text, err)
	}
	reverse, err := db.ReverseSynonyms(ctx, t.conn, normalized, language, t.cfg.MinSynonymWeight, limit)
	if err != nil {
		return nil, fmt.Errorf("reverse synonyms for %q: %w", text, err)
	}

	seen := map[string]bool{normalized: true}
	var matches []Match
	for _, s := range direct {
		if seen[s.NormalizedText] {
			continue
		}
		seen[s.NormalizedText] = true
		matches = append(matches, Match{Text: s.Text, Weight: s.Weight, Kind: s.Kind, Source: s.Source})
	}
	for _, r := range reverse {
		key := db.NormalizeTerm(r.TermText)
		if seen[key] {
			continue
		}
		seen[key] = true
		matches = append(matches, Match{Text: r.TermText, Weight: r.Weight, Kind: r.Kind, Source: r.Source, Reverse: true})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Weight > matches[j].Weight })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
