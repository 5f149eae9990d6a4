package search

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/japaniel/thesaurus/pkg/config"
	"github.com/japaniel/thesaurus/pkg/db"
	"github.com/japaniel/thesaurus/pkg/thesaurus"
)

// Options are the per-search inputs besides the query text.
type Options struct {
	Language string
	Filters  Filters
	Page     Page
	// NoExpansion skips thesaurus lookup for this search.
	NoExpansion bool
}

// Result is a built search request with the expansion that shaped it.
type Result struct {
	Request   Request              `json:"request"`
	Expansion *thesaurus.Expansion `json:"expansion,omitempty"`
	Took      time.Duration        `json:"took"`
}

// Service expands queries, builds requests and records searches.
type Service struct {
	conn      db.DBExecutor
	thesaurus *thesaurus.Thesaurus
	builder   *Builder
	expansion config.ExpansionConfig
	language  string
	logSearch bool
	logger    *zap.Logger
}

// NewService wires a search service. It fails if the search
// configuration is invalid.
func NewService(conn db.DBExecutor, th *thesaurus.Thesaurus, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	b, err := NewBuilder(cfg.Search)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		conn:      conn,
		thesaurus: th,
		builder:   b,
		expansion: cfg.Expansion,
		language:  cfg.DefaultLanguage(),
		logSearch: cfg.Search.LogSearches,
		logger:    logger.Named("search"),
	}, nil
}

// Search expands query (when enabled) and builds the request. A failed
// expansion is logged and the search continues with the original query
// only.
func (s *Service) Search(ctx context.Context, query string, opts Options) (*Result, error) {
	start := time.Now()
	language := opts.Language
	if language == "" {
		language = s.language
	}

	var exp *thesaurus.Expansion
	if s.expansion.Enabled && !opts.NoExpansion {
		var err error
		exp, err = s.thesaurus.ExpandQuery(ctx, query, language)
		if err != nil {
			s.logger.Warn("query expansion failed, searching without synonyms",
				zap.String("query", query), zap.Error(err))
			exp = nil
		}
	}

	res := &Result{
		Request:   s.builder.Build(query, exp, opts.Filters, opts.Page),
		Expansion: exp,
		Took:      time.Since(start),
	}

	if s.logSearch {
		if err := s.record(ctx, query, language, exp, res.Took); err != nil {
			s.logger.Warn("failed to record search", zap.String("query", query), zap.Error(err))
		}
	}
	return res, nil
}

func (s *Service) record(ctx context.Context, query, language string, exp *thesaurus.Expansion, took time.Duration) error {
	entry := db.SearchLogEntry{OriginalQuery: query, Took: took}
	if exp.Expanded() {
		terms, err := json.Marshal(exp.Terms)
		if err != nil {
			return err
		}
		entry.ExpandedQuery = exp.ExpandedQuery
		entry.ExpansionTerms = string(terms)

		var ids []int64
		for _, te := range exp.Terms {
			t, err := db.FindTerm(ctx, s.conn, te.Token, "", language)
			if err != nil {
				return err
			}
			if t != nil {
				ids = append(ids, t.ID)
			}
		}
		if err := db.IncrementFrequency(ctx, s.conn, ids...); err != nil {
			return err
		}
	}
	return db.InsertSearchLog(ctx, s.conn, entry)
}

// ExpansionInfo expands query without building or logging a search.
func (s *Service) ExpansionInfo(ctx context.Context, query, language string) (*thesaurus.Expansion, error) {
	if language == "" {
		language = s.language
	}
	return s.thesaurus.ExpandQuery(ctx, query, language)
}

// Suggestion is an autocomplete candidate.
type Suggestion struct {
	Term   string `json:"term"`
	Domain string `json:"domain"`
	Source string `json:"source"`
}

// Suggestions returns active terms containing prefix, most used first.
// Prefixes shorter than two characters return nothing.
func (s *Service) Suggestions(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	if len([]rune(prefix)) < 2 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	terms, err := db.SearchTerms(ctx, s.conn, prefix, limit*2)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []Suggestion
	for _, t := range terms {
		if seen[t.NormalizedText] {
			continue
		}
		seen[t.NormalizedText] = true
		out = append(out, Suggestion{Term: t.Text, Domain: t.Domain, Source: t.Source})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
