package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/japaniel/thesaurus/pkg/config"
	"github.com/japaniel/thesaurus/pkg/db"
)

// lexicalLanguage is the language of every term the lexical API returns.
const lexicalLanguage = "en"

// WordScore is one entry of a Datamuse /words response.
type WordScore struct {
	Word  string   `json:"word"`
	Score float64  `json:"score"`
	Defs  []string `json:"defs,omitempty"`
}

// LexicalSource imports synonyms and associated words from the Datamuse API.
type LexicalSource struct {
	fetch   *Fetcher
	cfg     config.SyncConfig
	baseURL string
}

// NewLexicalSource creates the lexical adapter. metrics may be nil.
func NewLexicalSource(client *http.Client, cfg config.SyncConfig, metrics *Metrics) *LexicalSource {
	return &LexicalSource{
		fetch: &Fetcher{
			Client:    client,
			Timeout:   cfg.RequestTimeout(),
			UserAgent: cfg.UserAgent,
			Pacer:     NewPacer(cfg.RateLimitDelay()),
			Metrics:   metrics,
			Adapter:   "lexical",
		},
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.LexicalBaseURL, "/"),
	}
}

func (l *LexicalSource) words(ctx context.Context, params url.Values) ([]WordScore, error) {
	u := l.baseURL + "/words?" + params.Encode()
	var out []WordScore
	if err := l.fetch.GetJSON(ctx, u, "application/json", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Synonyms returns the synonyms of word scoring at least the configured
// minimum score.
func (l *LexicalSource) Synonyms(ctx context.Context, word string) ([]WordScore, error) {
	res, err := l.words(ctx, url.Values{
		"rel_syn": {word},
		"max":     {strconv.Itoa(l.cfg.MaxSynonymsPerTerm)},
	})
	if err != nil {
		return nil, err
	}
	filtered := res[:0]
	for _, w := range res {
		if w.Score >= l.cfg.MinScore {
			filtered = append(filtered, w)
		}
	}
	return filtered, nil
}

// Related returns words commonly triggered by word.
func (l *LexicalSource) Related(ctx context.Context, word string) ([]WordScore, error) {
	return l.words(ctx, url.Values{
		"rel_trg": {word},
		"max":     {strconv.Itoa(l.cfg.MaxRelated)},
	})
}

// Definition is a dictionary sense of a word.
type Definition struct {
	PartOfSpeech string
	Text         string
}

var partsOfSpeech = map[string]string{
	"n":   "noun",
	"v":   "verb",
	"adj": "adjective",
	"adv": "adverb",
}

// Definitions returns the definitions of word. Datamuse prefixes each one
// with a part-of-speech tag and a tab.
func (l *LexicalSource) Definitions(ctx context.Context, word string) ([]Definition, error) {
	res, err := l.words(ctx, url.Values{
		"sp":  {word},
		"md":  {"d"},
		"max": {"1"},
	})
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, nil
	}
	var defs []Definition
	for _, d := range res[0].Defs {
		def := Definition{Text: strings.TrimSpace(d)}
		if tag, text, ok := strings.Cut(d, "\t"); ok {
			def.PartOfSpeech = partsOfSpeech[tag]
			def.Text = strings.TrimSpace(text)
		}
		if def.Text != "" {
			defs = append(defs, def)
		}
	}
	return defs, nil
}

// Weight maps a Datamuse score onto [floor, floor+span], rounded to two
// decimals.
func (l *LexicalSource) Weight(score float64) float64 {
	normalized := math.Min(score/l.cfg.ScoreScale, 1)
	if normalized < 0 {
		normalized = 0
	}
	return round2(l.cfg.WeightFloor + normalized*l.cfg.WeightSpan)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// SyncTerm fetches synonyms, associated words and definitions for term and
// writes them in one transaction. Nothing is written if any fetch fails.
func (l *LexicalSource) SyncTerm(ctx context.Context, conn *sql.DB, term, domain string) (Result, error) {
	synonyms, err := l.Synonyms(ctx, term)
	if err != nil {
		return Result{}, fmt.Errorf("synonyms: %w", err)
	}
	related, err := l.Related(ctx, term)
	if err != nil {
		return Result{}, fmt.Errorf("related words: %w", err)
	}
	defs, err := l.Definitions(ctx, term)
	if err != nil {
		return Result{}, fmt.Errorf("definitions: %w", err)
	}

	in := db.TermInput{Text: term, Source: db.SourceLexical, Language: lexicalLanguage, Domain: domain}
	if len(defs) > 0 {
		in.Definition = defs[0].Text
		in.PartOfSpeech = defs[0].PartOfSpeech
	}
	self := db.NormalizeTerm(term)

	var res Result
	err = db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		termID, created, err := db.UpsertTerm(ctx, tx, in)
		if err != nil {
			return err
		}
		if created {
			res.TermsAdded++
		} else {
			res.TermsUpdated++
		}

		add := func(w WordScore, kind db.Kind, weight float64) error {
			if strings.TrimSpace(w.Word) == "" || db.NormalizeTerm(w.Word) == self {
				return nil
			}
			_, created, err := db.UpsertSynonym(ctx, tx, db.SynonymInput{
				TermID: termID,
				Text:   w.Word,
				Source: db.SourceLexical,
				Kind:   kind,
				Weight: weight,
			})
			if err != nil {
				return err
			}
			if created {
				res.SynonymsAdded++
			}
			return nil
		}
		for _, s := range synonyms {
			if err := add(s, db.KindSynonym, l.Weight(s.Score)); err != nil {
				return err
			}
		}
		for _, r := range related {
			if err := add(r, db.KindRelated, round2(l.Weight(r.Score)*l.cfg.RelatedDiscount)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Sync runs one sync over the terms of set.
func (l *LexicalSource) Sync(ctx context.Context, runner *Runner, set SeedSet) (*Stats, error) {
	return runner.RunItems(ctx, db.SourceLexical, set.Name, set.Terms, func(ctx context.Context, term string) (Result, error) {
		return l.SyncTerm(ctx, runner.DB, term, set.Domain)
	})
}

// SyncAll syncs every set as a separate run and stops at the first run
// that could not be recorded or was cancelled.
func (l *LexicalSource) SyncAll(ctx context.Context, runner *Runner, sets []SeedSet) ([]*Stats, error) {
	var all []*Stats
	for _, set := range sets {
		stats, err := l.Sync(ctx, runner, set)
		if stats != nil {
			all = append(all, stats)
		}
		if err != nil {
			return all, fmt.Errorf("sync %s: %w", set.Name, err)
		}
	}
	return all, nil
}
