package dictionary

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/japaniel/thesaurus/pkg/db"
	"github.com/japaniel/thesaurus/pkg/ingest"
)

// SyncType is the sync log type of vocabulary imports.
const SyncType = "local_vocabulary"

// Importer loads curated vocabulary files, one file per domain, into the
// store with source local-curated.
type Importer struct {
	runner *ingest.Runner
}

// NewImporter creates an importer that records its runs through runner.
func NewImporter(runner *ingest.Runner) *Importer {
	return &Importer{runner: runner}
}

// VocabularyFiles lists the *.json files in dir, sorted by name. A non-empty
// domain keeps only the file named after it.
func VocabularyFiles(dir, domain string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	if domain == "" {
		return matches, nil
	}
	var out []string
	for _, m := range matches {
		if domainOf(m) == domain {
			out = append(out, m)
		}
	}
	return out, nil
}

func domainOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// ImportDir imports every vocabulary file in dir as one run. Each file is
// an item: a file that cannot be read or parsed is recorded and the others
// still import. A missing directory fails the run with zero items.
func (im *Importer) ImportDir(ctx context.Context, dir, domain string) (*ingest.Stats, error) {
	if _, err := os.Stat(dir); err != nil {
		return im.runner.Fail(ctx, db.SourceLocal, SyncType, fmt.Errorf("vocabulary directory not found: %s", dir))
	}
	files, err := VocabularyFiles(dir, domain)
	if err != nil {
		return im.runner.Fail(ctx, db.SourceLocal, SyncType, err)
	}
	return im.runner.Run(ctx, db.SourceLocal, SyncType, func(ctx context.Context, b *ingest.Batch) error {
		for _, path := range files {
			path := path
			err := b.Item(ctx, filepath.Base(path), func(ctx context.Context) (ingest.Result, error) {
				return im.ImportFile(ctx, path, domainOf(path))
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ImportFile imports one vocabulary file in a single transaction.
func (im *Importer) ImportFile(ctx context.Context, path, domain string) (ingest.Result, error) {
	terms, err := LoadVocabulary(path)
	if err != nil {
		return ingest.Result{}, err
	}
	var res ingest.Result
	err = db.WithTx(ctx, im.runner.DB, func(tx *sql.Tx) error {
		for _, t := range terms {
			r, err := importTerm(ctx, tx, t, domain)
			if err != nil {
				return fmt.Errorf("term %q: %w", t.Term, err)
			}
			res.TermsAdded += r.TermsAdded
			res.TermsUpdated += r.TermsUpdated
			res.SynonymsAdded += r.SynonymsAdded
		}
		return nil
	})
	if err != nil {
		return ingest.Result{}, err
	}
	return res, nil
}

func importTerm(ctx context.Context, tx db.DBExecutor, t VocabularyTerm, domain string) (ingest.Result, error) {
	var res ingest.Result
	termID, created, err := db.UpsertTerm(ctx, tx, db.TermInput{
		Text:       t.Term,
		Source:     db.SourceLocal,
		Language:   t.Language,
		Domain:     domain,
		Definition: t.Definition,
		Preferred:  t.Preferred,
	})
	if err != nil {
		return res, err
	}
	if created {
		res.TermsAdded++
	} else {
		res.TermsUpdated++
	}

	relations := []struct {
		kind    db.Kind
		targets []WeightedText
		weight  float64
	}{
		{db.KindSynonym, t.Synonyms, DefaultSynonymWeight},
		{db.KindBroader, t.Broader, DefaultRelationWeight},
		{db.KindNarrower, t.Narrower, DefaultRelationWeight},
		{db.KindRelated, t.Related, DefaultRelationWeight},
	}
	self := db.NormalizeTerm(t.Term)
	for _, rel := range relations {
		for _, target := range rel.targets {
			if strings.TrimSpace(target.Text) == "" || db.NormalizeTerm(target.Text) == self {
				continue
			}
			_, created, err := db.UpsertSynonym(ctx, tx, db.SynonymInput{
				TermID: termID,
				Text:   target.Text,
				Source: db.SourceLocal,
				Kind:   rel.kind,
				Weight: target.WeightOr(rel.weight),
			})
			if err != nil {
				return res, err
			}
			if created {
				res.SynonymsAdded++
			}
		}
	}
	return res, nil
}
