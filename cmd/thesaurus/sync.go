package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/thesaurus/pkg/analysis"
	"github.com/japaniel/thesaurus/pkg/db"
	"github.com/japaniel/thesaurus/pkg/dictionary"
	"github.com/japaniel/thesaurus/pkg/ingest"
)

// graphSyncType is the sync log type of knowledge-graph class imports.
const graphSyncType = "graph_classes"

func (a *app) syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize terms from external sources",
	}
	cmd.AddCommand(a.syncLexicalCmd(), a.syncGraphCmd())
	return cmd
}

func (a *app) runner(cmd *cobra.Command) *ingest.Runner {
	r := ingest.NewRunner(a.conn, a.logger, a.metrics)
	if !a.jsonOutput {
		out := cmd.ErrOrStderr()
		r.OnProgress = func(processed int, item string, err error) {
			if err != nil {
				fmt.Fprintf(out, "  [%d] %s: %v\n", processed, item, err)
				return
			}
			fmt.Fprintf(out, "  [%d] %s\n", processed, item)
		}
	}
	return r
}

func (a *app) loadSeeds(ctx context.Context, path string) (*ingest.SeedFile, error) {
	if path == "" {
		path = a.cfg.Sync.SeedsPath
	}
	if err := dictionary.EnsureFile(ctx, a.httpClient(), path, a.cfg.Sync.SeedsURL, a.logger); err != nil {
		return nil, fmt.Errorf("seed file: %w", err)
	}
	return ingest.LoadSeeds(path)
}

func (a *app) syncLexicalCmd() *cobra.Command {
	var (
		setName   string
		all       bool
		seedsPath string
		fromURL   string
		domain    string
		language  string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "lexical [TERM...]",
		Short: "Sync seed terms from the lexical API",
		Long: `Fetch synonyms, related words and definitions for seed terms from the
lexical API. Seeds are the terms given as arguments, a named set in the
seed file, every set (--all), or the most frequent words of a web page
(--from-url).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			source := ingest.NewLexicalSource(a.httpClient(), a.cfg.Sync, a.metrics)
			runner := a.runner(cmd)

			var sets []ingest.SeedSet
			if len(args) > 0 {
				sets = []ingest.SeedSet{{Name: "custom", Domain: domain, Terms: args}}
			} else if fromURL != "" {
				set, err := a.seedsFromURL(ctx, fromURL, domain, language, limit)
				if err != nil {
					return err
				}
				sets = []ingest.SeedSet{set}
			} else {
				seeds, err := a.loadSeeds(ctx, seedsPath)
				if err != nil {
					syncType := setName
					if all {
						syncType = "all"
					}
					return a.failRun(ctx, runner, db.SourceLexical, syncType, err)
				}
				if all {
					sets = seeds.Lexical
				} else {
					set, ok := seeds.Set(setName)
					if !ok {
						return fmt.Errorf("unknown seed set %q (available: %s)", setName, strings.Join(seeds.SetNames(), ", "))
					}
					sets = []ingest.SeedSet{set}
				}
			}

			runs, err := source.SyncAll(ctx, runner, sets)
			a.printRuns(runs)
			return err
		},
	}
	cmd.Flags().StringVar(&setName, "set", "archival", "Seed set to sync")
	cmd.Flags().BoolVar(&all, "all", false, "Sync every seed set, one run per set")
	cmd.Flags().StringVar(&seedsPath, "seeds", "", "Seed file (defaults to sync.seeds_path)")
	cmd.Flags().StringVar(&fromURL, "from-url", "", "Take seed terms from the readable text of this page")
	cmd.Flags().StringVar(&domain, "domain", db.DomainGeneral, "Domain for custom and --from-url terms")
	cmd.Flags().StringVar(&language, "lang", "en", "Language of the --from-url page")
	cmd.Flags().IntVar(&limit, "limit", 25, "Maximum number of --from-url terms")
	cmd.MarkFlagsMutuallyExclusive("set", "all", "from-url")
	return cmd
}

func (a *app) seedsFromURL(ctx context.Context, rawURL, domain, language string, limit int) (ingest.SeedSet, error) {
	client := &http.Client{Timeout: a.cfg.Sync.RequestTimeout()}
	article, err := analysis.FetchArticle(ctx, client, rawURL, a.cfg.Sync.UserAgent)
	if err != nil {
		return ingest.SeedSet{}, err
	}

	var analyzer *analysis.Analyzer
	if language == "ja" {
		if analyzer, err = analysis.NewAnalyzer(); err != nil {
			return ingest.SeedSet{}, err
		}
	}
	terms := analysis.CandidateTerms(analyzer, article.Text, language, limit)
	a.logger.Info("extracted seed terms from page",
		zap.String("url", rawURL),
		zap.String("title", article.Title),
		zap.Int("terms", len(terms)))
	if len(terms) == 0 {
		return ingest.SeedSet{}, fmt.Errorf("no candidate terms found at %s", rawURL)
	}
	return ingest.SeedSet{Name: "url", Domain: domain, Terms: terms}, nil
}

func (a *app) syncGraphCmd() *cobra.Command {
	var (
		seedsPath string
		classIDs  []string
	)
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Import subclasses of the seed classes from the knowledge graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner := a.runner(cmd)
			seeds, err := a.loadSeeds(ctx, seedsPath)
			if err != nil {
				return a.failRun(ctx, runner, db.SourceGraph, graphSyncType, err)
			}
			classes := seeds.Graph
			if len(classIDs) > 0 {
				classes = nil
				for _, id := range classIDs {
					c := ingest.GraphClass{ID: id, Domain: db.DomainArchival}
					for _, known := range seeds.Graph {
						if known.ID == id {
							c = known
						}
					}
					classes = append(classes, c)
				}
			}

			source := ingest.NewGraphSource(a.httpClient(), a.cfg.Sync, a.cfg.Expansion.Languages, a.metrics)
			stats, err := source.Sync(ctx, runner, graphSyncType, classes)
			if stats != nil {
				a.printRuns([]*ingest.Stats{stats})
			}
			return err
		},
	}
	cmd.Flags().StringVar(&seedsPath, "seeds", "", "Seed file (defaults to sync.seeds_path)")
	cmd.Flags().StringSliceVar(&classIDs, "class", nil, "Class QIDs to import instead of the seed file's classes")
	return cmd
}

func (a *app) importLocalCmd() *cobra.Command {
	var dir, domain string
	cmd := &cobra.Command{
		Use:   "import-local",
		Short: "Import curated vocabulary files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.Sync.VocabularyDir
			}
			stats, err := dictionary.NewImporter(a.runner(cmd)).ImportDir(cmd.Context(), dir, domain)
			if stats != nil {
				a.printRuns([]*ingest.Stats{stats})
			}
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Vocabulary directory (defaults to sync.vocabulary_dir)")
	cmd.Flags().StringVar(&domain, "domain", "", "Import only the file for this domain")
	return cmd
}

// failRun records a run that could not load its seeds and returns cause.
func (a *app) failRun(ctx context.Context, runner *ingest.Runner, source, syncType string, cause error) error {
	stats, err := runner.Fail(ctx, source, syncType, cause)
	if stats != nil {
		a.printRuns([]*ingest.Stats{stats})
	}
	if err != nil {
		return err
	}
	return cause
}

func (a *app) printRuns(runs []*ingest.Stats) {
	if a.jsonOutput {
		_ = a.printJSON(runs)
		return
	}
	for _, s := range runs {
		fmt.Fprintf(a.out, "%s/%s: %s in %s (run %s)\n", s.Source, s.SyncType, s.Status, s.Duration.Round(time.Millisecond), s.RunID)
		fmt.Fprintf(a.out, "  processed %d, added %d, updated %d, synonyms added %d\n",
			s.Counts.TermsProcessed, s.Counts.TermsAdded, s.Counts.TermsUpdated, s.Counts.SynonymsAdded)
		for _, e := range s.Errors {
			fmt.Fprintf(a.out, "  error: %s\n", e)
		}
	}
	if len(runs) > 1 {
		total := ingest.Sum(runs...)
		fmt.Fprintf(a.out, "Total: processed %d, added %d, updated %d, synonyms added %d\n",
			total.TermsProcessed, total.TermsAdded, total.TermsUpdated, total.SynonymsAdded)
	}
}
