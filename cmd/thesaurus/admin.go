package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/thesaurus/pkg/db"
	"github.com/japaniel/thesaurus/pkg/export"
)

func (a *app) statsCmd() *cobra.Command {
	var popularDays int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show thesaurus and search statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := db.GetStats(ctx, a.conn)
			if err != nil {
				return err
			}
			exp, err := db.GetExpansionStats(ctx, a.conn)
			if err != nil {
				return err
			}
			var since time.Time
			if popularDays > 0 {
				since = time.Now().AddDate(0, 0, -popularDays)
			}
			popular, err := db.PopularSearches(ctx, a.conn, 10, since)
			if err != nil {
				return err
			}

			if a.jsonOutput {
				return a.printJSON(struct {
					*db.Stats
					Expansion *db.ExpansionStats `json:"expansion"`
					Popular   []db.PopularSearch `json:"popular_searches"`
				}{st, exp, popular})
			}

			fmt.Fprintf(a.out, "Terms:    %d\n", st.TotalTerms)
			fmt.Fprintf(a.out, "Synonyms: %d\n", st.TotalSynonyms)
			printCounts(a, "By source", st.BySource)
			printCounts(a, "By domain", st.ByDomain)
			fmt.Fprintf(a.out, "Searches: %d (%d expanded, %.2f%%)\n", exp.TotalSearches, exp.ExpandedSearches, exp.ExpansionRate)
			if len(popular) > 0 {
				fmt.Fprintln(a.out, "Popular searches:")
				for _, p := range popular {
					fmt.Fprintf(a.out, "  %-30s %d\n", p.Query, p.Count)
				}
			}
			if len(st.RecentSyncs) > 0 {
				fmt.Fprintln(a.out, "Recent syncs:")
				for _, l := range st.RecentSyncs {
					printSyncLog(a, l)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&popularDays, "days", 30, "Window for popular searches in days (0 for all time)")
	return cmd
}

func printCounts(a *app, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(a.out, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(a.out, "  %-20s %d\n", k, counts[k])
	}
}

func printSyncLog(a *app, l db.SyncLog) {
	fmt.Fprintf(a.out, "  #%d %s %s/%s %s: processed %d, added %d, updated %d, synonyms %d, errors %d\n",
		l.ID, l.CreatedAt.Format(time.RFC3339), l.Source, l.SyncType, l.Status,
		l.TermsProcessed, l.TermsAdded, l.TermsUpdated, l.SynonymsAdded, len(l.Errors))
}

func (a *app) logsCmd() *cobra.Command {
	var limit int
	var verbose bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List recent sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := db.RecentSyncLogs(cmd.Context(), a.conn, limit)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(logs)
			}
			if len(logs) == 0 {
				fmt.Fprintln(a.out, "No sync runs recorded.")
				return nil
			}
			for _, l := range logs {
				printSyncLog(a, l)
				if verbose {
					for _, e := range l.Errors {
						fmt.Fprintf(a.out, "      %s\n", e)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of runs to show")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show item errors")
	return cmd
}

func (a *app) deactivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate a term or a synonym relation",
	}
	for _, target := range []struct {
		use   string
		short string
		fn    func(ctx context.Context, exec db.DBExecutor, id int64) error
	}{
		{"term ID", "Deactivate a term and its relations", db.DeactivateTerm},
		{"synonym ID", "Deactivate one synonym relation", db.DeactivateSynonym},
	} {
		target := target
		cmd.AddCommand(&cobra.Command{
			Use:   target.use,
			Short: target.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(sub *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid id %q", args[0])
				}
				if err := target.fn(sub.Context(), a.conn, id); err != nil {
					if errors.Is(err, db.ErrNotFound) {
						return fmt.Errorf("no active record with id %d", id)
					}
					return err
				}
				a.logger.Info("deactivated", zap.String("target", sub.Name()), zap.Int64("id", id))
				fmt.Fprintf(a.out, "Deactivated %s %d\n", sub.Name(), id)
				return nil
			},
		})
	}
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var (
		output       string
		analyzerPath string
		floor        float64
		perTerm      int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the Elasticsearch synonym file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = a.cfg.Export.SynonymsPath
			}
			if !cmd.Flags().Changed("floor") {
				floor = a.cfg.Export.WeightFloor
			}
			if !cmd.Flags().Changed("per-term") {
				perTerm = a.cfg.Export.PerTermLimit
			}

			var sum export.Summary
			err := writeFile(output, func(f *os.File) error {
				var err error
				sum, err = export.WriteSynonymFile(cmd.Context(), a.conn, f, export.Options{Floor: floor, PerTermLimit: perTerm})
				return err
			})
			if err != nil {
				return err
			}
			a.logger.Info("exported synonyms",
				zap.String("path", output), zap.Int("terms", sum.Terms), zap.Int("synonyms", sum.Synonyms))

			if analyzerPath != "" {
				names := export.Names{Filter: a.cfg.Export.FilterName, Analyzer: a.cfg.Export.AnalyzerName}
				err := writeFile(analyzerPath, func(f *os.File) error {
					return export.WriteAnalyzerConfig(f, output, names)
				})
				if err != nil {
					return err
				}
			}

			if a.jsonOutput {
				return a.printJSON(struct {
					Path string `json:"path"`
					export.Summary
				}{output, sum})
			}
			fmt.Fprintf(a.out, "Exported %d terms with %d synonyms to %s\n", sum.Terms, sum.Synonyms, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Synonym file path (defaults to export.synonyms_path)")
	cmd.Flags().StringVar(&analyzerPath, "analyzer-config", "", "Also write the analyzer settings JSON to this path")
	cmd.Flags().Float64Var(&floor, "floor", 0, "Minimum synonym weight (defaults to export.weight_floor)")
	cmd.Flags().IntVar(&perTerm, "per-term", 0, "Maximum synonyms per term (defaults to export.per_term_limit)")
	return cmd
}

func writeFile(path string, fn func(f *os.File) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cfg.Write(a.out)
		},
	}
}
