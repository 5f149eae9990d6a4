package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/thesaurus/pkg/analysis"
	"github.com/japaniel/thesaurus/pkg/search"
	"github.com/japaniel/thesaurus/pkg/thesaurus"
)

func (a *app) newThesaurus(language string) (*thesaurus.Thesaurus, error) {
	var analyzer *analysis.Analyzer
	if language == "ja" {
		var err error
		if analyzer, err = analysis.NewAnalyzer(); err != nil {
			return nil, err
		}
	}
	return thesaurus.New(a.conn, a.cfg.Expansion, analyzer, a.logger), nil
}

func (a *app) searchService(language string) (*search.Service, error) {
	th, err := a.newThesaurus(language)
	if err != nil {
		return nil, err
	}
	return search.NewService(a.conn, th, a.cfg, a.logger)
}

func (a *app) checkLanguage(language string) error {
	if !a.cfg.SupportsLanguage(language) {
		return fmt.Errorf("unsupported language %q (configured: %s)", language, strings.Join(a.cfg.Expansion.Languages, ", "))
	}
	return nil
}

func (a *app) searchCmd() *cobra.Command {
	var (
		opts     search.Options
		noExpand bool
	)
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Build the search request for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Language == "" {
				opts.Language = a.cfg.DefaultLanguage()
			}
			if err := a.checkLanguage(opts.Language); err != nil {
				return err
			}
			svc, err := a.searchService(opts.Language)
			if err != nil {
				return err
			}
			opts.NoExpansion = noExpand
			res, err := svc.Search(cmd.Context(), strings.Join(args, " "), opts)
			if err != nil {
				return err
			}
			if !a.jsonOutput {
				if text := res.Expansion.DisplayText(); text != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), text)
				}
				return a.printJSON(res.Request)
			}
			return a.printJSON(res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Language, "lang", "", "Query language (defaults to the first configured language)")
	f.StringVar(&opts.Filters.Repository, "repository", "", "Restrict to a repository id")
	f.StringVar(&opts.Filters.LevelOfDescription, "level", "", "Restrict to a level of description id")
	f.StringVar(&opts.Filters.DateStart, "date-start", "", "Earliest start date (YYYY-MM-DD)")
	f.StringVar(&opts.Filters.DateEnd, "date-end", "", "Latest end date (YYYY-MM-DD)")
	f.BoolVar(&opts.Filters.HasDigitalObject, "digital", false, "Only records with a digital object")
	f.IntVar(&opts.Page.Number, "page", 1, "Result page")
	f.IntVar(&opts.Page.Size, "size", 0, "Page size (defaults to search.page_size)")
	f.BoolVar(&noExpand, "no-expand", false, "Search without synonyms")
	return cmd
}

func (a *app) expandCmd() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "expand QUERY",
		Short: "Show how a query is expanded",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if language == "" {
				language = a.cfg.DefaultLanguage()
			}
			if err := a.checkLanguage(language); err != nil {
				return err
			}
			svc, err := a.searchService(language)
			if err != nil {
				return err
			}
			exp, err := svc.ExpansionInfo(cmd.Context(), strings.Join(args, " "), language)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(exp)
			}
			fmt.Fprintf(a.out, "Original: %s\n", exp.OriginalQuery)
			fmt.Fprintf(a.out, "Expanded: %s\n", exp.ExpandedQuery)
			fmt.Fprintf(a.out, "Synonyms added: %d\n", exp.ExpansionCount)
			for _, te := range exp.Terms {
				fmt.Fprintf(a.out, "  %s => %s\n", te.Token, strings.Join(te.Synonyms, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "lang", "", "Query language (defaults to the first configured language)")
	return cmd
}

func (a *app) queryCmd() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "query TERM",
		Short: "List the synonyms of a term",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if language == "" {
				language = a.cfg.DefaultLanguage()
			}
			if err := a.checkLanguage(language); err != nil {
				return err
			}
			th, err := a.newThesaurus(language)
			if err != nil {
				return err
			}
			term := strings.Join(args, " ")
			matches, err := th.SynonymsForText(cmd.Context(), term, language)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(matches)
			}
			if len(matches) == 0 {
				fmt.Fprintf(a.out, "No synonyms found for %q\n", term)
				return nil
			}
			fmt.Fprintf(a.out, "Synonyms for %q:\n", term)
			for _, m := range matches {
				dir := ""
				if m.Reverse {
					dir = " (reverse)"
				}
				fmt.Fprintf(a.out, "  %-30s %.2f  %-8s %s%s\n", m.Text, m.Weight, m.Kind, m.Source, dir)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "lang", "", "Term language (defaults to the first configured language)")
	return cmd
}

func (a *app) suggestCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "suggest PREFIX",
		Short: "Suggest terms for autocomplete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.searchService("")
			if err != nil {
				return err
			}
			suggestions, err := svc.Suggestions(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(suggestions)
			}
			for _, s := range suggestions {
				fmt.Fprintf(a.out, "%s\t%s\t%s\n", s.Term, s.Domain, s.Source)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum suggestions")
	return cmd
}
