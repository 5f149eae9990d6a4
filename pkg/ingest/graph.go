package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/japaniel/thesaurus/pkg/config"
	"github.com/japaniel/thesaurus/pkg/db"
)

// Translation is a label of an item in a non-default language.
type Translation struct {
	Language string
	Text     string
}

// GraphItem is one knowledge-graph entity with its labels.
type GraphItem struct {
	QID          string
	Label        string
	Description  string
	Aliases      []string
	Translations []Translation
}

// GraphSource imports class hierarchies from a Wikidata SPARQL endpoint.
type GraphSource struct {
	fetch     *Fetcher
	cfg       config.SyncConfig
	endpoint  string
	languages []string
}

// NewGraphSource creates the knowledge-graph adapter. The first language is
// the language of imported terms; the others become translations.
func NewGraphSource(client *http.Client, cfg config.SyncConfig, languages []string, metrics *Metrics) *GraphSource {
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	return &GraphSource{
		fetch: &Fetcher{
			Client:    client,
			Timeout:   cfg.GraphRequestTimeout(),
			UserAgent: cfg.UserAgent,
			Pacer:     NewPacer(cfg.GraphRateLimitDelay()),
			Metrics:   metrics,
			Adapter:   "graph",
		},
		cfg:       cfg,
		endpoint:  cfg.SPARQLEndpoint,
		languages: languages,
	}
}

type sparqlValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Lang  string `json:"xml:lang,omitempty"`
}

type sparqlResponse struct {
	Results *struct {
		Bindings []map[string]sparqlValue `json:"bindings"`
	} `json:"results"`
}

var reQIDSuffix = regexp.MustCompile(`Q\d+$`)

// ClassQuery builds the SPARQL query returning qid and its transitive
// subclasses with labels, aliases and translated labels. The result cap
// applies to items in a subquery; the outer query yields one row per
// translated label.
func (g *GraphSource) ClassQuery(qid string) string {
	langs := strings.Join(g.languages, ",")
	var quoted []string
	for _, l := range g.languages[1:] {
		quoted = append(quoted, fmt.Sprintf("%q", l))
	}
	translations := ""
	if len(quoted) > 0 {
		translations = fmt.Sprintf(`
  OPTIONAL { ?item rdfs:label ?label . FILTER(LANG(?label) IN (%s)) }`, strings.Join(quoted, ", "))
	}
	return fmt.Sprintf(`SELECT ?item ?itemLabel ?itemDescription ?itemAltLabel ?label WHERE {
  { SELECT DISTINCT ?item WHERE { ?item wdt:P279* wd:%s . } LIMIT %d }%s
  SERVICE wikibase:label { bd:serviceParam wikibase:language "%s". }
}`, qid, g.cfg.MaxGraphResults, translations, langs)
}

// FetchClass returns qid and its subclasses. Rows for the same item are
// merged; items are returned in first-seen order.
func (g *GraphSource) FetchClass(ctx context.Context, qid string) ([]GraphItem, error) {
	if !reQID.MatchString(qid) {
		return nil, fmt.Errorf("invalid class id %q", qid)
	}
	u := g.endpoint + "?" + url.Values{
		"query":  {g.ClassQuery(qid)},
		"format": {"json"},
	}.Encode()

	var resp sparqlResponse
	if err := g.fetch.GetJSON(ctx, u, "application/sparql-results+json", &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, &MalformedResponseError{URL: g.endpoint, Err: errors.New("missing results")}
	}

	var items []*GraphItem
	byQID := map[string]*GraphItem{}
	for _, row := range resp.Results.Bindings {
		id := reQIDSuffix.FindString(row["item"].Value)
		if id == "" {
			continue
		}
		item, ok := byQID[id]
		if !ok {
			item = &GraphItem{
				QID:         id,
				Label:       row["itemLabel"].Value,
				Description: row["itemDescription"].Value,
				Aliases:     parseAliases(row["itemAltLabel"].Value),
			}
			byQID[id] = item
			items = append(items, item)
		}
		if l, ok := row["label"]; ok && l.Value != "" && l.Lang != g.languages[0] {
			item.addTranslation(l.Lang, l.Value)
		}
	}

	out := make([]GraphItem, len(items))
	for i, it := range items {
		out[i] = *it
	}
	return out, nil
}

func (it *GraphItem) addTranslation(lang, text string) {
	for _, t := range it.Translations {
		if t.Language == lang && t.Text == text {
			return
		}
	}
	it.Translations = append(it.Translations, Translation{Language: lang, Text: text})
}

func parseAliases(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// ImportItem writes item as a term with its aliases as synonyms and its
// translations as related terms. Items without a real label are skipped.
func (g *GraphSource) ImportItem(ctx context.Context, conn *sql.DB, item GraphItem, domain string) (Result, error) {
	label := strings.TrimSpace(item.Label)
	if label == "" || label == item.QID {
		return Result{}, nil
	}
	self := db.NormalizeTerm(label)

	var res Result
	err := db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		termID, created, err := db.UpsertTerm(ctx, tx, db.TermInput{
			Text:       label,
			Source:     db.SourceGraph,
			SourceRef:  item.QID,
			Language:   g.languages[0],
			Domain:     domain,
			Definition: item.Description,
		})
		if err != nil {
			return err
		}
		if created {
			res.TermsAdded++
		} else {
			res.TermsUpdated++
		}

		add := func(text string, kind db.Kind, weight float64) error {
			if db.NormalizeTerm(text) == self {
				return nil
			}
			_, created, err := db.UpsertSynonym(ctx, tx, db.SynonymInput{
				TermID: termID, Text: text, Source: db.SourceGraph, Kind: kind, Weight: weight,
			})
			if err == nil && created {
				res.SynonymsAdded++
			}
			return err
		}
		for _, a := range item.Aliases {
			if err := add(a, db.KindSynonym, g.cfg.AliasWeight); err != nil {
				return err
			}
		}
		for _, t := range item.Translations {
			if err := add(t.Text, db.KindRelated, g.cfg.TranslationWeight); err != nil {
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

// Sync imports every class as one run. A class whose listing cannot be
// fetched is recorded and contributes no items.
func (g *GraphSource) Sync(ctx context.Context, runner *Runner, syncType string, classes []GraphClass) (*Stats, error) {
	return runner.Run(ctx, db.SourceGraph, syncType, func(ctx context.Context, b *Batch) error {
		for _, class := range classes {
			items, err := g.FetchClass(ctx, class.ID)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				b.Fail(fmt.Errorf("%s (%s): %w", class.ID, class.Label, err))
				continue
			}
			for _, item := range items {
				item := item
				key := item.QID
				if item.Label != "" {
					key += " (" + item.Label + ")"
				}
				err := b.Item(ctx, key, func(ctx context.Context) (Result, error) {
					return g.ImportItem(ctx, runner.DB, item, class.Domain)
				})
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}
