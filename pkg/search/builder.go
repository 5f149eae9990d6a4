package search

import (
	"strings"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"

	"github.com/japaniel/thesaurus/pkg/config"
	"github.com/japaniel/thesaurus/pkg/thesaurus"
)

// Filter fields of the archival index.
const (
	FieldRepository         = "repository.id"
	FieldLevelOfDescription = "levelOfDescriptionId"
	FieldStartDate          = "dates.startDate"
	FieldEndDate            = "dates.endDate"
	FieldHasDigitalObject   = "hasDigitalObject"
)

// Filters narrows a search. Zero values are not applied.
type Filters struct {
	Repository         string `json:"repository,omitempty"`
	LevelOfDescription string `json:"level_of_description,omitempty"`
	DateStart          string `json:"date_start,omitempty"`
	DateEnd            string `json:"date_end,omitempty"`
	HasDigitalObject   bool   `json:"has_digital_object,omitempty"`
}

// Page selects a window of results. Number starts at 1.
type Page struct {
	Number int
	Size   int
}

// Builder turns an expanded query into a search request.
type Builder struct {
	cfg config.SearchConfig
}

// NewBuilder validates the boosts and field lists and returns a Builder.
// Synonym matches must always score below matches of the original text.
func NewBuilder(cfg config.SearchConfig) (*Builder, error) {
	if cfg.BoostOriginal <= 0 {
		return nil, &config.ConfigurationError{Field: "search.boost_original", Reason: "must be positive"}
	}
	if cfg.BoostSynonyms <= 0 || cfg.BoostSynonyms >= cfg.BoostOriginal {
		return nil, &config.ConfigurationError{Field: "search.boost_synonyms", Reason: "must be positive and lower than boost_original"}
	}
	if len(cfg.MustFields) == 0 {
		return nil, &config.ConfigurationError{Field: "search.must_fields", Reason: "must not be empty"}
	}
	if len(cfg.ShouldFields) == 0 {
		cfg.ShouldFields = cfg.MustFields
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	return &Builder{cfg: cfg}, nil
}

// Build assembles the request. The original query is always a must
// clause. Each synonym of exp becomes an optional should clause with the
// lower synonym boost; without synonyms there is no should section.
func (b *Builder) Build(query string, exp *thesaurus.Expansion, f Filters, p Page) Request {
	var fuzziness any
	if b.cfg.FuzzyMatching {
		fuzziness = "AUTO"
	}

	bq := &types.BoolQuery{
		Must: []types.Query{multiMatch(query, b.cfg.MustFields, b.cfg.BoostOriginal, fuzziness)},
	}

	if exp.Expanded() {
		for _, syn := range exp.Synonyms() {
			bq.Should = append(bq.Should, multiMatch(syn, b.cfg.ShouldFields, b.cfg.BoostSynonyms, nil))
		}
		bq.MinimumShouldMatch = 0
	}

	bq.Filter = b.filters(f)

	size := p.Size
	if size <= 0 {
		size = b.cfg.PageSize
	}
	from := 0
	if p.Number > 1 {
		from = (p.Number - 1) * size
	}

	return Request{
		Query:     &types.Query{Bool: bq},
		Highlight: b.highlight(),
		From:      from,
		Size:      size,
	}
}

func (b *Builder) filters(f Filters) []types.Query {
	var out []types.Query
	if v := strings.TrimSpace(f.Repository); v != "" {
		out = append(out, termFilter(FieldRepository, v))
	}
	if v := strings.TrimSpace(f.LevelOfDescription); v != "" {
		out = append(out, termFilter(FieldLevelOfDescription, v))
	}
	if v := strings.TrimSpace(f.DateStart); v != "" {
		out = append(out, rangeFilter(FieldStartDate, "gte", v))
	}
	if v := strings.TrimSpace(f.DateEnd); v != "" {
		out = append(out, rangeFilter(FieldEndDate, "lte", v))
	}
	if f.HasDigitalObject {
		out = append(out, termFilter(FieldHasDigitalObject, true))
	}
	return out
}

func (b *Builder) highlight() *Highlight {
	if len(b.cfg.HighlightFields) == 0 {
		return nil
	}
	h := &Highlight{
		Fields:   make(map[string]HighlightField, len(b.cfg.HighlightFields)),
		PreTags:  []string{PreTag},
		PostTags: []string{PostTag},
	}
	for _, field := range b.cfg.HighlightFields {
		h.Fields[field] = HighlightField{FragmentSize: b.cfg.FragmentSize, NumberOfFragments: 3}
	}
	return h
}
