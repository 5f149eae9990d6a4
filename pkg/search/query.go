// Package search builds Elasticsearch request bodies from expanded queries.
package search

import (
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

// Highlight tags wrapped around matched fragments.
const (
	PreTag  = "<mark>"
	PostTag = "</mark>"
)

// Highlight is the highlight section of a search body.
type Highlight struct {
	Fields   map[string]HighlightField `json:"fields"`
	PreTags  []string                  `json:"pre_tags,omitempty"`
	PostTags []string                  `json:"post_tags,omitempty"`
}

// HighlightField configures highlighting of one field.
type HighlightField struct {
	FragmentSize      int `json:"fragment_size,omitempty"`
	NumberOfFragments int `json:"number_of_fragments,omitempty"`
}

// Request is a search request body. Query is always a bool query whose
// must, should and filter clauses stay separate through a JSON round trip.
type Request struct {
	Query     *types.Query
	Highlight *Highlight
	From      int
	Size      int
}

type requestJSON struct {
	Query     *types.Query `json:"query,omitempty"`
	Highlight *Highlight   `json:"highlight,omitempty"`
	From      int          `json:"from"`
	Size      int          `json:"size"`
}

func (r Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(requestJSON(r))
}

func (r *Request) UnmarshalJSON(data []byte) error {
	var raw requestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode search request: %w", err)
	}
	if raw.Query != nil && raw.Query.Bool == nil {
		return fmt.Errorf("decode search request: query must be a bool query")
	}
	*r = Request(raw)
	return nil
}

// Bool returns the request's bool query, or nil.
func (r *Request) Bool() *types.BoolQuery {
	if r == nil || r.Query == nil {
		return nil
	}
	return r.Query.Bool
}

func multiMatch(text string, fields []string, boost float64, fuzziness any) types.Query {
	b := float32(boost)
	mm := &types.MultiMatchQuery{
		Query:  text,
		Fields: append([]string(nil), fields...),
		Boost:  &b,
	}
	if fuzziness != nil {
		mm.Fuzziness = fuzziness
	}
	return types.Query{MultiMatch: mm}
}

func termFilter(field string, value any) types.Query {
	return types.Query{
		Term: map[string]types.TermQuery{
			field: {Value: value},
		},
	}
}

func rangeFilter(field, op, value string) types.Query {
	r := types.DateRangeQuery{}
	switch op {
	case "gte":
		r.Gte = &value
	case "lte":
		r.Lte = &value
	}
	return types.Query{
		Range: map[string]types.RangeQuery{field: r},
	}
}
