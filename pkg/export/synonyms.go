// Package export writes the thesaurus as an Elasticsearch synonym file and
// generates the matching analyzer settings.
package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/japaniel/thesaurus/pkg/db"
)

// Options control which relations are exported.
type Options struct {
	Floor        float64
	PerTermLimit int
}

// Summary reports what WriteSynonymFile wrote.
type Summary struct {
	Terms    int `json:"terms"`
	Synonyms int `json:"synonyms"`
}

const header = `# Archival synonym file
# Format: term => synonym1, synonym2
# Generated from the thesaurus; edits are overwritten on the next export.
`

// WriteSynonymFile writes one "term => a, b" line per active term with
// active synonym relations at or above the floor. The output depends only
// on the store contents.
func WriteSynonymFile(ctx context.Context, exec db.DBExecutor, w io.Writer, opts Options) (Summary, error) {
	groups, err := db.ActiveSynonymMap(ctx, exec, db.KindSynonym, opts.Floor, opts.PerTermLimit)
	if err != nil {
		return Summary{}, fmt.Errorf("load synonyms: %w", err)
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(header); err != nil {
		return Summary{}, err
	}
	if _, err := fmt.Fprintf(bw, "# Weight floor: %.2f\n\n", opts.Floor); err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, g := range groups {
		syns := make([]string, 0, len(g.Synonyms))
		for _, s := range g.Synonyms {
			if s = clean(s); s != "" {
				syns = append(syns, s)
			}
		}
		term := clean(g.Term)
		if term == "" || len(syns) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%s => %s\n", term, strings.Join(syns, ", ")); err != nil {
			return Summary{}, err
		}
		sum.Terms++
		sum.Synonyms += len(syns)
	}
	if err := bw.Flush(); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

// clean strips characters with meaning in the synonym file format.
func clean(s string) string {
	s = strings.NewReplacer(",", " ", "=>", " ", "\n", " ", "\r", " ", "#", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Rule is one parsed line of a synonym file.
type Rule struct {
	Term     string
	Synonyms []string
}

// ParseSynonymFile reads rules written by WriteSynonymFile. Blank lines
// and comments are skipped.
func ParseSynonymFile(r io.Reader) ([]Rule, error) {
	var rules []Rule
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		lhs, rhs, ok := strings.Cut(text, "=>")
		if !ok {
			return nil, fmt.Errorf("line %d: missing =>", line)
		}
		rule := Rule{Term: strings.TrimSpace(lhs)}
		for _, s := range strings.Split(rhs, ",") {
			if s = strings.TrimSpace(s); s != "" {
				rule.Synonyms = append(rule.Synonyms, s)
			}
		}
		if rule.Term == "" || len(rule.Synonyms) == 0 {
			return nil, fmt.Errorf("line %d: empty term or synonym list", line)
		}
		rules = append(rules, rule)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}
