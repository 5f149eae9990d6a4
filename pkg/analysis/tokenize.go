package analysis

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinTokenLength is the shortest token, in runes, considered for expansion.
const MinTokenLength = 3

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true,
}

var (
	rePunct      = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_\s]`)
	reUnderscore = regexp.MustCompile(`[_-]+`)
)

// IsStopWord reports whether word is ignored by the tokenizer.
func IsStopWord(word string) bool {
	return stopWords[strings.ToLower(word)]
}

// Tokenize splits text on punctuation, underscores and whitespace and drops
// stop words and tokens shorter than MinTokenLength runes. Tokens keep their
// original case.
func Tokenize(text string) []string {
	text = rePunct.ReplaceAllString(text, " ")
	text = reUnderscore.ReplaceAllString(text, " ")

	var tokens []string
	for _, w := range strings.Fields(text) {
		if utf8.RuneCountInString(w) < MinTokenLength || IsStopWord(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// Segment returns the query tokens of text for a language. Japanese text
// goes through a; every other language uses Tokenize. A nil a falls back
// to Tokenize.
func Segment(a *Analyzer, text, language string) []string {
	if language == "ja" && a != nil {
		return a.ContentWords(text)
	}
	return Tokenize(text)
}

// CandidateTerms returns up to limit distinct lowercased terms from text,
// most frequent first and ties in order of first appearance.
func CandidateTerms(a *Analyzer, text, language string, limit int) []string {
	type cand struct {
		term  string
		count int
		first int
	}
	byTerm := map[string]*cand{}
	var order []*cand
	for i, tok := range Segment(a, text, language) {
		term := strings.ToLower(tok)
		if strings.IndexFunc(term, unicode.IsLetter) < 0 {
			continue
		}
		c, ok := byTerm[term]
		if !ok {
			c = &cand{term: term, first: i}
			byTerm[term] = c
			order = append(order, c)
		}
		c.count++
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	out := make([]string, len(order))
	for i, c := range order {
		out[i] = c.term
	}
	return out
}
