// Package dictionary imports curated vocabulary files into the thesaurus.
package dictionary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Default weights for curated relations without an explicit weight.
const (
	DefaultSynonymWeight  = 1.0
	DefaultRelationWeight = 0.8
)

// VocabularyTerm is one curated term with its relations.
type VocabularyTerm struct {
	Term       string         `json:"term"`
	Language   string         `json:"language"`
	Definition string         `json:"definition"`
	Preferred  bool           `json:"preferred"`
	Synonyms   []WeightedText `json:"synonyms"`
	Broader    []WeightedText `json:"broader"`
	Narrower   []WeightedText `json:"narrower"`
	Related    []WeightedText `json:"related"`
}

// WeightedText is a relation target written either as a plain string or
// as {"text": ..., "weight": ...}.
type WeightedText struct {
	Text   string   `json:"text"`
	Weight *float64 `json:"weight,omitempty"`
}

// WeightOr returns the explicit weight or def.
func (w WeightedText) WeightOr(def float64) float64 {
	if w.Weight != nil {
		return *w.Weight
	}
	return def
}

func (w *WeightedText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		w.Weight = nil
		return json.Unmarshal(data, &w.Text)
	}
	type plain WeightedText
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*w = WeightedText(p)
	return nil
}

// rawTerm lets bare strings in a term list be skipped instead of failing
// the whole file.
type rawTerm struct {
	VocabularyTerm
	skip bool
}

func (r *rawTerm) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		r.skip = true
		return nil
	}
	return json.Unmarshal(data, &r.VocabularyTerm)
}

// ParseVocabulary decodes a vocabulary document, either {"terms": [...]}
// or a bare array of terms. Entries without a term are dropped.
func ParseVocabulary(data []byte) ([]VocabularyTerm, error) {
	var raw []rawTerm

	var wrapper struct {
		Terms []rawTerm `json:"terms"`
	}
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '{':
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("failed to parse vocabulary object: %w", err)
		}
		raw = wrapper.Terms
	default:
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse vocabulary as object or array: %w", err)
		}
	}

	terms := make([]VocabularyTerm, 0, len(raw))
	for _, r := range raw {
		if r.skip || r.Term == "" {
			continue
		}
		terms = append(terms, r.VocabularyTerm)
	}
	return terms, nil
}

// LoadVocabulary reads a vocabulary file.
func LoadVocabulary(path string) ([]VocabularyTerm, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseVocabulary(data)
}
