// Package analysis segments query and glossary text into terms.
//
// Latin-script text is split with a punctuation-stripping tokenizer and a
// stop-word list. Japanese text is segmented morphologically with kagome
// and filtered to content words.
package analysis

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Token represents a single morpheme of Japanese text.
type Token struct {
	Surface       string   // The text as it appears (e.g. "保存し")
	BaseForm      string   // The dictionary form (e.g. "保存する")
	Reading       string   // katakana reading
	PartsOfSpeech []string // e.g. ["名詞", "一般", "*", "*"] (IPA POS labels)
	// PrimaryPOS stores the first (primary) part of speech if available.
	PrimaryPOS string
}

// Analyzer handles Japanese segmentation. It is safe for concurrent use.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a tokenizer backed by the IPA dictionary.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Analyze breaks text into tokens with readings and base forms.
func (a *Analyzer) Analyze(text string) []Token {
	var result []Token
	for _, token := range a.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}

		// IPA features: 0-3 POS, 4-5 conjugation, 6 base form, 7 reading.
		features := token.Features()

		base := token.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}
		primaryPOS := ""
		if len(features) > 0 {
			primaryPOS = features[0]
		}

		result = append(result, Token{
			Surface:       token.Surface,
			BaseForm:      base,
			Reading:       reading,
			PartsOfSpeech: features,
			PrimaryPOS:    primaryPOS,
		})
	}
	return result
}

// ContentWords returns the base forms of the nouns, independent verbs and
// adjectives in text, in order of appearance.
func (a *Analyzer) ContentWords(text string) []string {
	var words []string
	for _, tok := range a.Analyze(text) {
		if isContentWord(tok) {
			words = append(words, tok.BaseForm)
		}
	}
	return words
}

func isContentWord(tok Token) bool {
	sub := ""
	if len(tok.PartsOfSpeech) > 1 {
		sub = tok.PartsOfSpeech[1]
	}
	switch tok.PrimaryPOS {
	case "名詞":
		switch sub {
		case "代名詞", "非自立", "数", "接尾", "副詞可能":
			return false
		}
		return true
	case "動詞", "形容詞":
		return sub == "自立" && tok.BaseForm != "する" && tok.BaseForm != "ある" && tok.BaseForm != "いる"
	}
	return false
}
