package db

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTerm produces the match key for a term: NFC, lowercased, trimmed,
// with internal whitespace collapsed to single spaces. It is applied on both
// read and write paths.
func NormalizeTerm(text string) string {
	text = norm.NFC.String(text)
	// Casers carry state and must not be shared across goroutines.
	text = cases.Lower(language.Und).String(text)
	return strings.Join(strings.Fields(text), " ")
}
