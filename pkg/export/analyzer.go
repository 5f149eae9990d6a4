package export

import (
	"encoding/json"
	"io"
)

// Names of the generated filter and analyzer.
type Names struct {
	Filter   string
	Analyzer string
}

// AnalyzerConfig returns index settings that load the synonym file at
// path into an updateable synonym filter and an analyzer using it.
func AnalyzerConfig(path string, names Names) map[string]any {
	return map[string]any{
		"analysis": map[string]any{
			"filter": map[string]any{
				names.Filter: map[string]any{
					"type":          "synonym",
					"synonyms_path": path,
					"updateable":    true,
				},
			},
			"analyzer": map[string]any{
				names.Analyzer: map[string]any{
					"tokenizer": "standard",
					"filter":    []string{"lowercase", names.Filter, "snowball"},
				},
			},
		},
	}
}

// WriteAnalyzerConfig writes AnalyzerConfig as indented JSON.
func WriteAnalyzerConfig(w io.Writer, path string, names Names) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(AnalyzerConfig(path, names))
}
