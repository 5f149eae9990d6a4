package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the thesaurus tools.
// Configuration can come from a YAML file or environment variables.
// Environment variables always override YAML values.
type Config struct {
	DatabasePath string `yaml:"database_path" env:"THESAURUS_DB" env-default:"thesaurus.db"`
	LogLevel     string `yaml:"log_level" env:"THESAURUS_LOG_LEVEL" env-default:"info"`
	LogFormat    string `yaml:"log_format" env:"THESAURUS_LOG_FORMAT" env-default:"console"`

	Expansion ExpansionConfig `yaml:"expansion"`
	Sync      SyncConfig      `yaml:"sync"`
	Search    SearchConfig    `yaml:"search"`
	Export    ExportConfig    `yaml:"export"`
}

// ExpansionConfig controls runtime query expansion.
type ExpansionConfig struct {
	Enabled          bool    `yaml:"enabled" env:"THESAURUS_EXPANSION_ENABLED"`
	Limit            int     `yaml:"expansion_limit" env:"THESAURUS_EXPANSION_LIMIT" env-default:"5"`
	MinSynonymWeight float64 `yaml:"min_synonym_weight" env:"THESAURUS_MIN_SYNONYM_WEIGHT"`
	// Languages lists the supported languages; the first is the default.
	Languages []string `yaml:"languages" env:"THESAURUS_LANGUAGES" env-default:"en,af,zu,xh"`
}

// SyncConfig controls the external source adapters.
type SyncConfig struct {
	RateLimitDelayMs      int    `yaml:"rate_limit_delay_ms" env:"THESAURUS_RATE_LIMIT_DELAY_MS"`
	GraphRateLimitDelayMs int    `yaml:"graph_rate_limit_delay_ms" env:"THESAURUS_GRAPH_RATE_LIMIT_DELAY_MS"`
	RequestTimeoutS       int    `yaml:"request_timeout_s" env:"THESAURUS_REQUEST_TIMEOUT_S" env-default:"10"`
	GraphRequestTimeoutS  int    `yaml:"graph_request_timeout_s" env:"THESAURUS_GRAPH_REQUEST_TIMEOUT_S" env-default:"30"`
	LexicalBaseURL        string `yaml:"lexical_base_url" env:"THESAURUS_LEXICAL_URL" env-default:"https://api.datamuse.com"`
	SPARQLEndpoint        string `yaml:"sparql_endpoint" env:"THESAURUS_SPARQL_ENDPOINT" env-default:"https://query.wikidata.org/sparql"`
	UserAgent             string `yaml:"user_agent" env:"THESAURUS_USER_AGENT" env-default:"thesaurus-sync/1.0 (archival search)"`

	MaxSynonymsPerTerm int     `yaml:"max_synonyms_per_term" env:"THESAURUS_MAX_SYNONYMS" env-default:"10"`
	MaxRelated         int     `yaml:"max_related" env:"THESAURUS_MAX_RELATED"`
	MinScore           float64 `yaml:"min_score" env:"THESAURUS_MIN_SCORE"`
	ScoreScale         float64 `yaml:"score_scale" env:"THESAURUS_SCORE_SCALE" env-default:"100000"`
	WeightFloor        float64 `yaml:"weight_floor" env:"THESAURUS_WEIGHT_FLOOR"`
	WeightSpan         float64 `yaml:"weight_span" env:"THESAURUS_WEIGHT_SPAN"`
	RelatedDiscount    float64 `yaml:"related_discount" env:"THESAURUS_RELATED_DISCOUNT"`
	AliasWeight        float64 `yaml:"alias_weight" env:"THESAURUS_ALIAS_WEIGHT"`
	TranslationWeight  float64 `yaml:"translation_weight" env:"THESAURUS_TRANSLATION_WEIGHT"`
	MaxGraphResults    int     `yaml:"max_graph_results" env:"THESAURUS_MAX_GRAPH_RESULTS" env-default:"100"`

	SeedsPath     string `yaml:"seeds_path" env:"THESAURUS_SEEDS_PATH" env-default:"data/seeds.yaml"`
	SeedsURL      string `yaml:"seeds_url" env:"THESAURUS_SEEDS_URL" env-default:""` // downloaded when SeedsPath is missing
	VocabularyDir string `yaml:"vocabulary_dir" env:"THESAURUS_VOCABULARY_DIR" env-default:"data/synonyms"`
}

// SearchConfig controls the Elasticsearch request builder.
type SearchConfig struct {
	FuzzyMatching   bool     `yaml:"fuzzy_matching_enabled" env:"THESAURUS_FUZZY_MATCHING"`
	BoostOriginal   float64  `yaml:"boost_original" env:"THESAURUS_BOOST_ORIGINAL" env-default:"1.0"`
	BoostSynonyms   float64  `yaml:"boost_synonyms" env:"THESAURUS_BOOST_SYNONYMS" env-default:"0.8"`
	MustFields      []string `yaml:"must_fields" env:"THESAURUS_MUST_FIELDS" env-default:"i18n.*.title^3,i18n.*.scopeAndContent^2,i18n.*.extent,i18n.*.archivalHistory,creators.i18n.*.authorizedFormOfName^2,names.i18n.*.authorizedFormOfName,subjects.i18n.*.name,places.i18n.*.name"`
	ShouldFields    []string `yaml:"should_fields" env:"THESAURUS_SHOULD_FIELDS" env-default:"i18n.*.title^2,i18n.*.scopeAndContent,i18n.*.extent,creators.i18n.*.authorizedFormOfName,subjects.i18n.*.name"`
	HighlightFields []string `yaml:"highlight_fields" env:"THESAURUS_HIGHLIGHT_FIELDS" env-default:"i18n.*.title,i18n.*.scopeAndContent"`
	FragmentSize    int      `yaml:"fragment_size" env:"THESAURUS_FRAGMENT_SIZE" env-default:"200"`
	PageSize        int      `yaml:"page_size" env:"THESAURUS_PAGE_SIZE" env-default:"20"`
	LogSearches     bool     `yaml:"log_searches" env:"THESAURUS_LOG_SEARCHES"`
}

// ExportConfig controls the synonym file and analyzer settings.
type ExportConfig struct {
	SynonymsPath string  `yaml:"synonyms_path" env:"THESAURUS_SYNONYMS_PATH" env-default:"synonyms/archival_synonyms.txt"`
	WeightFloor  float64 `yaml:"weight_floor" env:"THESAURUS_EXPORT_WEIGHT_FLOOR"`
	PerTermLimit int     `yaml:"per_term_limit" env:"THESAURUS_EXPORT_PER_TERM_LIMIT" env-default:"10"`
	FilterName   string  `yaml:"filter_name" env:"THESAURUS_FILTER_NAME" env-default:"archival_synonyms"`
	AnalyzerName string  `yaml:"analyzer_name" env:"THESAURUS_ANALYZER_NAME" env-default:"archival_synonym_analyzer"`
}

// ConfigurationError reports an invalid configuration value.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// newConfig returns a Config holding the defaults of fields for which zero
// or false is a valid setting. cleanenv re-applies env-default tags to any
// field left at its zero value, so these defaults are set before reading.
func newConfig() *Config {
	return &Config{
		Expansion: ExpansionConfig{
			Enabled:          true,
			MinSynonymWeight: 0.6,
		},
		Sync: SyncConfig{
			RateLimitDelayMs:      100,
			GraphRateLimitDelayMs: 500,
			MaxRelated:            5,
			MinScore:              50000,
			WeightFloor:           0.5,
			WeightSpan:            0.5,
			RelatedDiscount:       0.8,
			AliasWeight:           0.9,
			TranslationWeight:     0.7,
		},
		Search: SearchConfig{
			FuzzyMatching: true,
			LogSearches:   true,
		},
		Export: ExportConfig{
			WeightFloor: 0.5,
		},
	}
}

// Load reads configuration from path with environment variable overrides.
// A missing file is not an error; defaults and the environment apply.
func Load(path string) (*Config, error) {
	cfg := newConfig()

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				return nil, &ConfigurationError{Field: path, Reason: "failed to read config file", Err: err}
			}
			return cfg, cfg.Validate()
		case !errors.Is(err, fs.ErrNotExist):
			return nil, &ConfigurationError{Field: path, Reason: "failed to stat config file", Err: err}
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, &ConfigurationError{Field: "env", Reason: "failed to read environment", Err: err}
	}
	return cfg, cfg.Validate()
}

// Default returns the configuration built from defaults and the environment.
func Default() *Config {
	cfg := newConfig()
	_ = cleanenv.ReadEnv(cfg)
	return cfg
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	checks := []struct {
		ok     bool
		field  string
		reason string
	}{
		{c.DatabasePath != "", "database_path", "must be set"},
		{c.Expansion.Limit > 0, "expansion.expansion_limit", "must be positive"},
		{inUnit(c.Expansion.MinSynonymWeight), "expansion.min_synonym_weight", "must be within [0, 1]"},
		{len(c.Expansion.Languages) > 0, "expansion.languages", "must list at least one language"},
		{c.Sync.RateLimitDelayMs >= 0, "sync.rate_limit_delay_ms", "must not be negative"},
		{c.Sync.GraphRateLimitDelayMs >= 0, "sync.graph_rate_limit_delay_ms", "must not be negative"},
		{c.Sync.RequestTimeoutS > 0, "sync.request_timeout_s", "must be positive"},
		{c.Sync.GraphRequestTimeoutS > 0, "sync.graph_request_timeout_s", "must be positive"},
		{c.Sync.MaxSynonymsPerTerm > 0, "sync.max_synonyms_per_term", "must be positive"},
		{c.Sync.MaxRelated >= 0, "sync.max_related", "must not be negative"},
		{c.Sync.ScoreScale > 0, "sync.score_scale", "must be positive"},
		{inUnit(c.Sync.WeightFloor) && c.Sync.WeightSpan >= 0 && c.Sync.WeightFloor+c.Sync.WeightSpan <= 1,
			"sync.weight_floor", "weight_floor + weight_span must stay within [0, 1]"},
		{inUnit(c.Sync.RelatedDiscount), "sync.related_discount", "must be within [0, 1]"},
		{inUnit(c.Sync.AliasWeight), "sync.alias_weight", "must be within [0, 1]"},
		{inUnit(c.Sync.TranslationWeight), "sync.translation_weight", "must be within [0, 1]"},
		{c.Sync.MaxGraphResults > 0, "sync.max_graph_results", "must be positive"},
		{c.Search.BoostOriginal > 0, "search.boost_original", "must be positive"},
		{c.Search.BoostSynonyms > 0 && c.Search.BoostSynonyms < c.Search.BoostOriginal,
			"search.boost_synonyms", "must be positive and lower than boost_original"},
		{len(c.Search.MustFields) > 0, "search.must_fields", "must list at least one field"},
		{c.Search.PageSize > 0, "search.page_size", "must be positive"},
		{inUnit(c.Export.WeightFloor), "export.weight_floor", "must be within [0, 1]"},
		{c.Export.PerTermLimit > 0, "export.per_term_limit", "must be positive"},
	}
	for _, ch := range checks {
		if !ch.ok {
			return &ConfigurationError{Field: ch.field, Reason: ch.reason}
		}
	}
	return nil
}

// DefaultLanguage is the first configured language.
func (c *Config) DefaultLanguage() string {
	if len(c.Expansion.Languages) == 0 {
		return "en"
	}
	return c.Expansion.Languages[0]
}

// SupportsLanguage reports whether lang is one of the configured languages.
func (c *Config) SupportsLanguage(lang string) bool {
	for _, l := range c.Expansion.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// RateLimitDelay is the pause between lexical API calls.
func (s SyncConfig) RateLimitDelay() time.Duration {
	return time.Duration(s.RateLimitDelayMs) * time.Millisecond
}

// GraphRateLimitDelay is the pause between SPARQL calls.
func (s SyncConfig) GraphRateLimitDelay() time.Duration {
	return time.Duration(s.GraphRateLimitDelayMs) * time.Millisecond
}

func (s SyncConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutS) * time.Second
}

func (s SyncConfig) GraphRequestTimeout() time.Duration {
	return time.Duration(s.GraphRequestTimeoutS) * time.Second
}

// Write dumps the effective configuration as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func inUnit(f float64) bool { return f >= 0 && f <= 1 }
