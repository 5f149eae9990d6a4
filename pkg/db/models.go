package db

import "time"

// Term sources.
const (
	SourceLexical = "lexical-api"
	SourceGraph   = "knowledge-graph"
	SourceLocal   = "local-curated"
)

// Domains used to scope term relevance.
const (
	DomainArchival = "archival"
	DomainLibrary  = "library"
	DomainMuseum   = "museum"
	DomainGeneral  = "general"
)

// Kind is the relationship type of a synonym relation.
type Kind string

const (
	KindSynonym  Kind = "synonym"
	KindBroader  Kind = "broader"
	KindNarrower Kind = "narrower"
	KindRelated  Kind = "related"
	KindUseFor   Kind = "use_for"
)

// Valid reports whether k is one of the known relationship kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSynonym, KindBroader, KindNarrower, KindRelated, KindUseFor:
		return true
	}
	return false
}

// Bidirectional reports whether relations of this kind may be used in
// reverse lookups.
func (k Kind) Bidirectional() bool {
	return k == KindSynonym || k == KindRelated
}

// Sync log statuses.
const (
	StatusPending             = "pending"
	StatusRunning             = "running"
	StatusCompleted           = "completed"
	StatusCompletedWithErrors = "completed_with_errors"
	StatusFailed              = "failed"
)

// Term is a canonical vocabulary entry.
type Term struct {
	ID             int64     `json:"id"`
	Text           string    `json:"term"`
	NormalizedText string    `json:"normalized_term"`
	Language       string    `json:"language"`
	Source         string    `json:"source"`
	SourceRef      string    `json:"source_ref,omitempty"`
	Domain         string    `json:"domain"`
	Definition     string    `json:"definition,omitempty"`
	PartOfSpeech   string    `json:"pos,omitempty"`
	Preferred      bool      `json:"is_preferred"`
	Active         bool      `json:"is_active"`
	Frequency      int64     `json:"frequency"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TermInput holds the fields written by UpsertTerm.
type TermInput struct {
	Text         string
	Source       string
	Language     string
	Domain       string
	SourceRef    string
	Definition   string
	PartOfSpeech string
	Preferred    bool
}

// Synonym is a weighted, typed edge from a term to related text.
type Synonym struct {
	ID             int64     `json:"id"`
	TermID         int64     `json:"term_id"`
	Text           string    `json:"synonym_text"`
	NormalizedText string    `json:"normalized_synonym"`
	SynonymTermID  int64     `json:"synonym_term_id,omitempty"`
	Kind           Kind      `json:"relationship_type"`
	Weight         float64   `json:"weight"`
	Source         string    `json:"source"`
	Bidirectional  bool      `json:"is_bidirectional"`
	Active         bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SynonymInput holds the fields written by UpsertSynonym.
type SynonymInput struct {
	TermID        int64
	Text          string
	Source        string
	Kind          Kind
	Weight        float64
	SynonymTermID int64
}

// ReverseMatch is a bidirectional relation found by its target text,
// reported from the point of view of the relation's source term.
type ReverseMatch struct {
	TermText string
	Weight   float64
	Kind     Kind
	Source   string
}

// SyncLog is one audit record of a sync run.
type SyncLog struct {
	ID             int64      `json:"id"`
	RunID          string     `json:"run_id"`
	Source         string     `json:"source"`
	SyncType       string     `json:"sync_type"`
	Status         string     `json:"status"`
	TermsProcessed int        `json:"terms_processed"`
	TermsAdded     int        `json:"terms_added"`
	TermsUpdated   int        `json:"terms_updated"`
	SynonymsAdded  int        `json:"synonyms_added"`
	Errors         []string   `json:"errors,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// SyncCounts are the aggregate counts written when a run completes.
type SyncCounts struct {
	TermsProcessed int
	TermsAdded     int
	TermsUpdated   int
	SynonymsAdded  int
}
