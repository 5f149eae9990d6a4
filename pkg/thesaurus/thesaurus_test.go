package thesaurus

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/thesaurus/pkg/config"
	"github.com/japaniel/thesaurus/pkg/db"
)

func setupThesaurus(t *testing.T, limit int) (*Thesaurus, *sql.DB) {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.InitDB(conn))

	cfg := config.ExpansionConfig{Enabled: true, Limit: limit, MinSynonymWeight: 0.6, Languages: []string{"en"}}
	return New(conn, cfg, nil, nil), conn
}

func addRelations(t *testing.T, conn *sql.DB, term string, kind db.Kind, syns map[string]float64) int64 {
	t.Helper()
	ctx := context.Background()
	id, _, err := db.UpsertTerm(ctx, conn, db.TermInput{Text: term, Source: db.SourceLexical, Language: "en", Domain: db.DomainArchival})
	require.NoError(t, err)
	for text, w := range syns {
		_, _, err := db.UpsertSynonym(ctx, conn, db.SynonymInput{TermID: id, Text: text, Source: db.SourceLexical, Kind: kind, Weight: w})
		require.NoError(t, err)
	}
	return id
}

func TestExpandQueryDeterministic(t *testing.T) {
	th, conn := setupThesaurus(t, 5)
	addRelations(t, conn, "record", db.KindSynonym, map[string]float64{"document": 0.9, "file": 0.8, "entry": 0.4})
	addRelations(t, conn, "file", db.KindSynonym, map[string]float64{"record": 0.7})

	for i := 0; i < 3; i++ {
		exp, err := th.ExpandQuery(context.Background(), "archival record", "en")
		require.NoError(t, err)
		assert.Equal(t, "archival record document file", exp.ExpandedQuery)
		assert.Equal(t, 2, exp.ExpansionCount)
		assert.Equal(t, []TermExpansion{{Token: "record", Synonyms: []string{"document", "file"}}}, exp.Terms)
		assert.Equal(t, "Search expanded: record (document, file)", exp.DisplayText())
	}
}

func TestExpandQueryStopWordsOnly(t *testing.T) {
	th, conn := setupThesaurus(t, 5)
	addRelations(t, conn, "the", db.KindSynonym, map[string]float64{"ye": 0.9})

	exp, err := th.ExpandQuery(context.Background(), "the of it", "en")
	require.NoError(t, err)
	assert.Equal(t, 0, exp.ExpansionCount)
	assert.Equal(t, "the of it", exp.ExpandedQuery)
	assert.Empty(t, exp.Terms)
	assert.False(t, exp.Expanded())
	assert.Equal(t, "", exp.DisplayText())
}

func TestSynonymsForTextReverse(t *testing.T) {
	th, conn := setupThesaurus(t, 5)
	addRelations(t, conn, "archive", db.KindSynonym, map[string]float64{"Repository": 0.8})
	addRelations(t, conn, "museum", db.KindBroader, map[string]float64{"repository": 0.9})

	got, err := th.SynonymsForText(context.Background(), "REPOSITORY", "en")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Match{Text: "archive", Weight: 0.8, Kind: db.KindSynonym, Source: db.SourceLexical, Reverse: true}, got[0])

	got, err = th.SynonymsForText(context.Background(), "repository", "af")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSynonymsForTextDirectWins(t *testing.T) {
	th, conn := setupThesaurus(t, 5)
	addRelations(t, conn, "record", db.KindSynonym, map[string]float64{"file": 0.8})
	addRelations(t, conn, "file", db.KindSynonym, map[string]float64{"record": 0.7, "dossier": 0.75})

	got, err := th.SynonymsForText(context.Background(), "file", "en")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "dossier", got[0].Text)
	assert.Equal(t, "record", got[1].Text)
	assert.InDelta(t, 0.7, got[1].Weight, 1e-9)
	assert.False(t, got[1].Reverse)
}

func TestSynonymsForTextLimitAndOrder(t *testing.T) {
	th, conn := setupThesaurus(t, 2)
	addRelations(t, conn, "photograph", db.KindSynonym, map[string]float64{"photo": 0.95, "picture": 0.7, "image": 0.85})

	got, err := th.SynonymsForText(context.Background(), "photograph", "en")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "photo", got[0].Text)
	assert.Equal(t, "image", got[1].Text)
}

func TestExpandQueryDedupesSynonyms(t *testing.T) {
	th, conn := setupThesaurus(t, 5)
	addRelations(t, conn, "letters", db.KindSynonym, map[string]float64{"correspondence": 0.9})
	addRelations(t, conn, "memos", db.KindSynonym, map[string]float64{"Correspondence": 0.8, "notes": 0.7})

	exp, err := th.ExpandQuery(context.Background(), "letters, memos", "en")
	require.NoError(t, err)
	assert.Equal(t, 2, exp.ExpansionCount)
	assert.Equal(t, "letters, memos correspondence notes", exp.ExpandedQuery)
	assert.Equal(t, "Search expanded: letters (correspondence); memos (Correspondence, notes)", exp.DisplayText())
}

func TestExpandQueryConcurrent(t *testing.T) {
	th, conn := setupThesaurus(t, 5)
	addRelations(t, conn, "record", db.KindSynonym, map[string]float64{"document": 0.9})

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exp, err := th.ExpandQuery(context.Background(), "record", "en")
			if err == nil && exp.ExpansionCount != 1 {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
