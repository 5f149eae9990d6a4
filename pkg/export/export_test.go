package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/thesaurus/pkg/db"
)

func setupStore(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	add := func(term string, syns map[string]float64, kind db.Kind) {
		id, _, err := db.UpsertTerm(ctx, conn, db.TermInput{Text: term, Source: db.SourceLexical, Language: "en"})
		require.NoError(t, err)
		for text, w := range syns {
			_, _, err := db.UpsertSynonym(ctx, conn, db.SynonymInput{TermID: id, Text: text, Source: db.SourceLexical, Kind: kind, Weight: w})
			require.NoError(t, err)
		}
	}
	add("record", map[string]float64{"document": 0.9, "file": 0.8, "entry": 0.3}, db.KindSynonym)
	add("archive", map[string]float64{"repository": 0.8, "depository": 0.8}, db.KindSynonym)
	add("fonds", map[string]float64{"collection": 0.9}, db.KindRelated)
	return conn
}

func TestWriteSynonymFile(t *testing.T) {
	conn := setupStore(t)
	var buf bytes.Buffer
	sum, err := WriteSynonymFile(context.Background(), conn, &buf, Options{Floor: 0.5, PerTermLimit: 10})
	require.NoError(t, err)
	assert.Equal(t, Summary{Terms: 2, Synonyms: 4}, sum)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Archival synonym file\n"))
	assert.Contains(t, out, "# Weight floor: 0.50\n")
	assert.True(t, strings.HasSuffix(out,
		"archive => depository, repository\n"+
			"record => document, file\n"), out)
	assert.NotContains(t, out, "entry")
	assert.NotContains(t, out, "fonds")
}

func TestWriteSynonymFileDeterministic(t *testing.T) {
	conn := setupStore(t)
	var first, second bytes.Buffer
	_, err := WriteSynonymFile(context.Background(), conn, &first, Options{Floor: 0.5, PerTermLimit: 10})
	require.NoError(t, err)
	_, err = WriteSynonymFile(context.Background(), conn, &second, Options{Floor: 0.5, PerTermLimit: 10})
	require.NoError(t, err)
	assert.Equal(t, first.String(), second.String())
}

func TestWriteSynonymFilePerTermLimit(t *testing.T) {
	conn := setupStore(t)
	var buf bytes.Buffer
	sum, err := WriteSynonymFile(context.Background(), conn, &buf, Options{Floor: 0.5, PerTermLimit: 1})
	require.NoError(t, err)
	assert.Equal(t, Summary{Terms: 2, Synonyms: 2}, sum)
	assert.Contains(t, buf.String(), "record => document\n")
}

func TestSynonymFileRoundTrip(t *testing.T) {
	conn := setupStore(t)
	var buf bytes.Buffer
	_, err := WriteSynonymFile(context.Background(), conn, &buf, Options{Floor: 0.5, PerTermLimit: 10})
	require.NoError(t, err)

	rules, err := ParseSynonymFile(&buf)
	require.NoError(t, err)
	assert.Equal(t, []Rule{
		{Term: "archive", Synonyms: []string{"depository", "repository"}},
		{Term: "record", Synonyms: []string{"document", "file"}},
	}, rules)
}

func TestParseSynonymFileErrors(t *testing.T) {
	_, err := ParseSynonymFile(strings.NewReader("# ok\nrecord document\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ParseSynonymFile(strings.NewReader("record => \n"))
	assert.Error(t, err)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "a b", clean("a,  b"))
	assert.Equal(t, "x y", clean("x => y"))
	assert.Equal(t, "", clean(" # "))
}

func TestAnalyzerConfig(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAnalyzerConfig(&buf, "synonyms/archival_synonyms.txt", Names{Filter: "archival_synonyms", Analyzer: "archival_synonym_analyzer"}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	analysis := got["analysis"].(map[string]any)

	filter := analysis["filter"].(map[string]any)["archival_synonyms"].(map[string]any)
	assert.Equal(t, "synonym", filter["type"])
	assert.Equal(t, "synonyms/archival_synonyms.txt", filter["synonyms_path"])
	assert.Equal(t, true, filter["updateable"])

	analyzer := analysis["analyzer"].(map[string]any)["archival_synonym_analyzer"].(map[string]any)
	assert.Equal(t, "standard", analyzer["tokenizer"])
	assert.Equal(t, []any{"lowercase", "archival_synonyms", "snowball"}, analyzer["filter"])
}
