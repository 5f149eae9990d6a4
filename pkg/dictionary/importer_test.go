package dictionary

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/thesaurus/pkg/db"
	"github.com/japaniel/thesaurus/pkg/ingest"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestImportDir(t *testing.T) {
	conn := setupDB(t)
	dir := t.TempDir()
	writeFile(t, dir, "archival.json", `{"terms": [
  {"term": "fonds", "preferred": true, "synonyms": ["record group", {"text": "archival fonds", "weight": 0.9}],
   "narrower": ["series"], "related": ["provenance"]},
  {"term": "finding aid", "synonyms": ["inventory", "Finding Aid"]}
]}`)
	writeFile(t, dir, "broken.json", `{"terms": [`)
	writeFile(t, dir, "museum.json", `[{"term": "artefact", "synonyms": ["artifact"]}]`)
	writeFile(t, dir, "notes.txt", `ignored`)

	im := NewImporter(ingest.NewRunner(conn, nil, nil))
	stats, err := im.ImportDir(context.Background(), dir, "")
	require.NoError(t, err)

	assert.Equal(t, db.StatusCompletedWithErrors, stats.Status)
	assert.Equal(t, 3, stats.Counts.TermsProcessed)
	assert.Equal(t, 3, stats.Counts.TermsAdded)
	assert.Equal(t, 6, stats.Counts.SynonymsAdded)
	require.Len(t, stats.Errors, 1)
	assert.Contains(t, stats.Errors[0], "broken.json")

	ctx := context.Background()
	fonds, err := db.FindTerm(ctx, conn, "fonds", db.SourceLocal, "en")
	require.NoError(t, err)
	require.NotNil(t, fonds)
	assert.Equal(t, "archival", fonds.Domain)
	assert.True(t, fonds.Preferred)

	syns, err := db.GetSynonyms(ctx, conn, fonds.ID, "", 0, 10)
	require.NoError(t, err)
	require.Len(t, syns, 4)
	assert.Equal(t, "record group", syns[0].Text)
	assert.Equal(t, 1.0, syns[0].Weight)
	assert.Equal(t, "archival fonds", syns[1].Text)
	assert.Equal(t, db.KindNarrower, syns[2].Kind)
	assert.Equal(t, 0.8, syns[2].Weight)
	assert.Equal(t, db.KindRelated, syns[3].Kind)

	artefact, err := db.FindTerm(ctx, conn, "artefact", db.SourceLocal, "en")
	require.NoError(t, err)
	require.NotNil(t, artefact)
	assert.Equal(t, "museum", artefact.Domain)
}

func TestImportDirDomainFilterAndRerun(t *testing.T) {
	conn := setupDB(t)
	dir := t.TempDir()
	writeFile(t, dir, "archival.json", `{"terms": [{"term": "fonds", "synonyms": ["record group"]}]}`)
	writeFile(t, dir, "museum.json", `{"terms": [{"term": "artefact", "synonyms": ["artifact"]}]}`)

	im := NewImporter(ingest.NewRunner(conn, nil, nil))
	first, err := im.ImportDir(context.Background(), dir, "museum")
	require.NoError(t, err)
	assert.Equal(t, db.StatusCompleted, first.Status)
	assert.Equal(t, 1, first.Counts.TermsProcessed)

	second, err := im.ImportDir(context.Background(), dir, "museum")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Counts.TermsAdded)
	assert.Equal(t, 1, second.Counts.TermsUpdated)
	assert.Equal(t, 0, second.Counts.SynonymsAdded)
}

func TestImportDirMissing(t *testing.T) {
	conn := setupDB(t)
	im := NewImporter(ingest.NewRunner(conn, nil, nil))

	stats, err := im.ImportDir(context.Background(), filepath.Join(t.TempDir(), "nope"), "")
	require.NoError(t, err)
	assert.Equal(t, db.StatusCompletedWithErrors, stats.Status)
	assert.Equal(t, 0, stats.Counts.TermsProcessed)
	assert.Contains(t, stats.Errors[0], "vocabulary directory not found")
}

func TestImportRepositoryVocabulary(t *testing.T) {
	conn := setupDB(t)
	im := NewImporter(ingest.NewRunner(conn, nil, nil))

	stats, err := im.ImportDir(context.Background(), "../../data/synonyms", "")
	require.NoError(t, err)
	assert.Equal(t, db.StatusCompleted, stats.Status, stats.Errors)
	assert.Greater(t, stats.Counts.TermsAdded, 0)
}
