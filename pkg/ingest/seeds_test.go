package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeeds(t *testing.T) {
	sf, err := ParseSeeds(strings.NewReader(`
lexical:
  - name: archival
    terms: [archive, " fonds ", ""]
  - name: south_african
    domain: general
    terms: [kraal]
graph:
  - id: Q2668072
    label: archive
  - id: Q7075
    label: library
    domain: library
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"archival", "south_african"}, sf.SetNames())

	set, ok := sf.Set("archival")
	require.True(t, ok)
	assert.Equal(t, "archival", set.Domain)
	assert.Equal(t, []string{"archive", "fonds"}, set.Terms)

	set, ok = sf.Set("south_african")
	require.True(t, ok)
	assert.Equal(t, "general", set.Domain)

	_, ok = sf.Set("missing")
	assert.False(t, ok)

	require.Len(t, sf.Graph, 2)
	assert.Equal(t, "archival", sf.Graph[0].Domain)
	assert.Equal(t, "library", sf.Graph[1].Domain)
}

func TestParseSeedsRejectsInvalid(t *testing.T) {
	for _, doc := range []string{
		"lexical:\n  - terms: [a]\n",
		"lexical:\n  - name: a\n  - name: a\n",
		"graph:\n  - id: 'wd:Q1'\n",
		"lexical: [",
	} {
		_, err := ParseSeeds(strings.NewReader(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoadSeedsFromRepository(t *testing.T) {
	sf, err := LoadSeeds("../../data/seeds.yaml")
	require.NoError(t, err)
	for _, name := range []string{"archival", "library", "museum", "general"} {
		set, ok := sf.Set(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, set.Terms)
	}
	assert.NotEmpty(t, sf.Graph)
}
