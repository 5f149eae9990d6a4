package analysis

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"plain", "archival record", []string{"archival", "record"}},
		{"only stop words and short tokens", "the of it", nil},
		{"punctuation and separators", "Letters-patent_of the Crown!", []string{"Letters", "patent", "Crown"}},
		{"stop words ignore case", "THE Minutes AND Deeds", []string{"Minutes", "Deeds"}},
		{"non-latin letters kept", "Argiewe én dokumente", []string{"Argiewe", "dokumente"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestCandidateTerms(t *testing.T) {
	text := "Fonds and series. A fonds contains series; each series holds files. Files, files, files."
	got := CandidateTerms(nil, text, "en", 2)
	assert.Equal(t, []string{"files", "series"}, got)

	all := CandidateTerms(nil, "Accession 1998 accession", "en", 0)
	assert.Equal(t, []string{"accession"}, all)
}

func TestAnalyzerContentWords(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	tokens := a.Analyze("古い文書を保存する")
	require.NotEmpty(t, tokens)
	for _, tok := range tokens {
		require.NotEmpty(t, tok.PartsOfSpeech)
		assert.Equal(t, tok.PartsOfSpeech[0], tok.PrimaryPOS)
	}

	words := a.ContentWords("古い文書を保存する")
	assert.Contains(t, words, "文書")
	assert.Contains(t, words, "保存")
	assert.NotContains(t, words, "を")

	assert.Equal(t, words, Segment(a, "古い文書を保存する", "ja"))
	assert.Equal(t, []string{"archival", "record"}, Segment(a, "archival record", "en"))
}

func TestSanitizeRuby(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple ruby", "<ruby>漢字<rt>かんじ</rt></ruby>", "<ruby>漢字</ruby>"},
		{"ruby with rp", "<ruby>漢字<rp>(</rp><rt>かんじ</rt><rp>)</rp></ruby>", "<ruby>漢字</ruby>"},
		{"attributes in tags", "<ruby class='test'>漢字<rt class='reading'>かんじ</rt></ruby>", "<ruby class='test'>漢字</ruby>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(SanitizeRuby([]byte(tt.input))))
		})
	}
}

const glossaryPage = `<!DOCTYPE html>
<html><head><title>Archival Glossary</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Archival Glossary</h1>
<p>Provenance is the relationship between records and the organizations or individuals that created,
accumulated and maintained them. The principle of provenance requires that records of one creator are
not intermingled with the records of another creator.</p>
<p>A fonds is the whole of the records, regardless of form or medium, organically created and accumulated
by a particular person, family, or corporate body. Each fonds is arranged into series, files and items,
and the arrangement respects provenance and original order.</p>
<p>Appraisal is the process of determining whether records have sufficient value to be accessioned into
an archives. Accession registers document the transfer of custody of records.</p>
</article>
</body></html>`

func TestFetchArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "glossary-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(glossaryPage))
	}))
	defer srv.Close()

	article, err := FetchArticle(t.Context(), srv.Client(), srv.URL+"/glossary", "glossary-test")
	require.NoError(t, err)
	assert.Contains(t, article.Title, "Archival Glossary")
	assert.Contains(t, article.Text, "provenance")

	terms := CandidateTerms(nil, article.Text, "en", 3)
	assert.Equal(t, "records", terms[0])
}

func TestFetchArticleStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, err := FetchArticle(t.Context(), srv.Client(), srv.URL, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "410")
}

func TestExtractArticleStripsRuby(t *testing.T) {
	html := strings.Replace(glossaryPage, "<h1>Archival Glossary</h1>",
		"<h1>Archival Glossary</h1><p>目録 <ruby>文書<rt>ぶんしょ</rt></ruby> は記録の単位であり、目録は記録を説明するものです。</p>", 1)
	u, _ := url.Parse("http://localhost/glossary")
	article, err := ExtractArticle(strings.NewReader(html), u)
	require.NoError(t, err)
	assert.NotContains(t, article.Text, "ぶんしょ")
}
