package main_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func datamuse(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var body any = []any{}
		switch {
		case q.Get("rel_syn") == "record":
			body = []map[string]any{
				{"word": "document", "score": 90000},
				{"word": "file", "score": 80000},
				{"word": "disk", "score": 1000},
			}
		case q.Get("rel_trg") == "record":
			body = []map[string]any{{"word": "register", "score": 70000}}
		case q.Get("sp") != "":
			body = []map[string]any{{"word": q.Get("sp"), "score": 1, "defs": []string{"n\tan account preserved in writing"}}}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}))
}

func buildCLI(t *testing.T, dir string) string {
	t.Helper()
	bin := filepath.Join(dir, "thesaurus.bin")
	build := exec.Command("go", "build", "-o", bin, "github.com/japaniel/thesaurus/cmd/thesaurus")
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		t.Fatalf("failed to build CLI: %v", err)
	}
	return bin
}

func TestCLI_OfflineServer(t *testing.T) {
	tmp := t.TempDir()
	srv := datamuse(t)
	defer srv.Close()

	seeds := filepath.Join(tmp, "seeds.yaml")
	if err := os.WriteFile(seeds, []byte("lexical:\n  - name: archival\n    terms: [record, archival]\n"), 0644); err != nil {
		t.Fatalf("failed to write seeds: %v", err)
	}

	dbPath := filepath.Join(tmp, "thesaurus.db")
	bin := buildCLI(t, tmp)

	env := append(os.Environ(),
		"THESAURUS_DB="+dbPath,
		"THESAURUS_LEXICAL_URL="+srv.URL,
		"THESAURUS_RATE_LIMIT_DELAY_MS=0",
		"THESAURUS_LOG_LEVEL=warn",
	)
	run := func(args ...string) string {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		cmd := exec.CommandContext(ctx, bin, append([]string{"-c", filepath.Join(tmp, "missing.yaml")}, args...)...)
		cmd.Dir = tmp
		cmd.Env = env
		out, err := cmd.CombinedOutput()
		if ctx.Err() == context.DeadlineExceeded {
			t.Fatalf("cli timed out, output:\n%s", out)
		}
		if err != nil {
			t.Fatalf("cli %v failed: %v\noutput:\n%s", args, err, out)
		}
		return string(out)
	}

	out := run("sync", "lexical", "--seeds", seeds, "--set", "archival")
	if !strings.Contains(out, "lexical-api/archival: completed") {
		t.Fatalf("unexpected sync output:\n%s", out)
	}
	if !strings.Contains(out, "processed 2, added 2, updated 0, synonyms added 3") {
		t.Fatalf("unexpected sync counts:\n%s", out)
	}

	out = run("expand", "archival record")
	if !strings.Contains(out, "Expanded: archival record document file") {
		t.Fatalf("unexpected expansion:\n%s", out)
	}

	synFile := filepath.Join(tmp, "out", "synonyms.txt")
	run("export", "-o", synFile)
	data, err := os.ReadFile(synFile)
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	if !strings.Contains(string(data), "record => document, file\n") {
		t.Fatalf("unexpected synonym file:\n%s", data)
	}

	dbConn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer dbConn.Close()

	var status string
	if err := dbConn.QueryRow("SELECT status FROM thesaurus_sync_log ORDER BY id DESC LIMIT 1").Scan(&status); err != nil {
		t.Fatalf("db query failed: %v", err)
	}
	if status != "completed" {
		t.Fatalf("expected completed sync log, got %q", status)
	}
}

func TestCLI_FailedSyncStillWritesMetrics(t *testing.T) {
	tmp := t.TempDir()
	bin := buildCLI(t, tmp)
	metricsPath := filepath.Join(tmp, "sync.prom")

	cmd := exec.Command(bin,
		"-c", filepath.Join(tmp, "missing.yaml"),
		"--db", filepath.Join(tmp, "thesaurus.db"),
		"--metrics-file", metricsPath,
		"sync", "lexical", "--seeds", filepath.Join(tmp, "no-seeds.yaml"))
	cmd.Dir = tmp
	cmd.Env = append(os.Environ(), "THESAURUS_LOG_LEVEL=warn", "THESAURUS_SEEDS_URL=")
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected sync to fail with missing seeds, output:\n%s", out)
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file not written after failed sync: %v\noutput:\n%s", err, out)
	}
	want := `thesaurus_sync_runs_total{source="lexical-api",status="completed_with_errors"} 1`
	if !strings.Contains(string(data), want) {
		t.Fatalf("metrics file missing %q:\n%s", want, data)
	}
}
