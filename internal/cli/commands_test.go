package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/vecsearch/internal/extract"
)

// writeConfig writes a config using the bolt backend and the hash embedder under a temp dir.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `storage:
  backend: bolt
  database_path: ` + filepath.Join(dir, "data", "vecsearch.db") + `
embedding:
  provider: hash
  dimensions: 64
collection:
  max_text_length: 128
index:
  metric: COSINE
  type: FLAT
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "vecsearch version test" {
		t.Errorf("version output = %q", out)
	}
}

func TestAddSearchStatusDrop(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "add", "Go has goroutines and channels", "Paris is the capital of France")
	if err != nil {
		t.Fatalf("add: %v (%s)", err, out)
	}
	if !strings.Contains(out, "2 sentences inserted") {
		t.Errorf("add output = %q", out)
	}

	out, err = run(t, "--config", cfg, "search", "-k", "1", "-o", "json", "Paris", "is", "the", "capital", "of", "France")
	if err != nil {
		t.Fatalf("search: %v (%s)", err, out)
	}
	var found struct {
		Matches []struct {
			Text  string  `json:"text"`
			Score float64 `json:"score"`
		} `json:"best_matches"`
	}
	if err := json.Unmarshal([]byte(out), &found); err != nil {
		t.Fatalf("search output is not JSON: %v\n%s", err, out)
	}
	if len(found.Matches) != 1 || found.Matches[0].Text != "Paris is the capital of France" {
		t.Errorf("matches = %+v", found.Matches)
	}

	out, err = run(t, "--config", cfg, "status", "-o", "json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var stats struct {
		Records    int    `json:"records"`
		IndexState string `json:"index_state"`
	}
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Records != 2 || stats.IndexState != "ready" {
		t.Errorf("stats = %+v", stats)
	}

	if _, err := run(t, "--config", cfg, "drop"); err == nil {
		t.Error("drop without --yes should fail")
	}
	if out, err = run(t, "--config", cfg, "drop", "--yes"); err != nil || !strings.Contains(out, "Collection dropped") {
		t.Errorf("drop: %v %q", err, out)
	}
}

func TestAdd_TooLongFails(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, "--config", cfg, "add", strings.Repeat("x", 129))
	if err == nil {
		t.Fatal("expected an error for a sentence over max_text_length")
	}
	if !strings.Contains(out, "payload_too_large") {
		t.Errorf("output = %q", out)
	}
}

func TestIngest(t *testing.T) {
	cfg := writeConfig(t)
	docs := t.TempDir()
	if err := os.WriteFile(filepath.Join(docs, "notes.md"), []byte("First fact. Second fact!\nThird fact"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docs, "image.png"), []byte{0x89, 'P', 'N', 'G'}, 0644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "--config", cfg, "ingest", "-q", docs)
	if err != nil {
		t.Fatalf("ingest: %v (%s)", err, out)
	}
	if !strings.Contains(out, "Ingested 1 file(s), 3 sentences added") {
		t.Errorf("ingest output = %q", out)
	}
}

func TestIndexBuild(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := run(t, "--config", cfg, "add", "alpha", "beta", "gamma", "delta"); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "--config", cfg, "index", "build", "--type", "IVF_FLAT", "--nlist", "2", "--metric", "L2")
	if err != nil {
		t.Fatalf("index build: %v", err)
	}
	if !strings.Contains(out, "Index ready: IVF_FLAT L2 (nlist=2)") {
		t.Errorf("index build output = %q", out)
	}
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.PDF", "c.bin", ".hidden/d.txt", "sub/e.md"} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := collectFiles([]string{dir}, extract.NewExtractor())
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range files {
		rel, _ := filepath.Rel(dir, f)
		names = append(names, filepath.ToSlash(rel))
	}
	want := []string{"a.txt", "b.PDF", "sub/e.md"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("files = %v, want %v", names, want)
	}
	if _, err := collectFiles([]string{filepath.Join(dir, "missing")}, extract.NewExtractor()); err == nil {
		t.Error("expected error for a missing path")
	}
}

func TestLoadConfig_ExplicitMissingFails(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing explicit config")
	}
}

func TestLoadConfig_DefaultFallsBackToBuiltins(t *testing.T) {
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		t.Skip("a system config exists")
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		t.Skip("a local config exists")
	}
	cfg, path, err := loadConfig(DefaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if path != "" || cfg.Collection.Name != "new_collection" || cfg.Server.Port != 4000 {
		t.Errorf("path=%q cfg=%+v", path, cfg.Collection)
	}
}
