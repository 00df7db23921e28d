package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) record(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func txtFilter(t *testing.T) *Filter {
	t.Helper()
	f, err := NewFilter([]string{"**/*.txt", "**/*.md"}, []string{"**/drafts/**"})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestFilter_Match(t *testing.T) {
	f := txtFilter(t)
	root := filepath.FromSlash("/inbox")
	tests := []struct {
		path string
		want bool
	}{
		{"/inbox/a.txt", true},
		{"/inbox/deep/nested/b.md", true},
		{"/inbox/REPORT.TXT", true},
		{"/inbox/image.png", false},
		{"/inbox/drafts/c.txt", false},
		{"/inbox/x/drafts/d.txt", false},
		{"/elsewhere/a.txt", false},
	}
	for _, tt := range tests {
		if got := f.Match(root, filepath.FromSlash(tt.path)); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	empty, _ := NewFilter(nil, nil)
	if !empty.Match(root, filepath.FromSlash("/inbox/anything.bin")) {
		t.Error("empty include should match every file")
	}
}

func TestNewFilter_InvalidPattern(t *testing.T) {
	if _, err := NewFilter([]string{"[unclosed"}, nil); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		if got := inDir(tt.dir, tt.path); got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(nil, txtFilter(t), true, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 || filepath.Clean(dirs[0]) != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}
	if err := w.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 0 {
		t.Errorf("after remove: %v", w.Directories())
	}
}

func TestWatcher_DebouncedCreateMatchesFilter(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	w := NewWatcher([]string{dir}, txtFilter(t), true, rec.record, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(sub, "f.txt"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "skip.png"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return len(rec.snapshot()) >= 1 }) {
		t.Fatal("expected a callback for f.txt")
	}
	time.Sleep(100 * time.Millisecond)
	for _, p := range rec.snapshot() {
		if !strings.HasSuffix(p, "f.txt") {
			t.Errorf("unexpected callback for %s", p)
		}
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"a.txt":            "hello",
		"ignore.xyz":       "x",
		"drafts/draft.txt": "not yet",
	} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	rec := &recorder{}
	w := NewWatcher([]string{dir}, txtFilter(t), true, rec.record)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.SyncExistingFiles()

	got := rec.snapshot()
	if len(got) != 1 || !strings.HasSuffix(got[0], "a.txt") {
		t.Errorf("expected only a.txt, got %v", got)
	}
}

func TestWatcher_StartCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	w := NewWatcher([]string{root}, nil, true, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_NewDirectoryFilesReported(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := NewWatcher([]string{dir}, txtFilter(t), true, rec.record, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	folder := filepath.Join(dir, "new-folder")
	if err := os.MkdirAll(folder, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"doc1.txt", "doc2.md", "ignore.xyz"} {
		if err := os.WriteFile(filepath.Join(folder, name), []byte("content"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	found := func() (txt, md bool) {
		for _, p := range rec.snapshot() {
			txt = txt || strings.HasSuffix(p, "doc1.txt")
			md = md || strings.HasSuffix(p, "doc2.md")
		}
		return txt, md
	}
	if !waitFor(t, func() bool { txt, md := found(); return txt && md }) {
		t.Errorf("expected doc1.txt and doc2.md, got %v", rec.snapshot())
	}
	for _, p := range rec.snapshot() {
		if strings.HasSuffix(p, "ignore.xyz") {
			t.Error("ignore.xyz should not be reported")
		}
	}
}
