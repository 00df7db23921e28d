package collection

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/internal/storage"
	"github.com/hyperjump/vecsearch/internal/vector"
)

var testSchema = models.CollectionSchema{Name: "docs", Dimension: 3, MaxTextLength: 16}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(storage.NewMemoryBackend())
	t.Cleanup(func() { _ = s.Close() })
	if err := s.EnsureCollection(context.Background(), testSchema); err != nil {
		t.Fatal(err)
	}
	return s
}

func buildAndWait(t *testing.T, s *Store, params models.IndexParams) {
	t.Helper()
	ctx := context.Background()
	task, err := s.BuildIndex(ctx, testSchema.Name, params)
	if err != nil {
		t.Fatal(err)
	}
	if err := task.Wait(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}
}

var flatCosine = models.IndexParams{Metric: models.MetricCosine, IndexType: models.IndexFlat}

func TestEnsureCollection(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.EnsureCollection(ctx, testSchema); err != nil {
		t.Errorf("second ensure should be a no-op, got %v", err)
	}
	names, err := s.Collections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "docs" {
		t.Errorf("Collections = %v", names)
	}

	conflict := testSchema
	conflict.Dimension = 4
	if err := s.EnsureCollection(ctx, conflict); !errors.Is(err, models.ErrSchemaConflict) {
		t.Errorf("expected schema conflict, got %v", err)
	}
	if err := s.EnsureCollection(ctx, models.CollectionSchema{Name: "", Dimension: 3, MaxTextLength: 1}); !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestEnsureCollection_ConflictWithPersisted(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	_ = backend.CreateCollection(ctx, testSchema)

	s := NewStore(backend)
	defer s.Close()
	conflict := testSchema
	conflict.MaxTextLength = 99
	if err := s.EnsureCollection(ctx, conflict); !errors.Is(err, models.ErrSchemaConflict) {
		t.Errorf("expected schema conflict, got %v", err)
	}
	if err := s.EnsureCollection(ctx, testSchema); err != nil {
		t.Errorf("matching schema should load, got %v", err)
	}
}

func TestInsert_Validation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tests := []struct {
		name  string
		batch []models.NewRecord
		want  error
	}{
		{
			name: "wrong dimension",
			batch: []models.NewRecord{
				{Vector: []float32{1, 0, 0}, Text: "ok"},
				{Vector: []float32{1, 0}, Text: "short"},
			},
			want: models.ErrDimensionMismatch,
		},
		{
			name: "text too long",
			batch: []models.NewRecord{
				{Vector: []float32{1, 0, 0}, Text: "ok"},
				{Vector: []float32{0, 1, 0}, Text: strings.Repeat("é", 17)},
			},
			want: models.ErrPayloadTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.Insert(ctx, "docs", tt.batch)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if n != 0 {
				t.Errorf("count = %d, want 0", n)
			}
			stats, _ := s.Stats(ctx, "docs")
			if stats.Records != 0 {
				t.Errorf("failed batch should add nothing, have %d records", stats.Records)
			}
		})
	}

	n, err := s.Insert(ctx, "docs", []models.NewRecord{{Vector: []float32{1, 0, 0}, Text: strings.Repeat("é", 16)}})
	if err != nil || n != 1 {
		t.Errorf("text at the limit should insert, got %d, %v", n, err)
	}
	if n, err := s.Insert(ctx, "docs", nil); err != nil || n != 0 {
		t.Errorf("empty batch = %d, %v", n, err)
	}
	if _, err := s.Insert(ctx, "missing", []models.NewRecord{{Vector: []float32{1, 0, 0}}}); !errors.Is(err, models.ErrCollectionNotFound) {
		t.Errorf("expected collection not found, got %v", err)
	}
}

func TestInsert_AtomicOnDurableBackends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	sqlite, err := storage.NewSQLiteBackend(filepath.Join(dir, "vec.db"))
	if err != nil {
		t.Fatal(err)
	}
	bolt, err := storage.NewBoltBackend(filepath.Join(dir, "vec.bolt"))
	if err != nil {
		t.Fatal(err)
	}
	for name, backend := range map[string]storage.Backend{"sqlite": sqlite, "bolt": bolt} {
		t.Run(name, func(t *testing.T) {
			s := NewStore(backend)
			defer s.Close()
			if err := s.EnsureCollection(ctx, testSchema); err != nil {
				t.Fatal(err)
			}
			_, err := s.Insert(ctx, "docs", []models.NewRecord{
				{Vector: []float32{1, 0, 0}, Text: "a"},
				{Vector: []float32{1, 0, 0, 0}, Text: "b"},
				{Vector: []float32{0, 1, 0}, Text: "c"},
			})
			if !errors.Is(err, models.ErrDimensionMismatch) {
				t.Fatalf("expected dimension mismatch, got %v", err)
			}
			records, err := backend.LoadRecords(ctx, "docs")
			if err != nil {
				t.Fatal(err)
			}
			if len(records) != 0 {
				t.Errorf("expected 0 committed records, got %d", len(records))
			}
		})
	}
}

func TestSearch_Errors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _ = s.Insert(ctx, "docs", []models.NewRecord{{Vector: []float32{1, 0, 0}, Text: "a"}})

	q := []float32{1, 0, 0}
	if _, err := s.Search(ctx, "docs", q, models.SearchParams{K: 1}); !errors.Is(err, models.ErrIndexNotReady) {
		t.Errorf("expected index not ready, got %v", err)
	}
	if _, err := s.Search(ctx, "missing", q, models.SearchParams{K: 1}); !errors.Is(err, models.ErrCollectionNotFound) {
		t.Errorf("expected collection not found, got %v", err)
	}

	buildAndWait(t, s, flatCosine)

	if _, err := s.Search(ctx, "docs", q, models.SearchParams{K: 0}); !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := s.Search(ctx, "docs", []float32{1, 0}, models.SearchParams{K: 1}); !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
	_, err := s.Search(ctx, "docs", q, models.SearchParams{K: 1, Metric: models.MetricL2})
	if !errors.Is(err, models.ErrMetricMismatch) || models.KindOf(err) != models.KindEngine {
		t.Errorf("expected metric mismatch engine error, got %v", err)
	}
	if _, err := s.Search(ctx, "docs", q, models.SearchParams{K: 1, Metric: "cosine"}); err != nil {
		t.Errorf("matching metric should search, got %v", err)
	}
}

func TestSearch_ExactMatchRanksFirst(t *testing.T) {
	ctx := context.Background()
	for _, metric := range []models.Metric{models.MetricCosine, models.MetricIP, models.MetricL2} {
		t.Run(string(metric), func(t *testing.T) {
			s := newTestStore(t)
			_, err := s.Insert(ctx, "docs", []models.NewRecord{
				{Vector: []float32{0.1, 0.2, 0.9}, Text: "c"},
				{Vector: []float32{0.8, 0.1, 0.1}, Text: "a"},
				{Vector: []float32{0.2, 0.9, 0.1}, Text: "b"},
			})
			if err != nil {
				t.Fatal(err)
			}
			buildAndWait(t, s, models.IndexParams{Metric: metric, IndexType: models.IndexIVFFlat, NList: 2})

			hits, err := s.Search(ctx, "docs", []float32{0.8, 0.1, 0.1}, models.SearchParams{K: 3, NProbe: 2})
			if err != nil {
				t.Fatal(err)
			}
			if len(hits) != 3 || hits[0].Text != "a" {
				t.Fatalf("hits = %+v", hits)
			}
			switch metric {
			case models.MetricCosine:
				if math.Abs(hits[0].Score-1) > 1e-6 {
					t.Errorf("cosine self score = %f", hits[0].Score)
				}
			case models.MetricL2:
				if hits[0].Score > 1e-6 {
					t.Errorf("L2 self distance = %f", hits[0].Score)
				}
			}
			if hits[0].ID == "" || hits[0].Seq != 2 {
				t.Errorf("hit should carry id and seq, got %+v", hits[0])
			}
		})
	}
}

func TestSearch_TiesBySeq(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	batch := make([]models.NewRecord, 4)
	for i := range batch {
		batch[i] = models.NewRecord{Vector: []float32{0, 1, 0}, Text: string(rune('a' + i))}
	}
	_, _ = s.Insert(ctx, "docs", batch)
	buildAndWait(t, s, flatCosine)

	hits, err := s.Search(ctx, "docs", []float32{0, 2, 0}, models.SearchParams{K: 3})
	if err != nil {
		t.Fatal(err)
	}
	for i, h := range hits {
		if h.Seq != int64(i+1) {
			t.Errorf("rank %d has seq %d", i, h.Seq)
		}
	}
}

func TestInsert_AfterBuildIsSearchable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _ = s.Insert(ctx, "docs", []models.NewRecord{{Vector: []float32{1, 0, 0}, Text: "x"}})
	buildAndWait(t, s, models.IndexParams{Metric: models.MetricL2, IndexType: models.IndexIVFFlat})

	_, _ = s.Insert(ctx, "docs", []models.NewRecord{{Vector: []float32{0, 0, 1}, Text: "late"}})
	hits, err := s.Search(ctx, "docs", []float32{0, 0, 1}, models.SearchParams{K: 1, NProbe: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Text != "late" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestStore_ReloadFromBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vec.db")

	backend, err := storage.NewSQLiteBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore(backend)
	if err := s.EnsureCollection(ctx, testSchema); err != nil {
		t.Fatal(err)
	}
	_, _ = s.Insert(ctx, "docs", []models.NewRecord{
		{Vector: []float32{1, 0, 0}, Text: "first"},
		{Vector: []float32{0, 1, 0}, Text: "second"},
	})
	buildAndWait(t, s, flatCosine)
	_, _ = s.Insert(ctx, "docs", []models.NewRecord{{Vector: []float32{0, 0, 1}, Text: "after build"}})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	backend, err = storage.NewSQLiteBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	s = NewStore(backend)
	defer s.Close()
	if err := s.Load(ctx, "docs"); err != nil {
		t.Fatal(err)
	}
	if err := s.Load(ctx, "docs"); err != nil {
		t.Errorf("second load should be a no-op, got %v", err)
	}
	stats, err := s.Stats(ctx, "docs")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Records != 3 || stats.IndexState != models.IndexReady || stats.Index == nil || stats.Index.Metric != models.MetricCosine {
		t.Errorf("stats = %+v", stats)
	}
	hits, err := s.Search(ctx, "docs", []float32{0, 0, 1}, models.SearchParams{K: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Text != "after build" {
		t.Errorf("hits = %+v", hits)
	}

	_, _ = s.Insert(ctx, "docs", []models.NewRecord{{Vector: []float32{1, 1, 0}, Text: "fourth"}})
	stats, _ = s.Stats(ctx, "docs")
	if stats.Records != 4 {
		t.Errorf("records = %d, want 4", stats.Records)
	}
	if err := s.Load(ctx, "missing"); !errors.Is(err, models.ErrCollectionNotFound) {
		t.Errorf("expected collection not found, got %v", err)
	}
}

func TestBuildIndex_CancelKeepsPreviousIndex(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _ = s.Insert(ctx, "docs", []models.NewRecord{{Vector: []float32{1, 0, 0}, Text: "a"}})
	buildAndWait(t, s, flatCosine)

	c, _ := s.get(ctx, "docs")
	c.writeMu.Lock()
	task, err := s.BuildIndex(ctx, "docs", models.IndexParams{Metric: models.MetricL2, IndexType: models.IndexFlat})
	if err != nil {
		c.writeMu.Unlock()
		t.Fatal(err)
	}
	if stats, _ := s.Stats(ctx, "docs"); stats.IndexState != models.IndexBuilding {
		t.Errorf("state = %s, want building", stats.IndexState)
	}
	if _, err := s.Search(ctx, "docs", []float32{1, 0, 0}, models.SearchParams{K: 1}); err != nil {
		t.Errorf("previous index should serve during a build, got %v", err)
	}
	task.Cancel()
	c.writeMu.Unlock()

	if err := task.Wait(ctx); err == nil {
		t.Error("cancelled build should report an error")
	}
	stats, _ := s.Stats(ctx, "docs")
	if stats.IndexState != models.IndexFailed {
		t.Errorf("state = %s, want failed", stats.IndexState)
	}
	if stats.Index == nil || stats.Index.Metric != models.MetricCosine {
		t.Errorf("previous index should stay in service, got %+v", stats.Index)
	}
	if _, err := s.Search(ctx, "docs", []float32{1, 0, 0}, models.SearchParams{K: 1}); err != nil {
		t.Errorf("search after cancelled build: %v", err)
	}
}

func TestBuildIndex_NewerBuildSupersedes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _ = s.Insert(ctx, "docs", []models.NewRecord{{Vector: []float32{1, 0, 0}, Text: "a"}})

	c, _ := s.get(ctx, "docs")
	c.writeMu.Lock()
	first, _ := s.BuildIndex(ctx, "docs", flatCosine)
	second, _ := s.BuildIndex(ctx, "docs", models.IndexParams{Metric: models.MetricIP, IndexType: models.IndexFlat})
	c.writeMu.Unlock()

	if err := first.Wait(ctx); err == nil {
		t.Error("superseded build should report an error")
	}
	if err := second.Wait(ctx); err != nil {
		t.Fatalf("second build: %v", err)
	}
	stats, _ := s.Stats(ctx, "docs")
	if stats.IndexState != models.IndexReady || stats.Index.Metric != models.MetricIP {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBuildIndex_InvalidParams(t *testing.T) {
	s := newTestStore(t)
	_, err := s.BuildIndex(context.Background(), "docs", models.IndexParams{Metric: "HAMMING", IndexType: models.IndexFlat})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestStore_ConcurrentInsertSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	buildAndWait(t, s, flatCosine)

	const batchSize = 5
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				batch := make([]models.NewRecord, batchSize)
				for j := range batch {
					batch[j] = models.NewRecord{Vector: []float32{float32(w + 1), float32(i + 1), float32(j + 1)}, Text: "t"}
				}
				if _, err := s.Insert(ctx, "docs", batch); err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	done := make(chan struct{})
	var readers sync.WaitGroup
	for r := 0; r < 2; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				hits, err := s.Search(ctx, "docs", []float32{1, 1, 1}, models.SearchParams{K: 1000})
				if err != nil {
					t.Error(err)
					return
				}
				if len(hits)%batchSize != 0 {
					t.Errorf("observed a partial batch: %d hits", len(hits))
					return
				}
			}
		}()
	}
	wg.Wait()
	close(done)
	readers.Wait()

	stats, _ := s.Stats(ctx, "docs")
	if stats.Records != 4*20*batchSize {
		t.Errorf("records = %d", stats.Records)
	}
}

func TestDrop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _ = s.Insert(ctx, "docs", []models.NewRecord{{Vector: []float32{1, 0, 0}, Text: "a"}})
	if err := s.Drop(ctx, "docs"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Stats(ctx, "docs"); !errors.Is(err, models.ErrCollectionNotFound) {
		t.Errorf("expected collection not found after drop, got %v", err)
	}
	if err := s.Drop(ctx, "docs"); !errors.Is(err, models.ErrCollectionNotFound) {
		t.Errorf("expected collection not found, got %v", err)
	}
}

// rejectingIndex accepts a build and fails every later Add.
type rejectingIndex struct{ vector.Index }

func (rejectingIndex) Add([]vector.Entry) error { return errors.New("index full") }

func TestInsert_IndexAddFailureWithdrawsIndex(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _ = s.Insert(ctx, "docs", []models.NewRecord{{Vector: []float32{1, 0, 0}, Text: "kept"}})
	buildAndWait(t, s, flatCosine)

	c := s.collections["docs"]
	c.mu.Lock()
	c.index = rejectingIndex{c.index}
	c.mu.Unlock()

	n, err := s.Insert(ctx, "docs", []models.NewRecord{{Vector: []float32{0, 1, 0}, Text: "late"}})
	if err != nil || n != 1 {
		t.Fatalf("committed insert should report success: n=%d err=%v", n, err)
	}
	stats, _ := s.Stats(ctx, "docs")
	if stats.IndexState != models.IndexFailed || stats.Index != nil || stats.Records != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if _, err := s.Search(ctx, "docs", []float32{0, 1, 0}, models.SearchParams{K: 1}); !errors.Is(err, models.ErrIndexNotReady) {
		t.Errorf("search on withdrawn index: err = %v", err)
	}

	buildAndWait(t, s, flatCosine)
	hits, err := s.Search(ctx, "docs", []float32{0, 1, 0}, models.SearchParams{K: 1})
	if err != nil || len(hits) != 1 || hits[0].Text != "late" {
		t.Errorf("rebuilt index should cover every record: %+v, %v", hits, err)
	}
}

func TestSearch_HugeK(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _ = s.Insert(ctx, "docs", []models.NewRecord{
		{Vector: []float32{1, 0, 0}, Text: "a"},
		{Vector: []float32{0, 1, 0}, Text: "b"},
	})
	for _, params := range []models.IndexParams{flatCosine, {Metric: models.MetricCosine, IndexType: models.IndexIVFFlat, NList: 2}} {
		buildAndWait(t, s, params)
		hits, err := s.Search(ctx, "docs", []float32{1, 0, 0}, models.SearchParams{K: math.MaxInt, NProbe: 2})
		if err != nil || len(hits) != 2 || hits[0].Text != "a" {
			t.Errorf("%s: hits = %+v, err = %v", params.IndexType, hits, err)
		}
	}
}
