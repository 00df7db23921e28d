package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/vecsearch/internal/models"
)

// FlatIndex is an exact brute-force index. Every query scores every entry.
type FlatIndex struct {
	metric     models.Metric
	dimensions int
	seqs       []int64
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty flat index for vectors of the given dimension.
func NewFlatIndex(metric models.Metric, dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if _, err := models.ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	return &FlatIndex{
		metric:     metric,
		dimensions: dimensions,
		seqs:       make([]int64, 0),
		vectors:    make([][]float32, 0),
	}, nil
}

// Params returns the index parameters.
func (f *FlatIndex) Params() models.IndexParams {
	return models.IndexParams{Metric: f.metric, IndexType: models.IndexFlat}
}

// Dimensions returns the vector dimension.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Build replaces the index contents with entries.
func (f *FlatIndex) Build(ctx context.Context, entries []Entry) error {
	seqs, vecs, err := f.prepareEntries(entries)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seqs = seqs
	f.vectors = vecs
	return nil
}

// Add appends entries. Either all entries are added or none.
func (f *FlatIndex) Add(entries []Entry) error {
	seqs, vecs, err := f.prepareEntries(entries)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seqs = append(f.seqs, seqs...)
	f.vectors = append(f.vectors, vecs...)
	return nil
}

func (f *FlatIndex) prepareEntries(entries []Entry) ([]int64, [][]float32, error) {
	seqs := make([]int64, len(entries))
	vecs := make([][]float32, len(entries))
	for i, e := range entries {
		if len(e.Vector) != f.dimensions {
			return nil, nil, fmt.Errorf("%w: got %d, expected %d", models.ErrDimensionMismatch, len(e.Vector), f.dimensions)
		}
		seqs[i] = e.Seq
		vecs[i] = prepare(f.metric, e.Vector)
	}
	return seqs, vecs, nil
}

// Search returns the exact top-k entries. nprobe is ignored.
func (f *FlatIndex) Search(query []float32, k, _ int) ([]Candidate, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", models.ErrDimensionMismatch, len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.seqs) == 0 {
		return nil, nil
	}
	q := prepare(f.metric, query)
	top := newTopK(f.metric, k, len(f.vectors))
	for i, vec := range f.vectors {
		top.offer(Candidate{Seq: f.seqs[i], Score: scorePrepared(f.metric, q, vec)})
	}
	return top.sorted(), nil
}

// Size returns the number of entries in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.seqs)
}

// MarshalBinary encodes the index.
func (f *FlatIndex) MarshalBinary() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	w := newSnapshotWriter(f.Params(), f.dimensions)
	w.writeList(f.seqs, f.vectors)
	return w.bytes()
}

// UnmarshalBinary replaces the index contents with a snapshot produced by MarshalBinary.
func (f *FlatIndex) UnmarshalBinary(data []byte) error {
	r, err := newSnapshotReader(data, f.Params(), f.dimensions)
	if err != nil {
		return err
	}
	seqs, vecs, err := r.readList()
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seqs = seqs
	f.vectors = vecs
	return nil
}
