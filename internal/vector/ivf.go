package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/vecsearch/internal/models"
)

// postingList holds the entries assigned to one partition.
type postingList struct {
	seqs    []int64
	vectors [][]float32
}

// IVFIndex partitions entries into k-means clusters (inverted file, flat lists).
// A query scans the nprobe partitions whose centroids are closest to it. Scanning all
// partitions (nprobe >= nlist) gives the exact top-k; smaller nprobe trades recall for speed.
//
// Training needs at least nlist entries. Until then the index is untrained: entries sit in a
// single staging list that every query scans in full, and the Add that brings the size to
// nlist trains the partitions.
type IVFIndex struct {
	metric     models.Metric
	dimensions int
	nlist      int
	centroids  [][]float32
	lists      []postingList
	size       int
	mu         sync.RWMutex
}

// NewIVFIndex creates an untrained IVF index with up to nlist partitions.
func NewIVFIndex(metric models.Metric, dimensions, nlist int) (*IVFIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if nlist <= 0 {
		return nil, fmt.Errorf("%w: nlist must be positive, got %d", models.ErrValidation, nlist)
	}
	if _, err := models.ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	return &IVFIndex{metric: metric, dimensions: dimensions, nlist: nlist}, nil
}

// Params returns the index parameters.
func (x *IVFIndex) Params() models.IndexParams {
	return models.IndexParams{Metric: x.metric, IndexType: models.IndexIVFFlat, NList: x.nlist}
}

// Dimensions returns the vector dimension.
func (x *IVFIndex) Dimensions() int {
	return x.dimensions
}

// Partitions returns the number of trained partitions. It is 0 while the index holds fewer
// than nlist entries and nlist once trained.
func (x *IVFIndex) Partitions() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.centroids)
}

// Build trains centroids over entries and assigns every entry to its partition. With fewer
// than nlist entries the index stays untrained.
func (x *IVFIndex) Build(ctx context.Context, entries []Entry) error {
	seqs := make([]int64, len(entries))
	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		if len(e.Vector) != x.dimensions {
			return fmt.Errorf("%w: got %d, expected %d", models.ErrDimensionMismatch, len(e.Vector), x.dimensions)
		}
		seqs[i] = e.Seq
		vectors[i] = prepare(x.metric, e.Vector)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(entries) < x.nlist {
		x.mu.Lock()
		defer x.mu.Unlock()
		x.centroids = nil
		x.lists = []postingList{{seqs: seqs, vectors: vectors}}
		x.size = len(entries)
		return nil
	}
	centroids, lists, err := x.train(ctx, seqs, vectors)
	if err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.centroids = centroids
	x.lists = lists
	x.size = len(entries)
	return nil
}

// train clusters vectors into nlist partitions and assigns each one.
func (x *IVFIndex) train(ctx context.Context, seqs []int64, vectors [][]float32) ([][]float32, []postingList, error) {
	centroids, assign, err := trainKMeans(ctx, vectors, x.nlist)
	if err != nil {
		return nil, nil, err
	}
	lists := make([]postingList, len(centroids))
	for i, v := range vectors {
		l := &lists[assign[i]]
		l.seqs = append(l.seqs, seqs[i])
		l.vectors = append(l.vectors, v)
	}
	return centroids, lists, nil
}

// Add assigns entries to their nearest existing partition without retraining. On an
// untrained index entries are staged, and reaching nlist entries trains the partitions.
func (x *IVFIndex) Add(entries []Entry) error {
	prepared := make([][]float32, len(entries))
	for i, e := range entries {
		if len(e.Vector) != x.dimensions {
			return fmt.Errorf("%w: got %d, expected %d", models.ErrDimensionMismatch, len(e.Vector), x.dimensions)
		}
		prepared[i] = prepare(x.metric, e.Vector)
	}
	if len(entries) == 0 {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.centroids) > 0 {
		for i, e := range entries {
			c := nearestCentroid(x.centroids, prepared[i])
			x.lists[c].seqs = append(x.lists[c].seqs, e.Seq)
			x.lists[c].vectors = append(x.lists[c].vectors, prepared[i])
		}
		x.size += len(entries)
		return nil
	}

	if len(x.lists) == 0 {
		x.lists = make([]postingList, 1)
	}
	staged := &x.lists[0]
	for i, e := range entries {
		staged.seqs = append(staged.seqs, e.Seq)
		staged.vectors = append(staged.vectors, prepared[i])
	}
	x.size += len(entries)
	if x.size < x.nlist {
		return nil
	}
	centroids, lists, err := x.train(context.Background(), staged.seqs, staged.vectors)
	if err != nil {
		return err
	}
	x.centroids = centroids
	x.lists = lists
	return nil
}

// Search scans the nprobe closest partitions. nprobe <= 0 scans one; values above the
// partition count scan all of them.
func (x *IVFIndex) Search(query []float32, k, nprobe int) ([]Candidate, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", models.ErrDimensionMismatch, len(query), x.dimensions)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if k <= 0 || x.size == 0 {
		return nil, nil
	}
	q := prepare(x.metric, query)
	top := newTopK(x.metric, k, x.size)
	probe := x.probeOrder(q, nprobe)
	if len(x.centroids) == 0 {
		probe = []int{0}
	}
	for _, c := range probe {
		l := x.lists[c]
		for i, vec := range l.vectors {
			top.offer(Candidate{Seq: l.seqs[i], Score: scorePrepared(x.metric, q, vec)})
		}
	}
	return top.sorted(), nil
}

// probeOrder returns the indices of the nprobe centroids nearest to q.
func (x *IVFIndex) probeOrder(q []float32, nprobe int) []int {
	n := len(x.centroids)
	if nprobe <= 0 {
		nprobe = 1
	}
	if nprobe > n {
		nprobe = n
	}
	order := make([]int, n)
	dist := make([]float64, n)
	for i, c := range x.centroids {
		order[i] = i
		dist[i] = SquaredL2(q, c)
	}
	sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] < dist[order[b]] })
	return order[:nprobe]
}

// Size returns the number of entries in the index.
func (x *IVFIndex) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.size
}

// MarshalBinary encodes centroids and posting lists.
func (x *IVFIndex) MarshalBinary() ([]byte, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	w := newSnapshotWriter(x.Params(), x.dimensions)
	w.writeCentroids(x.centroids)
	w.writeLists(x.lists)
	return w.bytes()
}

// UnmarshalBinary replaces the index contents with a snapshot produced by MarshalBinary.
func (x *IVFIndex) UnmarshalBinary(data []byte) error {
	r, err := newSnapshotReader(data, x.Params(), x.dimensions)
	if err != nil {
		return err
	}
	if r.nlist != x.nlist {
		return fmt.Errorf("%w: snapshot nlist %d, index nlist %d", errSnapshot, r.nlist, x.nlist)
	}
	centroids, err := r.readCentroids()
	if err != nil {
		return err
	}
	lists, err := r.readLists()
	if err != nil {
		return err
	}
	if len(centroids) == 0 && len(lists) > 1 || len(centroids) > 0 && len(lists) != len(centroids) {
		return fmt.Errorf("%w: %d lists for %d centroids", errSnapshot, len(lists), len(centroids))
	}
	size := 0
	for _, l := range lists {
		size += len(l.seqs)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.centroids = centroids
	x.lists = lists
	x.size = size
	return nil
}
