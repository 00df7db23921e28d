// Package vector provides metrics and nearest-neighbor index structures over float32 vectors.
package vector

import (
	"context"

	"github.com/hyperjump/vecsearch/internal/models"
)

// Entry is a vector keyed by its record sequence number.
type Entry struct {
	Seq    int64
	Vector []float32
}

// Candidate is a scored index hit. Score follows the metric convention in models.Metric.
type Candidate struct {
	Seq   int64
	Score float64
}

// Index is a nearest-neighbor search structure over entries of a fixed dimension.
// Implementations are safe for concurrent use.
type Index interface {
	// Build discards current contents and trains the index over entries.
	Build(ctx context.Context, entries []Entry) error
	// Add appends entries to a built index without retraining.
	Add(entries []Entry) error
	// Search returns up to k candidates, best first, ties by Seq ascending.
	// nprobe is the number of partitions to scan; indexes without partitions ignore it.
	Search(query []float32, k, nprobe int) ([]Candidate, error)
	Params() models.IndexParams
	Dimensions() int
	Size() int
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// Partitioned is implemented by indexes that split entries into trained partitions.
type Partitioned interface {
	Partitions() int
}
