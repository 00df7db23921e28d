package vector

import (
	"context"
	"math/rand"
	"testing"

	"github.com/hyperjump/vecsearch/internal/models"
)

func benchEntries(n, dim int) []Entry {
	rng := rand.New(rand.NewSource(1))
	entries := make([]Entry, n)
	for i := range entries {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		entries[i] = Entry{Seq: int64(i + 1), Vector: v}
	}
	return entries
}

func benchSearch(b *testing.B, idx Index, nprobe int) {
	entries := benchEntries(5000, 384)
	if err := idx.Build(context.Background(), entries); err != nil {
		b.Fatal(err)
	}
	query := entries[42].Vector
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(query, 10, nprobe)
	}
}

func BenchmarkFlatIndexSearch(b *testing.B) {
	idx, _ := NewFlatIndex(models.MetricCosine, 384)
	benchSearch(b, idx, 0)
}

func BenchmarkIVFIndexSearch(b *testing.B) {
	idx, _ := NewIVFIndex(models.MetricCosine, 384, 64)
	benchSearch(b, idx, 8)
}

func BenchmarkIVFIndexBuild(b *testing.B) {
	entries := benchEntries(2000, 384)
	for i := 0; i < b.N; i++ {
		idx, _ := NewIVFIndex(models.MetricL2, 384, 32)
		_ = idx.Build(context.Background(), entries)
	}
}
