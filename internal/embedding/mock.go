package embedding

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
)

// MockEmbedder returns a fixed unit vector per distinct text, seeded from the text's hash.
// Unrelated texts land near orthogonal, so it suits tests that only need stable vectors.
// It counts calls and can be told to fail on given texts.
type MockEmbedder struct {
	dimensions int
	calls      atomic.Int64

	mu     sync.Mutex
	failOn map[string]error
}

// NewMockEmbedder returns a mock embedder of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions, failOn: map[string]error{}}
}

// FailOn makes Embed return err for text. A nil err uses a generic failure.
func (e *MockEmbedder) FailOn(text string, err error) {
	if err == nil {
		err = errors.New("mock embedder failure")
	}
	e.mu.Lock()
	e.failOn[text] = err
	e.mu.Unlock()
}

// Calls returns how many texts were embedded, failed ones included.
func (e *MockEmbedder) Calls() int64 {
	return e.calls.Load()
}

// Embed returns the vector for text.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.calls.Add(1)
	e.mu.Lock()
	err := e.failOn[text]
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	emb := make([]float32, e.dimensions)
	var sum float64
	for i := range emb {
		v := rng.NormFloat64()
		emb[i] = float32(v)
		sum += v * v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range emb {
		emb[i] *= inv
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text and stops at the first failure.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *MockEmbedder) Close() error {
	return nil
}
