package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// HashEmbedder embeds text by feature hashing: each lower-cased word and each character
// trigram inside a word adds a signed unit to one of the dimension buckets. The result is
// L2-normalized. Texts sharing words or word fragments score higher under cosine similarity.
// It needs no model artifact.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a feature-hashing embedder with the given dimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

const trigramWeight = 0.5

// Embed returns the hashed feature vector of text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	acc := make([]float64, e.dimensions)
	for _, word := range Words(text) {
		e.add(acc, "w:"+word, 1)
		runes := []rune(word)
		for i := 0; i+3 <= len(runes); i++ {
			e.add(acc, "t:"+string(runes[i:i+3]), trigramWeight)
		}
	}

	var sum float64
	for _, v := range acc {
		sum += v * v
	}
	emb := make([]float32, e.dimensions)
	if sum == 0 {
		return emb, nil
	}
	inv := 1 / math.Sqrt(sum)
	for i, v := range acc {
		emb[i] = float32(v * inv)
	}
	return emb, nil
}

func (e *HashEmbedder) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := sum % uint64(e.dimensions)
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for HashEmbedder.
func (e *HashEmbedder) Close() error {
	return nil
}
