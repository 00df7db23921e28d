// Package embedding turns text into fixed-size vectors: an ONNX sentence model, a
// feature-hashing fallback, a mock for tests, an LRU cache and a bounded worker pool.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/vecsearch/internal/models"
)

// Embedder produces vector embeddings for text.
// EmbedBatch preserves order; an empty batch yields an empty result.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// modelError wraps err as a model failure. Context errors keep their identity so callers can
// tell a timeout from a broken model.
func modelError(err error) error {
	if err == nil || errors.Is(err, models.ErrModel) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrModel, err)
}
