package embedding

import (
	"fmt"
	"strings"

	"github.com/hyperjump/vecsearch/internal/config"
)

// Providers accepted by New.
const (
	ProviderONNX = "onnx"
	ProviderHash = "hash"
	ProviderMock = "mock"
)

// New builds the configured embedder wrapped in a cache (when cache_size > 0) and a worker pool.
func New(cfg *config.EmbeddingConfig) (Embedder, error) {
	var base Embedder
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderONNX:
		e, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		base = e
	case ProviderHash:
		base = NewHashEmbedder(cfg.Dimensions)
	case ProviderMock:
		base = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, hash, mock)", cfg.Provider)
	}
	if cfg.CacheSize > 0 {
		base = NewCachedEmbedder(base, cfg.CacheSize)
	}
	return NewPool(base, cfg.Workers, cfg.MaxBatches), nil
}
