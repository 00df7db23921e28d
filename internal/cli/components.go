package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/collection"
	"github.com/hyperjump/vecsearch/internal/config"
	"github.com/hyperjump/vecsearch/internal/embedding"
	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/internal/service"
	"github.com/hyperjump/vecsearch/internal/storage"
)

// components holds initialized services.
type components struct {
	store    *collection.Store
	embedder embedding.Embedder
	svc      *service.Service
}

func (c *components) Close() {
	if c.embedder != nil {
		_ = c.embedder.Close()
	}
	if c.store != nil {
		_ = c.store.Close()
	}
}

// initializeComponents opens storage, ensures the configured collection, loads and probes the
// embedder and builds the service. With ensureIndex the configured index is built unless the
// collection already serves an equivalent one.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, ensureIndex bool) (*components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	backend, err := storage.NewBackend(cfg.Storage.Backend, cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &components{
		store: collection.NewStore(backend,
			collection.WithLogger(logger),
			collection.WithDefaultNProbe(cfg.Search.NProbe)),
	}

	schema := models.CollectionSchema{
		Name:          cfg.Collection.Name,
		Dimension:     cfg.Collection.Dimension,
		MaxTextLength: cfg.Collection.MaxTextLength,
	}
	if err := c.store.EnsureCollection(ctx, schema); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	c.embedder, err = embedding.New(&cfg.Embedding)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if err := embedding.Probe(ctx, c.embedder); err != nil {
		c.Close()
		return nil, err
	}
	logger.Info("embedder ready",
		zap.String("provider", cfg.Embedding.Provider),
		zap.Int("dimensions", c.embedder.Dimensions()))

	c.svc = service.New(c.store, c.embedder, schema.Name,
		service.WithLogger(logger),
		service.WithTimeout(cfg.Service.Timeout),
		service.WithSearchDefaults(cfg.Search.DefaultK, cfg.Search.MaxK, cfg.Search.NProbe))

	if ensureIndex {
		if err := c.svc.EnsureIndex(ctx, indexParams(cfg)); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to build index: %w", err)
		}
	}
	return c, nil
}

func indexParams(cfg *config.Config) models.IndexParams {
	return models.IndexParams{
		Metric:    models.Metric(cfg.Index.Metric),
		IndexType: models.IndexType(cfg.Index.Type),
		NList:     cfg.Index.NList,
	}
}
