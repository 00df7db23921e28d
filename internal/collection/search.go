package collection

import (
	"context"
	"fmt"

	"github.com/hyperjump/vecsearch/internal/models"
)

// Search returns up to params.K records nearest to query, best first.
// It fails fast with models.ErrIndexNotReady when no index has been built and never waits
// on a running build.
func (s *Store) Search(ctx context.Context, name string, query []float32, params models.SearchParams) ([]models.Hit, error) {
	const op = "search"
	c, err := s.get(ctx, name)
	if err != nil {
		return nil, models.NewOpError(op, name, err)
	}
	if params.K < 1 {
		return nil, models.NewOpError(op, name, fmt.Errorf("%w: k must be at least 1, got %d", models.ErrValidation, params.K))
	}
	if len(query) != c.schema.Dimension {
		return nil, models.NewOpError(op, name, fmt.Errorf("%w: query has %d, expected %d",
			models.ErrDimensionMismatch, len(query), c.schema.Dimension))
	}
	if err := ctx.Err(); err != nil {
		return nil, models.NewOpError(op, name, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.index == nil {
		return nil, models.NewOpError(op, name, fmt.Errorf("%w: state is %s", models.ErrIndexNotReady, c.state))
	}
	if params.Metric != "" {
		m, err := models.ParseMetric(string(params.Metric))
		if err != nil {
			return nil, models.NewOpError(op, name, err)
		}
		if m != c.index.Params().Metric {
			return nil, models.NewOpError(op, name, fmt.Errorf("%w: requested %s, index uses %s",
				models.ErrMetricMismatch, m, c.index.Params().Metric))
		}
	}
	nprobe := params.NProbe
	if nprobe <= 0 {
		nprobe = s.nprobe
	}

	candidates, err := c.index.Search(query, params.K, nprobe)
	if err != nil {
		return nil, models.NewOpError(op, name, err)
	}
	hits := make([]models.Hit, 0, len(candidates))
	for _, cand := range candidates {
		i, ok := c.pos[cand.Seq]
		if !ok {
			continue
		}
		r := c.records[i]
		hits = append(hits, models.Hit{ID: r.ID, Seq: r.Seq, Text: r.Text, Score: cand.Score})
	}
	return hits, nil
}
