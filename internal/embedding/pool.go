package embedding

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool spreads each batch over at most workers goroutines and lets at most maxBatches
// batches run at once, so one large batch cannot starve other requests.
type Pool struct {
	embedder Embedder
	workers  int
	batches  *semaphore.Weighted
}

// NewPool wraps e. Non-positive workers or maxBatches default to 1.
func NewPool(e Embedder, workers, maxBatches int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if maxBatches <= 0 {
		maxBatches = 1
	}
	return &Pool{embedder: e, workers: workers, batches: semaphore.NewWeighted(int64(maxBatches))}
}

// Embed embeds a single text as a one-element batch slot.
func (p *Pool) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := p.batches.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.batches.Release(1)
	v, err := p.embedder.Embed(ctx, text)
	return v, modelError(err)
}

// EmbedBatch splits texts into contiguous chunks embedded concurrently. Order is preserved.
func (p *Pool) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}
	if err := p.batches.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.batches.Release(1)

	size := (len(texts) + p.workers - 1) / p.workers
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for start := 0; start < len(texts); start += size {
		start := start
		end := min(start+size, len(texts))
		g.Go(func() error {
			vecs, err := p.embedder.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, modelError(err)
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (p *Pool) Dimensions() int {
	return p.embedder.Dimensions()
}

// Close closes the wrapped embedder.
func (p *Pool) Close() error {
	return p.embedder.Close()
}
