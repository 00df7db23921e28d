package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/pkg/utils"
)

const probeText = "The quick brown fox jumps over the lazy dog"

// Probe embeds a fixed sentence and checks the result has the advertised dimension and
// finite values. Any failure wraps models.ErrModel.
func Probe(ctx context.Context, e Embedder) error {
	v, err := e.Embed(ctx, probeText)
	if err != nil {
		return fmt.Errorf("embedding probe: %w", modelError(err))
	}
	if len(v) != e.Dimensions() {
		return fmt.Errorf("%w: embedding probe returned %d values, expected %d", models.ErrModel, len(v), e.Dimensions())
	}
	if !utils.AllFinite(v) {
		return fmt.Errorf("%w: embedding probe returned a non-finite value", models.ErrModel)
	}
	return nil
}
