package rank

import (
	"context"

	"github.com/reelrank/reelrank/internal/domain"
)

// Embedder vectorizes query theme text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
