package recommend

import (
	"context"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/usecase/filter"
)

// Extractor maps a free-text query to structured features.
type Extractor interface {
	Extract(ctx context.Context, query string) (domain.Features, error)
}

// Ranker scores filtered candidates against the query themes.
type Ranker interface {
	Rank(ctx context.Context, f domain.Features, candidates []filter.Candidate, topK int) (domain.RankResult, error)
}

// CatalogSource serves the read-only catalog.
type CatalogSource interface {
	Items() []domain.CatalogItem
}

// PosterResolver looks up a poster URL for a catalog identifier. Best
// effort: an empty URL or an error means no poster.
type PosterResolver interface {
	PosterFor(ctx context.Context, id string) (string, error)
}
