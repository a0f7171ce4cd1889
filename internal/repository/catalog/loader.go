// Package catalog loads the recommendation dataset from parquet into an
// immutable in-memory store.
package catalog

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
)

// catalogRow mirrors the dataset parquet schema. Optional columns are
// pointers; genres and countries are comma-joined strings at the source.
type catalogRow struct {
	Tconst          string    `parquet:"tconst"`
	TitleType       string    `parquet:"titleType"`
	PrimaryTitle    string    `parquet:"primaryTitle"`
	StartYear       int32     `parquet:"startYear"`
	RuntimeMinutes  *int32    `parquet:"runtimeMinutes,optional"`
	Genres          string    `parquet:"genres"`
	AverageRating   float64   `parquet:"averageRating"`
	NumVotes        int64     `parquet:"numVotes"`
	Overview        string    `parquet:"overview"`
	CountryOfOrigin *string   `parquet:"countryOfOrigin,optional"`
	Embedding       []float32 `parquet:"embedding,list"`
	FinalScore      *float64  `parquet:"finalScore,optional"`
}

// Load reads the catalog parquet file. Rows without an embedding, or whose
// embedding dimensionality differs from the first embedded row, are skipped:
// such rows are not orderable by similarity and must never reach scoring.
func Load(path string, logger *zap.Logger) (*Store, error) {
	rows, err := parquet.ReadFile[catalogRow](path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	items := make([]domain.CatalogItem, 0, len(rows))
	dim := 0
	skipped := 0

	for i := range rows {
		row := &rows[i]

		if len(row.Embedding) == 0 {
			skipped++
			continue
		}
		if dim == 0 {
			dim = len(row.Embedding)
		}
		if len(row.Embedding) != dim {
			logger.Warn("skipping row with mismatched embedding dimension",
				zap.String("id", row.Tconst),
				zap.Int("dim", len(row.Embedding)),
				zap.Int("expected", dim),
			)
			skipped++
			continue
		}

		items = append(items, toItem(row))
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("catalog %s: %w", path, domain.ErrCatalogNotLoaded)
	}

	logger.Info("catalog loaded",
		zap.String("path", path),
		zap.Int("items", len(items)),
		zap.Int("skipped", skipped),
		zap.Int("embedding_dim", dim),
	)

	return &Store{items: items, dim: dim}, nil
}

// toItem converts a raw row, coercing malformed optional columns to absent.
func toItem(row *catalogRow) domain.CatalogItem {
	item := domain.CatalogItem{
		ID:            row.Tconst,
		Title:         row.PrimaryTitle,
		TitleType:     domain.TitleType(row.TitleType),
		StartYear:     int(row.StartYear),
		Genres:        domain.SplitSet(row.Genres),
		AverageRating: row.AverageRating,
		NumVotes:      int(row.NumVotes),
		Overview:      row.Overview,
		Embedding:     row.Embedding,
		FinalScore:    row.FinalScore,
	}

	if row.RuntimeMinutes != nil && *row.RuntimeMinutes >= 0 {
		rt := int(*row.RuntimeMinutes)
		item.RuntimeMinutes = &rt
	}
	if row.CountryOfOrigin != nil {
		item.CountryOfOrigin = domain.SplitSet(*row.CountryOfOrigin)
	}

	return item
}
