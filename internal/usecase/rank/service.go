// Package rank turns filtered candidates into a hybrid-scored top-K list.
// The query embedding blends positive and damped negative theme vectors;
// the final order mixes raw cosine similarity with the catalog-quality
// signal and the per-row genre score.
package rank

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/usecase/filter"
)

// Hybrid-score blend constants. Tunable by hand, never derived at runtime.
const (
	positiveWeight = 1.0
	// negativeInfluence damps the subtracted negative-theme vector. Full
	// subtraction (1.0) is too aggressive and collapses relevant results.
	negativeInfluence = 0.6

	simWeight   = 1.0
	genreWeight = 0.3

	// normEpsilon keeps min-max normalization finite on constant columns.
	normEpsilon = 1e-8
)

// Service ranks filtered candidates against the query themes.
type Service struct {
	embed Embedder
}

// New creates a ranking service.
func New(embed Embedder) *Service {
	return &Service{embed: embed}
}

// Rank embeds the query themes, scores every candidate, and returns the top
// min(topK, len(candidates)) by hybrid score. An empty candidate set is not
// an error: it yields a "no results" outcome without touching the embedder.
func (s *Service) Rank(
	ctx context.Context, f domain.Features, candidates []filter.Candidate, topK int,
) (domain.RankResult, error) {
	if len(candidates) == 0 {
		return domain.RankResult{Status: domain.StatusNoResults}, nil
	}

	start := time.Now()

	query, err := s.queryVector(ctx, f)
	if err != nil {
		return domain.RankResult{}, fmt.Errorf("embed query themes: %w", err)
	}

	results := scoreCandidates(query, candidates, domain.RatingWeightFor(f.QualityLevel))

	// Stable on original catalog order so repeated runs with identical
	// inputs produce identical output.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].HybridScore > results[j].HybridScore
	})
	if topK < len(results) {
		results = results[:topK]
	}

	return domain.RankResult{
		Status:          domain.StatusCompleted,
		Results:         results,
		SearchTime:      time.Since(start),
		TotalCandidates: len(candidates),
	}, nil
}

// queryVector embeds the positive themes and, when present, subtracts the
// damped negative-theme embedding. Both polarities go to the provider in
// one batch call when it supports batching.
func (s *Service) queryVector(ctx context.Context, f domain.Features) ([]float32, error) {
	if f.NegativeThemes == "" {
		pos, err := s.embed.Embed(ctx, f.PositiveThemes)
		if err != nil {
			return nil, fmt.Errorf("positive themes: %w", err)
		}
		return pos.Embedding, nil
	}

	pos, neg, err := s.embedPolarities(ctx, f.PositiveThemes, f.NegativeThemes)
	if err != nil {
		return nil, err
	}

	query := make([]float32, len(pos))
	for i := range query {
		var n float32
		if i < len(neg) {
			n = neg[i]
		}
		query[i] = positiveWeight*pos[i] - negativeInfluence*n
	}
	return query, nil
}

// embedPolarities vectorizes both theme polarities, in a single API call
// for batch-capable providers.
func (s *Service) embedPolarities(ctx context.Context, positive, negative string) ([]float32, []float32, error) {
	if batcher, ok := s.embed.(domain.BatchEmbedder); ok {
		res, err := batcher.BatchEmbed(ctx, []string{positive, negative})
		if err != nil {
			return nil, nil, fmt.Errorf("batch embed: %w", err)
		}
		if len(res.Embeddings) != 2 {
			return nil, nil, fmt.Errorf("batch embed: got %d vectors, want 2", len(res.Embeddings))
		}
		return res.Embeddings[0], res.Embeddings[1], nil
	}

	pos, err := s.embed.Embed(ctx, positive)
	if err != nil {
		return nil, nil, fmt.Errorf("positive themes: %w", err)
	}
	neg, err := s.embed.Embed(ctx, negative)
	if err != nil {
		return nil, nil, fmt.Errorf("negative themes: %w", err)
	}
	return pos.Embedding, neg.Embedding, nil
}

// scoreCandidates computes cosine similarity and the hybrid blend for every
// candidate. When no candidate carries a final score the rating term drops
// out and the denominator renormalizes without it.
func scoreCandidates(query []float32, candidates []filter.Candidate, ratingWeight float64) []domain.RankedResult {
	finalNorm, hasFinal := normalizedFinalScores(candidates)

	denom := simWeight + genreWeight
	if hasFinal {
		denom += ratingWeight
	}

	results := make([]domain.RankedResult, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		sim := Cosine(query, c.Item.Embedding)

		hybrid := simWeight*sim + genreWeight*c.GenreScore
		if hasFinal {
			hybrid += ratingWeight * finalNorm[i]
		}
		hybrid /= denom

		results[i] = domain.RankedResult{
			Item:        c.Item,
			Similarity:  sim,
			GenreScore:  c.GenreScore,
			HybridScore: hybrid,
			FinalScore:  c.Item.FinalScore,
		}
	}
	return results
}

// normalizedFinalScores min-max normalizes the final-score column over the
// candidate set. Candidates without a final score contribute (and receive)
// zero; hasFinal is false when the whole column is absent.
func normalizedFinalScores(candidates []filter.Candidate) (norm []float64, hasFinal bool) {
	var lo, hi float64
	for i := range candidates {
		fs := candidates[i].Item.FinalScore
		if fs == nil {
			continue
		}
		if !hasFinal {
			lo, hi = *fs, *fs
			hasFinal = true
			continue
		}
		if *fs < lo {
			lo = *fs
		}
		if *fs > hi {
			hi = *fs
		}
	}
	if !hasFinal {
		return nil, false
	}

	norm = make([]float64, len(candidates))
	span := hi - lo + normEpsilon
	for i := range candidates {
		if fs := candidates[i].Item.FinalScore; fs != nil {
			norm[i] = (*fs - lo) / span
		}
	}
	return norm, true
}
