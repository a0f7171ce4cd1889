// Package recommend orchestrates the recommendation pipeline: query
// understanding, deterministic filtering, similarity ranking, and result
// assembly. Extraction failures degrade to default features; ranking
// failures retry against a bounded sub-sample before surfacing an error.
package recommend

import (
	"context"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/metrics"
	"github.com/reelrank/reelrank/internal/usecase/filter"
)

// Defaults, overridable through the With* builders.
const (
	DefaultTopK           = 10
	DefaultMaxTopK        = 100
	DefaultRetrySampleLen = 1000

	overviewLimit = 200
)

const statusFailedPrefix = "search failed: "

// Item is one assembled recommendation record.
type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Year        int      `json:"year"`
	Rating      float64  `json:"rating"`
	Runtime     *int     `json:"runtime_minutes,omitempty"`
	Votes       int      `json:"votes"`
	Genres      []string `json:"genres"`
	Similarity  float64  `json:"similarity_score"`
	HybridScore float64  `json:"hybrid_score"`
	Overview    string   `json:"overview"`
	Countries   []string `json:"country_of_origin,omitempty"`
	GenreScore  float64  `json:"genre_score"`
	FinalScore  *float64 `json:"final_score,omitempty"`
	PosterURL   string   `json:"poster_url,omitempty"`
}

// Response is the aggregate recommendation output. On any user-visible
// failure Status carries a descriptive string and Results stays empty;
// partially ranked output is never returned.
type Response struct {
	PromptTitle     string        `json:"prompt_title,omitempty"`
	Status          string        `json:"status"`
	Results         []Item        `json:"results"`
	SearchTime      time.Duration `json:"-"`
	TotalCandidates int           `json:"total_candidates"`
}

// Failed reports whether the response carries a terminal pipeline failure.
func (r Response) Failed() bool {
	return strings.HasPrefix(r.Status, statusFailedPrefix)
}

// Service runs the recommendation pipeline.
type Service struct {
	catalog   CatalogSource
	extractor Extractor
	ranker    Ranker
	posters   PosterResolver
	logger    *zap.Logger

	defaultTopK    int
	maxTopK        int
	retrySampleLen int
	requestTimeout time.Duration
}

// New creates a recommendation service. posters may be nil.
func New(catalog CatalogSource, extractor Extractor, ranker Ranker, logger *zap.Logger) *Service {
	return &Service{
		catalog:        catalog,
		extractor:      extractor,
		ranker:         ranker,
		logger:         logger,
		defaultTopK:    DefaultTopK,
		maxTopK:        DefaultMaxTopK,
		retrySampleLen: DefaultRetrySampleLen,
	}
}

// WithPosters attaches a best-effort poster resolver.
func (s *Service) WithPosters(p PosterResolver) *Service {
	s.posters = p
	return s
}

// WithLimits overrides the default and maximum top-K.
func (s *Service) WithLimits(defaultTopK, maxTopK int) *Service {
	if defaultTopK > 0 {
		s.defaultTopK = defaultTopK
	}
	if maxTopK > 0 {
		s.maxTopK = maxTopK
	}
	return s
}

// WithRetrySample overrides the ranking-retry sub-sample size.
func (s *Service) WithRetrySample(n int) *Service {
	if n > 0 {
		s.retrySampleLen = n
	}
	return s
}

// WithRequestTimeout bounds provider calls for a single request.
// Zero disables the bound.
func (s *Service) WithRequestTimeout(d time.Duration) *Service {
	s.requestTimeout = d
	return s
}

// Recommend runs the pipeline for one query. Pipeline-level failures are
// reported through Response.Status with an empty result list, not through
// the error return.
func (s *Service) Recommend(ctx context.Context, query string, topK int) Response {
	if strings.TrimSpace(query) == "" {
		return Response{Status: domain.StatusEmptyQuery, Results: []Item{}}
	}

	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	topK = s.clampTopK(topK)
	features := s.extractFeatures(ctx, query)

	candidates := filter.Apply(s.catalog.Items(), features)
	metrics.SearchCandidates.Observe(float64(len(candidates)))

	rankRes, err := s.rankWithRetry(ctx, features, candidates, topK)
	if err != nil {
		s.logger.Error("ranking failed after retry", zap.Error(err), zap.Int("candidates", len(candidates)))
		return Response{
			PromptTitle: features.PromptTitle,
			Status:      statusFailedPrefix + err.Error(),
			Results:     []Item{},
		}
	}
	metrics.SearchDuration.Observe(rankRes.SearchTime.Seconds())

	return Response{
		PromptTitle:     features.PromptTitle,
		Status:          rankRes.Status,
		Results:         s.assemble(ctx, rankRes.Results),
		SearchTime:      rankRes.SearchTime,
		TotalCandidates: rankRes.TotalCandidates,
	}
}

func (s *Service) clampTopK(topK int) int {
	if topK <= 0 {
		return s.defaultTopK
	}
	if topK > s.maxTopK {
		return s.maxTopK
	}
	return topK
}

// extractFeatures consults the extractor and falls back to the documented
// default features on any failure. The raw extraction error never reaches
// the caller.
func (s *Service) extractFeatures(ctx context.Context, query string) domain.Features {
	features, err := s.extractor.Extract(ctx, query)
	if err != nil {
		s.logger.Warn("feature extraction failed, using defaults", zap.Error(err))
		metrics.ExtractionFallbacksTotal.Inc()
		features = domain.DefaultFeatures()
	}
	features.Normalize()
	return features
}

// rankWithRetry retries a failed ranking once against a bounded random
// sub-sample, trading completeness for availability under resource
// pressure.
func (s *Service) rankWithRetry(
	ctx context.Context, f domain.Features, candidates []filter.Candidate, topK int,
) (domain.RankResult, error) {
	res, err := s.ranker.Rank(ctx, f, candidates, topK)
	if err == nil {
		return res, nil
	}

	sample := sampleCandidates(candidates, s.retrySampleLen)
	s.logger.Warn("ranking failed, retrying on sub-sample",
		zap.Error(err),
		zap.Int("candidates", len(candidates)),
		zap.Int("sample", len(sample)),
	)
	return s.ranker.Rank(ctx, f, sample, topK)
}

// sampleCandidates draws up to n candidates uniformly without replacement.
func sampleCandidates(candidates []filter.Candidate, n int) []filter.Candidate {
	if len(candidates) <= n {
		return candidates
	}
	sample := make([]filter.Candidate, 0, n)
	for _, idx := range rand.Perm(len(candidates))[:n] {
		sample = append(sample, candidates[idx])
	}
	return sample
}

// assemble shapes ranked rows into output records and enriches them with
// best-effort poster URLs.
func (s *Service) assemble(ctx context.Context, ranked []domain.RankedResult) []Item {
	items := make([]Item, len(ranked))
	for i, r := range ranked {
		items[i] = Item{
			ID:          r.Item.ID,
			Title:       r.Item.Title,
			Type:        string(r.Item.TitleType),
			Year:        r.Item.StartYear,
			Rating:      r.Item.AverageRating,
			Runtime:     r.Item.RuntimeMinutes,
			Votes:       r.Item.NumVotes,
			Genres:      r.Item.Genres,
			Similarity:  r.Similarity,
			HybridScore: r.HybridScore,
			Overview:    truncateOverview(r.Item.Overview),
			Countries:   r.Item.CountryOfOrigin,
			GenreScore:  r.GenreScore,
			FinalScore:  r.FinalScore,
		}
		if s.posters != nil {
			items[i].PosterURL = s.resolvePoster(ctx, r.Item.ID)
		}
	}
	return items
}

// resolvePoster never fails the request: lookup errors degrade to no poster.
func (s *Service) resolvePoster(ctx context.Context, id string) string {
	url, err := s.posters.PosterFor(ctx, id)
	if err != nil {
		s.logger.Debug("poster lookup failed", zap.String("id", id), zap.Error(err))
		return ""
	}
	return url
}

// truncateOverview caps an overview at overviewLimit bytes, backing up to
// a rune boundary so a multi-byte character is never split mid-sequence.
func truncateOverview(overview string) string {
	if len(overview) <= overviewLimit {
		return overview
	}
	cut := overviewLimit
	for cut > 0 && !utf8.RuneStart(overview[cut]) {
		cut--
	}
	return overview[:cut] + "..."
}
