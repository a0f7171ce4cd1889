package rank

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/usecase/filter"
)

// --- Mocks ---

type mockEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vectors[text]}, nil
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchCalls int
	batchTexts []string
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchTexts = texts
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, text := range texts {
		out.Embeddings[i] = m.vectors[text]
	}
	return out, nil
}

func fp(v float64) *float64 { return &v }

func cand(id string, embedding []float32, genreScore float64, finalScore *float64) filter.Candidate {
	return filter.Candidate{
		Item: domain.CatalogItem{
			ID:         id,
			Embedding:  embedding,
			FinalScore: finalScore,
		},
		GenreScore: genreScore,
	}
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

// --- Tests ---

func TestRank_EmptyCandidates(t *testing.T) {
	embed := &mockEmbedder{}
	svc := New(embed)

	f := domain.Features{PositiveThemes: "anything"}
	res, err := svc.Rank(context.Background(), f, nil, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.StatusNoResults {
		t.Errorf("status = %q, want %q", res.Status, domain.StatusNoResults)
	}
	if len(res.Results) != 0 || res.TotalCandidates != 0 || res.SearchTime != 0 {
		t.Errorf("empty set must yield zero results, count and time: %+v", res)
	}
	if embed.calls != 0 {
		t.Error("embedder must not be called for an empty candidate set")
	}
}

func TestCosine(t *testing.T) {
	approx(t, "identical", Cosine([]float32{1, 0}, []float32{1, 0}), 1.0)
	approx(t, "orthogonal", Cosine([]float32{1, 0}, []float32{0, 1}), 0.0)
	approx(t, "opposite", Cosine([]float32{1, 0}, []float32{-1, 0}), -1.0)

	// Zero-norm vectors must not produce NaN or Inf.
	got := Cosine([]float32{0, 0}, []float32{1, 1})
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Errorf("zero-norm cosine = %v, want finite", got)
	}
}

func TestRank_NegativeThemesDampedSubtraction(t *testing.T) {
	embed := &mockEmbedder{vectors: map[string][]float32{
		"cozy mysteries": {1, 0},
		"gore":           {0, 1},
	}}
	svc := New(embed)

	// Query vector should be (1,0) - 0.6*(0,1) = (1, -0.6). A candidate at
	// (0,1) then scores negatively, one at (1,0) positively.
	f := domain.Features{
		QualityLevel:   domain.QualityAny,
		PositiveThemes: "cozy mysteries",
		NegativeThemes: "gore",
	}
	candidates := []filter.Candidate{
		cand("goreish", []float32{0, 1}, 0, nil),
		cand("cozy", []float32{1, 0}, 0, nil),
	}

	res, err := svc.Rank(context.Background(), f, candidates, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embed.calls != 2 {
		t.Fatalf("embed calls = %d, want 2 (one per polarity)", embed.calls)
	}
	if res.Results[0].Item.ID != "cozy" {
		t.Fatalf("top result = %s, want cozy", res.Results[0].Item.ID)
	}
	wantSim := 1.0 / math.Sqrt(1+0.36) // cos((1,-0.6), (1,0))
	approx(t, "cozy similarity", res.Results[0].Similarity, wantSim)
	if res.Results[1].Similarity >= 0 {
		t.Errorf("goreish similarity = %v, want negative", res.Results[1].Similarity)
	}
}

func TestRank_BatchEmbedderUsesSingleCall(t *testing.T) {
	embed := &mockBatchEmbedder{mockEmbedder: mockEmbedder{vectors: map[string][]float32{
		"cozy mysteries": {1, 0},
		"gore":           {0, 1},
	}}}
	svc := New(embed)

	f := domain.Features{
		QualityLevel:   domain.QualityAny,
		PositiveThemes: "cozy mysteries",
		NegativeThemes: "gore",
	}
	candidates := []filter.Candidate{
		cand("cozy", []float32{1, 0}, 0, nil),
	}

	res, err := svc.Rank(context.Background(), f, candidates, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embed.batchCalls != 1 {
		t.Fatalf("batch calls = %d, want 1 (both polarities in one request)", embed.batchCalls)
	}
	if embed.calls != 0 {
		t.Fatalf("single-text embed calls = %d, want 0", embed.calls)
	}
	if len(embed.batchTexts) != 2 || embed.batchTexts[0] != "cozy mysteries" || embed.batchTexts[1] != "gore" {
		t.Fatalf("batch texts = %v, want positive then negative themes", embed.batchTexts)
	}

	// Same damped subtraction as the sequential path: cos((1,-0.6), (1,0)).
	approx(t, "similarity", res.Results[0].Similarity, 1.0/math.Sqrt(1+0.36))
}

func TestRank_HybridBlendWithFinalScores(t *testing.T) {
	embed := &mockEmbedder{vectors: map[string][]float32{"heists": {1, 0}}}
	svc := New(embed)

	f := domain.Features{
		QualityLevel:   domain.QualityLegendary, // ratingWeight 0.30
		PositiveThemes: "heists",
	}
	candidates := []filter.Candidate{
		cand("a", []float32{1, 0}, 1.0, fp(10)),
		cand("b", []float32{0, 1}, 0.5, fp(20)),
	}

	res, err := svc.Rank(context.Background(), f, candidates, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// finalNormalized: a -> 0, b -> (20-10)/(10+1e-8) ~= 1.
	// hybrid = (1*sim + 0.30*finalNorm + 0.3*genre) / 1.6
	byID := map[string]domain.RankedResult{}
	for _, r := range res.Results {
		byID[r.Item.ID] = r
	}
	approx(t, "a hybrid", byID["a"].HybridScore, (1.0*1.0+0.30*0+0.3*1.0)/1.6)
	approx(t, "b hybrid", byID["b"].HybridScore, (1.0*0.0+0.30*1.0+0.3*0.5)/1.6)

	// FinalScore passes through un-normalized.
	if byID["b"].FinalScore == nil || *byID["b"].FinalScore != 20 {
		t.Error("final score must pass through un-normalized")
	}
}

func TestRank_NoFinalScoresRenormalizes(t *testing.T) {
	embed := &mockEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	svc := New(embed)

	f := domain.Features{QualityLevel: domain.QualityAny, PositiveThemes: "q"}
	candidates := []filter.Candidate{cand("a", []float32{1, 0}, 0.5, nil)}

	res, err := svc.Rank(context.Background(), f, candidates, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Rating term dropped: hybrid = (1*sim + 0.3*genre) / 1.3.
	approx(t, "hybrid without rating term", res.Results[0].HybridScore, (1.0+0.3*0.5)/1.3)
}

func TestRank_TopKCoversAllCandidates(t *testing.T) {
	embed := &mockEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	svc := New(embed)

	f := domain.Features{QualityLevel: domain.QualityAny, PositiveThemes: "q"}
	candidates := []filter.Candidate{
		cand("a", []float32{1, 0}, 0, nil),
		cand("b", []float32{0.5, 0.5}, 0, nil),
		cand("c", []float32{0, 1}, 0, nil),
	}

	res, err := svc.Rank(context.Background(), f, candidates, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Results) != 3 {
		t.Fatalf("topK > n must return all candidates, got %d", len(res.Results))
	}
	if res.TotalCandidates != 3 {
		t.Errorf("TotalCandidates = %d, want 3", res.TotalCandidates)
	}
	for i := 1; i < len(res.Results); i++ {
		if res.Results[i-1].HybridScore < res.Results[i].HybridScore {
			t.Error("results not ordered by hybrid score descending")
		}
	}
}

func TestRank_Deterministic(t *testing.T) {
	embed := &mockEmbedder{vectors: map[string][]float32{"q": {1, 1}}}
	svc := New(embed)

	f := domain.Features{QualityLevel: domain.QualityAny, PositiveThemes: "q"}
	// Two identical candidates tie exactly; catalog order must decide.
	candidates := []filter.Candidate{
		cand("first", []float32{1, 1}, 0, nil),
		cand("second", []float32{1, 1}, 0, nil),
	}

	for run := 0; run < 5; run++ {
		res, err := svc.Rank(context.Background(), f, candidates, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Results[0].Item.ID != "first" || res.Results[1].Item.ID != "second" {
			t.Fatalf("run %d: tie broken against catalog order: %s, %s",
				run, res.Results[0].Item.ID, res.Results[1].Item.ID)
		}
	}
}

func TestRank_EmbedderFailure(t *testing.T) {
	embed := &mockEmbedder{err: errors.New("provider down")}
	svc := New(embed)

	f := domain.Features{QualityLevel: domain.QualityAny, PositiveThemes: "q"}
	_, err := svc.Rank(context.Background(), f, []filter.Candidate{cand("a", []float32{1}, 0, nil)}, 1)
	if err == nil {
		t.Fatal("expected error when the embedder fails")
	}
}
