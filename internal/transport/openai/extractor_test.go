package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
)

func TestParseFeatures(t *testing.T) {
	raw := `{
		"movie_or_series": "movie",
		"genres": ["Action", "Sci-Fi"],
		"negative_genres": ["Horror"],
		"quality_level": "legendary",
		"positive_themes": "space exploration and first contact",
		"negative_themes": "zombies",
		"date_range": [1990, 2010],
		"min_runtime_minutes": 90,
		"country_of_origin": ["United States"],
		"unwanted_countries": ["France"],
		"prompt_title": "space classics"
	}`

	f, err := parseFeatures(raw)
	if err != nil {
		t.Fatalf("parseFeatures: %v", err)
	}

	if f.MovieOrSeries != domain.WantMovie {
		t.Errorf("MovieOrSeries = %q, want movie", f.MovieOrSeries)
	}
	if len(f.Genres) != 2 || f.Genres[0] != "Action" {
		t.Errorf("Genres = %v", f.Genres)
	}
	if f.QualityLevel != domain.QualityLegendary {
		t.Errorf("QualityLevel = %q", f.QualityLevel)
	}
	if f.DateRange == nil || f.DateRange.MinYear != 1990 || f.DateRange.MaxYear != 2010 {
		t.Errorf("DateRange = %+v", f.DateRange)
	}
	if f.MinRuntimeMinutes == nil || *f.MinRuntimeMinutes != 90 {
		t.Errorf("MinRuntimeMinutes = %v", f.MinRuntimeMinutes)
	}
	if f.MaxRuntimeMinutes != nil {
		t.Errorf("MaxRuntimeMinutes = %v, want nil", f.MaxRuntimeMinutes)
	}
	if f.PromptTitle != "space classics" {
		t.Errorf("PromptTitle = %q", f.PromptTitle)
	}
}

func TestParseFeatures_NormalizesOutOfDomainValues(t *testing.T) {
	raw := `{
		"movie_or_series": "documentary",
		"quality_level": "masterpiece",
		"positive_themes": "heist",
		"date_range": [2020, 1999],
		"min_runtime_minutes": -10
	}`

	f, err := parseFeatures(raw)
	if err != nil {
		t.Fatalf("parseFeatures: %v", err)
	}

	if f.MovieOrSeries != domain.WantBoth {
		t.Errorf("MovieOrSeries = %q, want both", f.MovieOrSeries)
	}
	if f.QualityLevel != domain.QualityAny {
		t.Errorf("QualityLevel = %q, want any", f.QualityLevel)
	}
	if f.DateRange == nil || f.DateRange.MinYear != 1999 || f.DateRange.MaxYear != 2020 {
		t.Errorf("DateRange = %+v, want reordered [1999, 2020]", f.DateRange)
	}
	if f.MinRuntimeMinutes != nil {
		t.Errorf("MinRuntimeMinutes = %v, want nil after negative dropped", f.MinRuntimeMinutes)
	}
}

func TestParseFeatures_MalformedJSON(t *testing.T) {
	if _, err := parseFeatures(`not json at all`); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestParseFeatures_PartialDateRangeIgnored(t *testing.T) {
	f, err := parseFeatures(`{"movie_or_series": "both", "positive_themes": "x", "date_range": [2000]}`)
	if err != nil {
		t.Fatalf("parseFeatures: %v", err)
	}
	if f.DateRange != nil {
		t.Errorf("DateRange = %+v, want nil for one-element array", f.DateRange)
	}
}

// chatResponse builds a minimal chat completion body with the given content.
func chatResponse(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return body
}

func TestExtract_RetriesMalformedOutput(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls < 3 {
			w.Write(chatResponse(t, "sorry, here is your JSON:"))
			return
		}
		w.Write(chatResponse(t, `{"movie_or_series": "series", "positive_themes": "politics"}`))
	}))
	defer srv.Close()

	e := NewExtractor(&ExtractorConfig{
		APIKey:  "test",
		BaseURL: srv.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	f, err := e.Extract(context.Background(), "political drama series")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if f.MovieOrSeries != domain.WantSeries {
		t.Errorf("MovieOrSeries = %q, want series", f.MovieOrSeries)
	}
}

func TestExtract_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write(chatResponse(t, "still not JSON"))
	}))
	defer srv.Close()

	e := NewExtractor(&ExtractorConfig{
		APIKey:  "test",
		BaseURL: srv.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	_, err := e.Extract(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Errorf("error = %v, want ErrExtractionFailed", err)
	}
	if calls != extractionMaxAttempts {
		t.Errorf("calls = %d, want %d", calls, extractionMaxAttempts)
	}
}

func TestExtract_TransportErrorNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := NewExtractor(&ExtractorConfig{
		APIKey:  "test",
		BaseURL: srv.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	_, err := e.Extract(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error for failed request")
	}
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Errorf("error = %v, want ErrExtractionFailed", err)
	}
}
