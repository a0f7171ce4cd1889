package openai

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/metrics"
)

const extractionMaxAttempts = 3

const extractionSystemPrompt = `You convert a free-text movie or TV request into a JSON object.
Respond with JSON only, no prose. Schema:
{
  "movie_or_series": "movie" | "series" | "both",
  "genres": [string],              // wanted genres from the vocabulary below
  "negative_genres": [string],     // genres the user wants to avoid
  "quality_level": "legendary" | "classic" | "popular" | "niche" | "cult" | "mainstream" | "any",
  "positive_themes": string,       // what the plot should be about, free text
  "negative_themes": string,       // what the plot should avoid, "" if none
  "date_range": [minYear, maxYear] or null,
  "min_runtime_minutes": int or null,
  "max_runtime_minutes": int or null,
  "country_of_origin": [string],   // wanted production countries, ISO names
  "unwanted_countries": [string],
  "prompt_title": string           // a short human-readable label for the request
}
Genre vocabulary: Action, Adventure, Animation, Biography, Comedy, Crime,
Documentary, Drama, Family, Fantasy, Film-Noir, Game-Show, History, Horror,
Music, Musical, Mystery, News, Reality-TV, Romance, Sci-Fi, Short, Sport,
Talk-Show, Thriller, TV Movie, War, Western, Adult.
Use "both" and "any" when the request does not constrain the field. Leave
lists empty rather than guessing.`

// Extractor turns a free-text query into domain.Features using an
// OpenAI-compatible chat completion in JSON mode.
type Extractor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// ExtractorConfig holds the feature extraction settings.
type ExtractorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewExtractor creates a chat-completion backed feature extractor.
func NewExtractor(cfg *ExtractorConfig) *Extractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Extractor{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Extract asks the model for structured features. Malformed JSON is retried
// up to extractionMaxAttempts times; transport errors are returned as-is.
func (e *Extractor) Extract(ctx context.Context, query string) (domain.Features, error) {
	req := openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= extractionMaxAttempts; attempt++ {
		resp, err := e.client.CreateChatCompletion(ctx, req)
		if err != nil {
			metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "error").Inc()
			return domain.Features{}, fmt.Errorf("extraction request: %w: %v", domain.ErrExtractionFailed, err)
		}
		if len(resp.Choices) == 0 {
			metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "error").Inc()
			return domain.Features{}, fmt.Errorf("extraction response has no choices: %w", domain.ErrExtractionFailed)
		}

		features, err := parseFeatures(resp.Choices[0].Message.Content)
		if err == nil {
			metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "success").Inc()
			return features, nil
		}

		lastErr = err
		e.logger.Warn("malformed extraction output, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "error").Inc()
	return domain.Features{}, fmt.Errorf("extraction output stayed malformed after %d attempts: %w: %v",
		extractionMaxAttempts, domain.ErrExtractionFailed, lastErr)
}

// featuresWire mirrors the prompt schema. date_range arrives as a two-element
// array rather than an object, so it is mapped by hand.
type featuresWire struct {
	MovieOrSeries     string   `json:"movie_or_series"`
	Genres            []string `json:"genres"`
	NegativeGenres    []string `json:"negative_genres"`
	QualityLevel      string   `json:"quality_level"`
	PositiveThemes    string   `json:"positive_themes"`
	NegativeThemes    string   `json:"negative_themes"`
	DateRange         []int    `json:"date_range"`
	MinRuntimeMinutes *int     `json:"min_runtime_minutes"`
	MaxRuntimeMinutes *int     `json:"max_runtime_minutes"`
	CountryOfOrigin   []string `json:"country_of_origin"`
	UnwantedCountries []string `json:"unwanted_countries"`
	PromptTitle       string   `json:"prompt_title"`
}

func parseFeatures(raw string) (domain.Features, error) {
	var wire featuresWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return domain.Features{}, fmt.Errorf("unmarshal features: %w", err)
	}

	f := domain.Features{
		MovieOrSeries:     domain.MovieOrSeries(wire.MovieOrSeries),
		Genres:            wire.Genres,
		NegativeGenres:    wire.NegativeGenres,
		QualityLevel:      domain.QualityLevel(wire.QualityLevel),
		PositiveThemes:    wire.PositiveThemes,
		NegativeThemes:    wire.NegativeThemes,
		MinRuntimeMinutes: wire.MinRuntimeMinutes,
		MaxRuntimeMinutes: wire.MaxRuntimeMinutes,
		CountryOfOrigin:   wire.CountryOfOrigin,
		UnwantedCountries: wire.UnwantedCountries,
		PromptTitle:       wire.PromptTitle,
	}
	if len(wire.DateRange) == 2 {
		f.DateRange = &domain.DateRange{MinYear: wire.DateRange[0], MaxYear: wire.DateRange[1]}
	}
	f.Normalize()

	return f, nil
}
