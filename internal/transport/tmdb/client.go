// Package tmdb resolves poster artwork for catalog items via the TMDB
// find-by-external-id endpoint.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAPIBaseURL   = "https://api.themoviedb.org/3"
	defaultImageBaseURL = "https://image.tmdb.org/t/p/w500"
	defaultTimeout      = 5 * time.Second
)

// Client looks up poster paths by IMDb id.
type Client struct {
	apiKey       string
	apiBaseURL   string
	imageBaseURL string
	httpClient   *http.Client
	logger       *zap.Logger
}

// Config holds the TMDB client settings. Base URLs default to the public
// TMDB endpoints when empty.
type Config struct {
	APIKey       string
	APIBaseURL   string
	ImageBaseURL string
	Timeout      time.Duration
	Logger       *zap.Logger
}

// New creates a TMDB client.
func New(cfg *Config) *Client {
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = defaultAPIBaseURL
	}
	imageBase := cfg.ImageBaseURL
	if imageBase == "" {
		imageBase = defaultImageBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:       cfg.APIKey,
		apiBaseURL:   strings.TrimRight(apiBase, "/"),
		imageBaseURL: strings.TrimRight(imageBase, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		logger:       cfg.Logger,
	}
}

type findResponse struct {
	MovieResults []posterResult `json:"movie_results"`
	TVResults    []posterResult `json:"tv_results"`
}

type posterResult struct {
	PosterPath string `json:"poster_path"`
}

// PosterFor returns the poster URL for an IMDb id, or "" when TMDB knows
// no artwork for it. The id may come with or without the "tt" prefix.
func (c *Client) PosterFor(ctx context.Context, imdbID string) (string, error) {
	id := imdbID
	if !strings.HasPrefix(id, "tt") {
		id = "tt" + id
	}

	reqURL := fmt.Sprintf("%s/find/%s?external_source=imdb_id&api_key=%s",
		c.apiBaseURL, url.PathEscape(id), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("build find request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("find request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("find request: unexpected status %d", resp.StatusCode)
	}

	var found findResponse
	if err := json.NewDecoder(resp.Body).Decode(&found); err != nil {
		return "", fmt.Errorf("decode find response: %w", err)
	}

	path := firstPosterPath(found.MovieResults)
	if path == "" {
		path = firstPosterPath(found.TVResults)
	}
	if path == "" {
		c.logger.Debug("no poster for id", zap.String("imdb_id", id))
		return "", nil
	}

	return c.imageBaseURL + path, nil
}

func firstPosterPath(results []posterResult) string {
	for _, r := range results {
		if r.PosterPath != "" {
			return r.PosterPath
		}
	}
	return ""
}
