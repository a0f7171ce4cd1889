package reelrank

import (
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/usecase/recommend"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	catalogPath string

	apiKey         string
	baseURL        string
	embeddingModel string
	extractorModel string

	embedder  Embedder
	extractor recommend.Extractor
	posters   recommend.PosterResolver

	redisAddrs    []string
	redisPassword string

	defaultTopK int
	maxTopK     int

	logger *zap.Logger
}

// WithCatalog sets the parquet catalog path. Required.
func WithCatalog(path string) Option {
	return func(c *clientConfig) {
		c.catalogPath = path
	}
}

// WithOpenAI configures the OpenAI-compatible provider used for both
// embeddings and feature extraction. baseURL may be empty for the public
// endpoint.
func WithOpenAI(apiKey, baseURL, embeddingModel, extractorModel string) Option {
	return func(c *clientConfig) {
		c.apiKey = apiKey
		c.baseURL = baseURL
		c.embeddingModel = embeddingModel
		c.extractorModel = extractorModel
	}
}

// WithEmbedder overrides the embedding provider.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithExtractor overrides the feature extraction provider.
func WithExtractor(e recommend.Extractor) Option {
	return func(c *clientConfig) {
		c.extractor = e
	}
}

// WithPosters attaches a best-effort poster resolver.
func WithPosters(p recommend.PosterResolver) Option {
	return func(c *clientConfig) {
		c.posters = p
	}
}

// WithRedisCache enables the embedding cache backed by Redis.
func WithRedisCache(addr, password string) Option {
	return func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	}
}

// WithTopK sets the default and maximum result counts.
func WithTopK(defaultTopK, maxTopK int) Option {
	return func(c *clientConfig) {
		c.defaultTopK = defaultTopK
		c.maxTopK = maxTopK
	}
}

// WithLogger enables structured logging for client operations.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}
