// Package reelrank embeds the recommendation pipeline as a library: load a
// catalog, point it at an OpenAI-compatible provider, and ask for
// recommendations without running the HTTP server.
package reelrank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/db"
	dbRedis "github.com/reelrank/reelrank/internal/db/redis"
	"github.com/reelrank/reelrank/internal/domain"
	catalogrepo "github.com/reelrank/reelrank/internal/repository/catalog"
	"github.com/reelrank/reelrank/internal/repository/embcache"
	openaiTransport "github.com/reelrank/reelrank/internal/transport/openai"
	"github.com/reelrank/reelrank/internal/usecase/rank"
	"github.com/reelrank/reelrank/internal/usecase/recommend"
)

const defaultReadinessTimeout = 10 * time.Second

// Response is the recommendation output returned by Client.Recommend.
type Response = recommend.Response

// Item is one recommendation record.
type Item = recommend.Item

// Client is the reelrank SDK entry point.
type Client struct {
	store   db.Store
	catalog *catalogrepo.Store
	svc     *recommend.Service
}

// New creates a reelrank Client: loads the catalog and wires the pipeline.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{logger: zap.NewNop()}
	for _, o := range opts {
		o(cfg)
	}

	if cfg.catalogPath == "" {
		return nil, errors.New("reelrank: catalog path required (use WithCatalog)")
	}
	if cfg.embedder == nil && cfg.apiKey == "" {
		return nil, errors.New("reelrank: provider required (use WithOpenAI or WithEmbedder)")
	}

	catalog, err := catalogrepo.Load(cfg.catalogPath, cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("reelrank: load catalog: %w", err)
	}

	var store db.Store
	if len(cfg.redisAddrs) > 0 {
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.redisAddrs,
			Password: cfg.redisPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("reelrank: create cache store: %w", err)
		}
		if err := redisStore.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
			redisStore.Close()
			return nil, fmt.Errorf("reelrank: cache not ready: %w", err)
		}
		store = redisStore
	}

	svc := wireService(catalog, store, cfg)

	return &Client{store: store, catalog: catalog, svc: svc}, nil
}

func wireService(catalog *catalogrepo.Store, store db.Store, cfg *clientConfig) *recommend.Service {
	embedder := cfg.embedder
	if embedder == nil {
		embedder = openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
			APIKey:     cfg.apiKey,
			BaseURL:    cfg.baseURL,
			Model:      cfg.embeddingModel,
			Dimensions: catalog.Dimension(),
			Provider:   "openai",
			Logger:     cfg.logger,
		})
	}
	if store != nil {
		embedder = embcache.New(embedder, store, nil, cfg.logger)
	}

	extractor := cfg.extractor
	if extractor == nil {
		extractor = openaiTransport.NewExtractor(&openaiTransport.ExtractorConfig{
			APIKey:  cfg.apiKey,
			BaseURL: cfg.baseURL,
			Model:   cfg.extractorModel,
			Logger:  cfg.logger,
		})
	}

	svc := recommend.New(catalog, extractor, rank.New(embedder), cfg.logger)
	if cfg.defaultTopK > 0 || cfg.maxTopK > 0 {
		svc = svc.WithLimits(cfg.defaultTopK, cfg.maxTopK)
	}
	if cfg.posters != nil {
		svc = svc.WithPosters(cfg.posters)
	}
	return svc
}

// Recommend runs the pipeline for one query. topK <= 0 uses the default.
func (c *Client) Recommend(ctx context.Context, query string, topK int) Response {
	return c.svc.Recommend(ctx, query, topK)
}

// CatalogSize returns the number of loaded catalog items.
func (c *Client) CatalogSize() int {
	return c.catalog.Len()
}

// Close releases the cache connection if one was configured.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Embedder is re-exported for custom provider injection.
type Embedder = domain.Embedder
