package domain

import "errors"

var (
	// ErrEmptyQuery signals a blank recommendation request.
	ErrEmptyQuery = errors.New("empty query")
	// ErrExtractionFailed signals that query understanding produced no usable features.
	ErrExtractionFailed = errors.New("feature extraction failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCatalogNotLoaded signals that the catalog has not been loaded yet.
	ErrCatalogNotLoaded = errors.New("catalog not loaded")
)
