package catalog

import (
	"context"

	"github.com/reelrank/reelrank/internal/domain"
)

// Store is the in-memory catalog. Immutable after Load; safe for
// concurrent readers without locking.
type Store struct {
	items []domain.CatalogItem
	dim   int
}

// Items returns the shared read-only catalog slice. Callers must not
// mutate the returned items.
func (s *Store) Items() []domain.CatalogItem { return s.items }

// Len returns the number of loaded items.
func (s *Store) Len() int { return len(s.items) }

// Dimension returns the embedding dimensionality of the catalog.
func (s *Store) Dimension() int { return s.dim }

// Ping reports readiness for health checks.
func (s *Store) Ping(_ context.Context) error { return nil }
