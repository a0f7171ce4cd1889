package domain

import "time"

// Search status strings surfaced to the caller.
const (
	StatusCompleted  = "search completed"
	StatusNoResults  = "no results found with current filters"
	StatusEmptyQuery = "please enter some text"
)

// RankedResult is one scored candidate. Derived and read-only, built once
// per query per surviving candidate.
type RankedResult struct {
	Item        CatalogItem
	Similarity  float64 // raw cosine similarity, not clamped
	GenreScore  float64 // per-row genre score attached by the filter stage
	HybridScore float64
	FinalScore  *float64 // un-normalized pass-through
}

// RankResult is the ranking stage output.
type RankResult struct {
	Status          string
	Results         []RankedResult
	SearchTime      time.Duration
	TotalCandidates int
}
