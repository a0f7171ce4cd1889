// Package filter narrows the catalog with the deterministic constraints of a
// parsed query. Every stage is a pure function of its inputs: the shared
// catalog is never mutated, per-query derived values live on the returned
// candidates.
package filter

import "github.com/reelrank/reelrank/internal/domain"

// genreMissPenalty is subtracted from the genre score per unwanted genre hit.
const genreMissPenalty = 0.5

// Candidate is a catalog item that survived filtering, annotated with its
// per-query genre score.
type Candidate struct {
	Item       domain.CatalogItem
	GenreScore float64
}

// Apply runs all filter stages and attaches genre scores. Stage order is
// not semantically significant: genre scoring annotates rather than
// filters, so partial-match and missing-genre rows still compete in
// ranking instead of being discarded.
func Apply(catalog []domain.CatalogItem, f domain.Features) []Candidate {
	out := make([]Candidate, 0, len(catalog))

	for i := range catalog {
		item := &catalog[i]

		if !typeAdmits(item, f.MovieOrSeries) {
			continue
		}
		if f.DateRange != nil && (item.StartYear < f.DateRange.MinYear || item.StartYear > f.DateRange.MaxYear) {
			continue
		}
		if !domain.TierFor(f.QualityLevel).Admits(item) {
			continue
		}
		if f.HasRuntimeBounds() && !runtimeAdmits(item, f.MinRuntimeMinutes, f.MaxRuntimeMinutes) {
			continue
		}
		if f.HasCountryConstraints() && !countryAdmits(item, f.CountryOfOrigin, f.UnwantedCountries) {
			continue
		}

		out = append(out, Candidate{
			Item:       *item,
			GenreScore: GenreScore(item, f.Genres, f.NegativeGenres),
		})
	}

	return out
}

// typeAdmits keeps rows in the movie group, the series group, or their
// union for "both". Rows in neither group are always dropped.
func typeAdmits(item *domain.CatalogItem, want domain.MovieOrSeries) bool {
	switch want {
	case domain.WantMovie:
		return item.TitleType.IsMovie()
	case domain.WantSeries:
		return item.TitleType.IsSeries()
	default:
		return item.TitleType.IsMovie() || item.TitleType.IsSeries()
	}
}

// GenreScore scores an item's genre overlap with the wanted and unwanted
// sets. The result is always in [0, 1]. With no opinion in the query (both
// sets empty) every row scores 0; rows with missing genre data score 0
// rather than erroring.
func GenreScore(item *domain.CatalogItem, wanted, unwanted []string) float64 {
	if len(wanted) == 0 && len(unwanted) == 0 {
		return 0
	}

	var positive, negative int
	for _, g := range wanted {
		if item.HasGenre(g) {
			positive++
		}
	}
	for _, g := range unwanted {
		if item.HasGenre(g) {
			negative++
		}
	}

	var score float64
	switch {
	case len(wanted) > 0:
		score = float64(positive) / float64(len(wanted))
	case positive > 0:
		score = 1
	}

	score -= genreMissPenalty * float64(negative)
	if score < 0 {
		score = 0
	}
	return score
}

// runtimeAdmits applies the runtime window. Rows without a parseable
// runtime are dropped once the stage is invoked.
func runtimeAdmits(item *domain.CatalogItem, minMinutes, maxMinutes *int) bool {
	if item.RuntimeMinutes == nil {
		return false
	}
	if minMinutes != nil && *item.RuntimeMinutes < *minMinutes {
		return false
	}
	if maxMinutes != nil && *item.RuntimeMinutes > *maxMinutes {
		return false
	}
	return true
}

// countryAdmits applies country constraints with exact string matching.
// Unwanted countries take precedence over wanted ones; rows without
// country data are dropped once the stage is invoked.
func countryAdmits(item *domain.CatalogItem, wanted, unwanted []string) bool {
	if len(item.CountryOfOrigin) == 0 {
		return false
	}
	for _, c := range unwanted {
		if item.HasCountry(c) {
			return false
		}
	}
	if len(wanted) == 0 {
		return true
	}
	for _, c := range wanted {
		if item.HasCountry(c) {
			return true
		}
	}
	return false
}
