package domain

import "strings"

// TitleType is the catalog entry kind as recorded in the dataset.
type TitleType string

// Title types present in the catalog.
const (
	TitleMovie      TitleType = "movie"
	TitleTVMovie    TitleType = "tvMovie"
	TitleVideo      TitleType = "video"
	TitleTVSeries   TitleType = "tvSeries"
	TitleMiniSeries TitleType = "tvMiniSeries"
)

// IsMovie reports whether the type belongs to the movie group.
func (t TitleType) IsMovie() bool {
	return t == TitleMovie || t == TitleTVMovie || t == TitleVideo
}

// IsSeries reports whether the type belongs to the series group.
func (t TitleType) IsSeries() bool {
	return t == TitleTVSeries || t == TitleMiniSeries
}

// CatalogItem is one recommendable entry. Immutable for the lifetime of a
// query; the catalog slice is shared between concurrent requests and must
// never be mutated after load.
type CatalogItem struct {
	ID              string
	Title           string
	TitleType       TitleType
	StartYear       int
	RuntimeMinutes  *int // absent when the source column is null or unparseable
	Genres          []string
	AverageRating   float64
	NumVotes        int
	Overview        string
	CountryOfOrigin []string
	Embedding       []float32 // same dimensionality across all loaded rows
	FinalScore      *float64  // precomputed catalog-quality scalar, may be absent
}

// HasGenre reports case-insensitive membership in the item's genre set.
func (c *CatalogItem) HasGenre(genre string) bool {
	for _, g := range c.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// HasCountry reports exact-match membership in the item's country set.
func (c *CatalogItem) HasCountry(country string) bool {
	for _, co := range c.CountryOfOrigin {
		if co == country {
			return true
		}
	}
	return false
}

// SplitSet splits a comma-separated dataset column into a trimmed set.
// Empty and "\\N" (dataset null marker) values yield nil.
func SplitSet(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == `\N` {
		return nil
	}
	parts := strings.Split(raw, ",")
	set := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			set = append(set, p)
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}
