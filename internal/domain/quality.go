package domain

// QualityLevel is a named catalog-quality tier extracted from the query.
type QualityLevel string

// Known quality levels.
const (
	QualityLegendary  QualityLevel = "legendary"
	QualityClassic    QualityLevel = "classic"
	QualityPopular    QualityLevel = "popular"
	QualityNiche      QualityLevel = "niche"
	QualityCult       QualityLevel = "cult"
	QualityMainstream QualityLevel = "mainstream"
	QualityAny        QualityLevel = "any"
)

// defaultRatingWeight is the hybrid-score rating weight for unknown levels.
const defaultRatingWeight = 0.1

// QualityTier holds rating and vote-count bounds plus the ranking weight of
// one quality level. Absent bounds (nil) are pass-through.
type QualityTier struct {
	MinRating    *float64
	MaxRating    *float64
	MinVotes     *int
	MaxVotes     *int
	RatingWeight float64
}

// qualityTiers is the authoritative tier table. Loaded once, never mutated;
// both the filter and the ranking stage read from it.
var qualityTiers = map[QualityLevel]QualityTier{
	QualityLegendary:  {MinRating: fp(8.5), MinVotes: ip(100_000), RatingWeight: 0.30},
	QualityClassic:    {MinRating: fp(7.5), MinVotes: ip(50_000), RatingWeight: 0.25},
	QualityPopular:    {MinRating: fp(6.5), MinVotes: ip(10_000), RatingWeight: 0.20},
	QualityNiche:      {MinRating: fp(7.0), MaxVotes: ip(50_000), RatingWeight: -0.10},
	QualityCult:       {MinRating: fp(6.0), MaxVotes: ip(25_000), RatingWeight: -0.15},
	QualityMainstream: {MinRating: fp(5.5), MinVotes: ip(10_000), RatingWeight: 0.20},
	QualityAny:        {RatingWeight: 0.10},
}

// TierFor returns the tier for a level. Unknown levels resolve to the "any"
// tier: this silent fallthrough is a documented rule, an unrecognized level
// simply constrains nothing.
func TierFor(level QualityLevel) QualityTier {
	if tier, ok := qualityTiers[level]; ok {
		return tier
	}
	return qualityTiers[QualityAny]
}

// RatingWeightFor returns the hybrid-score rating weight for a level,
// defaulting to 0.1 for unknown levels.
func RatingWeightFor(level QualityLevel) float64 {
	if tier, ok := qualityTiers[level]; ok {
		return tier.RatingWeight
	}
	return defaultRatingWeight
}

// Admits reports whether an item satisfies every bound present in the tier.
func (t QualityTier) Admits(item *CatalogItem) bool {
	if t.MinRating != nil && item.AverageRating < *t.MinRating {
		return false
	}
	if t.MaxRating != nil && item.AverageRating > *t.MaxRating {
		return false
	}
	if t.MinVotes != nil && item.NumVotes < *t.MinVotes {
		return false
	}
	if t.MaxVotes != nil && item.NumVotes > *t.MaxVotes {
		return false
	}
	return true
}

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }
