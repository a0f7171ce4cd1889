package domain

// MovieOrSeries narrows the catalog to one title group.
type MovieOrSeries string

// Title group selectors.
const (
	WantMovie  MovieOrSeries = "movie"
	WantSeries MovieOrSeries = "series"
	WantBoth   MovieOrSeries = "both"
)

// Default date range applied when the extractor gives none.
const (
	DefaultMinYear = 1900
	DefaultMaxYear = 2025
)

// Features is the structured interpretation of a free-text query. It is
// built once per query, consumed by the filter and ranking stages, and
// discarded; nothing here is shared across queries.
//
// Optional scalar fields are pointers so that a JSON round-trip preserves
// the absent-vs-set distinction; list fields keep nil and empty distinct
// on the wire (null vs []).
type Features struct {
	MovieOrSeries     MovieOrSeries `json:"movie_or_series"`
	Genres            []string      `json:"genres"`
	NegativeGenres    []string      `json:"negative_genres"`
	QualityLevel      QualityLevel  `json:"quality_level"`
	PositiveThemes    string        `json:"positive_themes"`
	NegativeThemes    string        `json:"negative_themes,omitempty"`
	DateRange         *DateRange    `json:"date_range,omitempty"`
	MinRuntimeMinutes *int          `json:"min_runtime_minutes,omitempty"`
	MaxRuntimeMinutes *int          `json:"max_runtime_minutes,omitempty"`
	CountryOfOrigin   []string      `json:"country_of_origin"`
	UnwantedCountries []string      `json:"unwanted_countries"`
	PromptTitle       string        `json:"prompt_title,omitempty"`
}

// DateRange is an inclusive [MinYear, MaxYear] production-year window.
type DateRange struct {
	MinYear int `json:"min_year"`
	MaxYear int `json:"max_year"`
}

// DefaultFeatures is the documented extraction-failure fallback: no
// constraints beyond the full default date range.
func DefaultFeatures() Features {
	return Features{
		MovieOrSeries: WantBoth,
		QualityLevel:  QualityAny,
		DateRange:     &DateRange{MinYear: DefaultMinYear, MaxYear: DefaultMaxYear},
	}
}

// Normalize validates field domains at the extractor boundary and coerces
// out-of-domain values to their documented defaults. Unknown enum values
// never reach the filter stages.
func (f *Features) Normalize() {
	switch f.MovieOrSeries {
	case WantMovie, WantSeries, WantBoth:
	default:
		f.MovieOrSeries = WantBoth
	}

	if _, ok := qualityTiers[f.QualityLevel]; !ok {
		f.QualityLevel = QualityAny
	}

	if f.DateRange != nil {
		if f.DateRange.MinYear > f.DateRange.MaxYear {
			f.DateRange.MinYear, f.DateRange.MaxYear = f.DateRange.MaxYear, f.DateRange.MinYear
		}
		if f.DateRange.MinYear <= 0 {
			f.DateRange.MinYear = DefaultMinYear
		}
		if f.DateRange.MaxYear <= 0 {
			f.DateRange.MaxYear = DefaultMaxYear
		}
	}

	f.MinRuntimeMinutes = dropNegative(f.MinRuntimeMinutes)
	f.MaxRuntimeMinutes = dropNegative(f.MaxRuntimeMinutes)
	if f.MinRuntimeMinutes != nil && f.MaxRuntimeMinutes != nil &&
		*f.MinRuntimeMinutes > *f.MaxRuntimeMinutes {
		f.MinRuntimeMinutes, f.MaxRuntimeMinutes = f.MaxRuntimeMinutes, f.MinRuntimeMinutes
	}
}

// HasRuntimeBounds reports whether the runtime stage applies.
func (f *Features) HasRuntimeBounds() bool {
	return f.MinRuntimeMinutes != nil || f.MaxRuntimeMinutes != nil
}

// HasCountryConstraints reports whether the country stage applies.
func (f *Features) HasCountryConstraints() bool {
	return len(f.CountryOfOrigin) > 0 || len(f.UnwantedCountries) > 0
}

func dropNegative(v *int) *int {
	if v != nil && *v < 0 {
		return nil
	}
	return v
}
