// Package rating converts the rating conventions used by RecordCrate clients
// into the canonical 0-100 overall percentage stored with each review.
//
// Two conventions coexist in historical data: current clients send a 0-100
// percentage (or per-track 0-5 star ratings, half-star granularity), while
// records written under the old convention stored the overall score directly
// on a 0-5 scale. Every write path passes through ClampPercent and every read
// of a stored overall rating passes through NormalizeStored, so the rest of
// the codebase only ever sees canonical percentages.
package rating

import (
	"errors"
	"math"
)

// ErrEmptySongRatings is returned by StarsToPercent when no track ratings are
// supplied; callers must provide a direct percentage instead.
var ErrEmptySongRatings = errors.New("no song ratings to aggregate")

// SongRating is a single per-track star rating, 0-5 in half-star steps.
type SongRating struct {
	TrackID   string  `json:"trackId"`
	TrackName string  `json:"trackName"`
	Rating    float64 `json:"rating"`
}

// legacyMax is the documented range-check guard for the old 0-5 overall
// convention: a stored overall rating at or below this value is assumed to
// predate the percent convention. Canonical percentages below 6 cannot be
// produced by the star scale's granularity, so the check is applied once at
// read time and never re-applied to already-migrated data.
const legacyMax = 5

// StarsToPercent aggregates per-track star ratings into an overall percent.
// Each rating is independently snapped to the nearest half star and clamped
// to the 0-5 scale before averaging; the 0-5 mean is scaled by 20 and rounded.
func StarsToPercent(ratings []SongRating) (int, error) {
	if len(ratings) == 0 {
		return 0, ErrEmptySongRatings
	}

	var sum float64
	for _, r := range ratings {
		sum += SnapStars(r.Rating)
	}
	mean := sum / float64(len(ratings))
	return int(math.Round(mean * 20)), nil
}

// SnapStars rounds a star rating to the nearest representable half star and
// clamps it to [0, 5].
func SnapStars(stars float64) float64 {
	if math.IsNaN(stars) {
		return 0
	}
	snapped := math.Round(stars*2) / 2
	if snapped < 0 {
		return 0
	}
	if snapped > 5 {
		return 5
	}
	return snapped
}

// ClampPercent rounds to the nearest integer and clamps to [0, 100]. It is
// idempotent and is applied to every externally supplied overall rating
// before persistence.
func ClampPercent(value float64) int {
	if math.IsNaN(value) {
		return 0
	}
	rounded := int(math.Round(value))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// LegacyFiveScaleToPercent converts an overall rating stored under the old
// 0-5 convention to a percent.
func LegacyFiveScaleToPercent(value float64) int {
	return ClampPercent(value * 20)
}

// NormalizeStored migrates a stored overall rating to the percent convention
// when it falls inside the legacy range. Values above the legacy guard are
// returned clamped but otherwise untouched.
func NormalizeStored(value float64) int {
	if value <= legacyMax {
		return LegacyFiveScaleToPercent(value)
	}
	return ClampPercent(value)
}
