// Package query filters the active camera dataset. All operations are
// pure functions over an entry slice and never fail: an empty dataset
// yields empty results.
package query

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/DukesR8/Camera-Database/internal/model"
)

// DefaultRadiusM is the radius applied when a caller does not supply one.
const DefaultRadiusM = 20000.0

// DefaultDisplayCap bounds the number of display items produced.
const DefaultDisplayCap = 100

// metersPerDegree approximates one degree of latitude.
const metersPerDegree = 111000.0

// Distance returns the great-circle distance in meters between a
// location and an entry.
func Distance(loc model.Coordinate, e model.Entry) float64 {
	return geo.Distance(
		orb.Point{loc.Longitude, loc.Latitude},
		orb.Point{e.Longitude, e.Latitude},
	)
}

// Near returns the entries within radiusM meters of loc, preserving the
// input order. No spatial index; a linear scan is the intended shape at
// one partition's dataset size.
func Near(entries []model.Entry, loc model.Coordinate, radiusM float64) []model.Entry {
	out := make([]model.Entry, 0)
	for _, e := range entries {
		if Distance(loc, e) <= radiusM {
			out = append(out, e)
		}
	}
	return out
}

// InBoundingRegion returns the entries inside an angular span centered
// on center, by converting the span to an approximate radius and
// delegating to Near.
func InBoundingRegion(entries []model.Entry, center model.Coordinate, latSpan, lonSpan float64) []model.Entry {
	span := latSpan
	if lonSpan > span {
		span = lonSpan
	}
	return Near(entries, center, span*metersPerDegree/2)
}

// ByType returns the entries whose type matches exactly.
func ByType(entries []model.Entry, t model.CameraType) []model.Entry {
	out := make([]model.Entry, 0)
	for _, e := range entries {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// ToDisplayItems computes Near, truncates to limit in collection
// order, and maps to the display projection. Which matches are dropped
// beyond the limit follows the underlying order and is otherwise
// unspecified.
func ToDisplayItems(entries []model.Entry, loc model.Coordinate, radiusM float64, limit int) []model.DisplayItem {
	matches := Near(entries, loc, radiusM)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	items := make([]model.DisplayItem, 0, len(matches))
	for _, e := range matches {
		items = append(items, model.DisplayItem{
			ID:          e.ID,
			Latitude:    e.Latitude,
			Longitude:   e.Longitude,
			Type:        e.Type,
			Direction:   e.DirectionLabel(),
			Description: e.Description,
			Timestamp:   e.Timestamp,
			Source:      model.DisplaySource,
		})
	}
	return items
}
