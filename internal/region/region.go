// Package region maps a coordinate to the named geographic partition
// its camera data is published under.
package region

// ID is a stable string naming a geographic partition.
type ID string

// DefaultRegion is returned for coordinates outside every known box.
const DefaultRegion ID = "Alberta"

// Box is one axis-aligned degree bounding box mapped to a region.
// No geodesic correction; degree boxes are an accepted approximation.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
	Region         ID
}

// boxes is the ordered resolution table. Boxes are not guaranteed
// disjoint; the first match in table order wins, so ordering is a
// load-bearing invariant. Keep provinces ahead of the wide BC box and
// Saskatchewan ahead of Manitoba.
var boxes = []Box{
	// Canada
	{49.0, 60.0, -120.0, -110.0, "Alberta"},
	{48.3, 60.0, -139.1, -114.0, "BritishColumbia"},
	{49.0, 60.0, -110.0, -101.4, "Saskatchewan"},
	{49.0, 60.0, -102.0, -88.9, "Manitoba"},
	{41.7, 56.9, -95.2, -74.3, "Ontario"},
	{45.0, 62.6, -79.8, -57.1, "Quebec"},
	{44.6, 48.1, -69.1, -63.7, "NewBrunswick"},
	{43.4, 47.1, -66.4, -59.7, "NovaScotia"},
	// United States
	{24.4, 31.0, -87.6, -80.0, "Florida"},
	{40.5, 45.0, -79.8, -71.8, "NewYork"},
	{32.5, 42.0, -124.4, -114.1, "California"},
	{25.8, 36.5, -106.6, -93.5, "Texas"},
	{45.5, 49.0, -124.8, -116.9, "Washington"},
	{31.3, 37.0, -114.8, -109.0, "Arizona"},
	{41.7, 45.8, -87.0, -82.4, "Michigan"},
	{38.8, 41.0, -80.5, -74.7, "Pennsylvania"},
}

// Resolve returns the partition identifier for a coordinate. Pure and
// total: coordinates outside every box resolve to DefaultRegion.
func Resolve(lat, lon float64) ID {
	for _, b := range boxes {
		if lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon {
			return b.Region
		}
	}
	return DefaultRegion
}

// Table returns a copy of the resolution table, mostly for diagnostics.
func Table() []Box {
	out := make([]Box, len(boxes))
	copy(out, boxes)
	return out
}
