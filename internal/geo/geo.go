// Package geo holds coordinate math used by the planner: great-circle distance,
// bounding boxes for spatial prefiltering and polyline trimming.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Valid reports whether c lies inside the latitude and longitude ranges.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%f,%f", c.Latitude, c.Longitude)
}

// DistanceKm returns the haversine distance between a and b in kilometres.
// NaN inputs propagate to a NaN result.
func DistanceKm(a, b Coordinate) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	// rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, h)

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Bounds is an axis aligned box in degrees.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether c is inside b, edges included.
func (b Bounds) Contains(c Coordinate) bool {
	return c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat &&
		c.Longitude >= b.MinLon && c.Longitude <= b.MaxLon
}

// BoundsAround returns a box that contains every point within radiusKm of c.
// The box is a superset: callers still filter by DistanceKm.
func BoundsAround(c Coordinate, radiusKm float64) Bounds {
	angular := radiusKm / EarthRadiusKm
	latOffset := angular * 180 / math.Pi

	// widest longitude span of a spherical cap, reached north or south of c
	cosLat := math.Cos(toRadians(c.Latitude))
	lonOffset := 180.0
	if s := math.Sin(angular); s < cosLat {
		lonOffset = math.Asin(s/cosLat) * 180 / math.Pi
	}

	const margin = 1e-9
	return Bounds{
		MinLat: math.Max(-90, c.Latitude-latOffset-margin),
		MaxLat: math.Min(90, c.Latitude+latOffset+margin),
		MinLon: c.Longitude - lonOffset - margin,
		MaxLon: c.Longitude + lonOffset + margin,
	}
}

// LonRanges splits the box's longitude span into ranges inside [-180, 180]. A box
// that crosses the antimeridian yields two ranges.
func (b Bounds) LonRanges() [][2]float64 {
	switch {
	case b.MaxLon-b.MinLon >= 360:
		return [][2]float64{{-180, 180}}
	case b.MinLon < -180:
		return [][2]float64{{b.MinLon + 360, 180}, {-180, b.MaxLon}}
	case b.MaxLon > 180:
		return [][2]float64{{b.MinLon, 180}, {-180, b.MaxLon - 360}}
	default:
		return [][2]float64{{b.MinLon, b.MaxLon}}
	}
}

// BoundsOf returns the smallest box containing every point, or false for an empty slice.
func BoundsOf(points []Coordinate) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b := Bounds{
		MinLat: points[0].Latitude, MaxLat: points[0].Latitude,
		MinLon: points[0].Longitude, MaxLon: points[0].Longitude,
	}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Latitude)
		b.MaxLat = math.Max(b.MaxLat, p.Latitude)
		b.MinLon = math.Min(b.MinLon, p.Longitude)
		b.MaxLon = math.Max(b.MaxLon, p.Longitude)
	}
	return b, true
}
