package geo

import (
	"github.com/twpayne/go-polyline"
)

// DecodePolyline decodes a Google encoded polyline (precision 5).
func DecodePolyline(encoded string) ([]Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	path := make([]Coordinate, len(coords))
	for i, c := range coords {
		path[i] = Coordinate{Latitude: c[0], Longitude: c[1]}
	}
	return path, nil
}

// EncodePolyline encodes path as a Google encoded polyline (precision 5).
func EncodePolyline(path []Coordinate) string {
	coords := make([][]float64, len(path))
	for i, c := range path {
		coords[i] = []float64{c.Latitude, c.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// NearestVertex returns the index of the path vertex closest to target. Ties keep the
// lowest index. An empty path returns -1.
func NearestVertex(path []Coordinate, target Coordinate) int {
	best := -1
	bestDist := 0.0
	for i, p := range path {
		d := DistanceKm(p, target)
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// ExtractSegment returns the part of path ridden between boarding and alighting.
// When the alighting vertex does not come after the boarding vertex the whole path is
// returned, along with false.
func ExtractSegment(path []Coordinate, boarding, alighting Coordinate) ([]Coordinate, bool) {
	b := NearestVertex(path, boarding)
	a := NearestVertex(path, alighting)
	if b < 0 || a <= b {
		return path, false
	}
	return path[b : a+1], true
}

// TrimEncoded applies ExtractSegment to an encoded polyline and re-encodes the result.
// Empty, undecodable or non-forward polylines come back unchanged.
func TrimEncoded(encoded string, boarding, alighting Coordinate) string {
	path, err := DecodePolyline(encoded)
	if err != nil || len(path) == 0 {
		return encoded
	}
	segment, ok := ExtractSegment(path, boarding, alighting)
	if !ok {
		return encoded
	}
	return EncodePolyline(segment)
}
