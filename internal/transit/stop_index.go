package transit

import (
	"slices"

	"github.com/tidwall/rtree"
	"saquabus.org/internal/geo"
)

// StopIndex is an R-tree over stop positions keyed by their position in the stop slice.
type StopIndex struct {
	tree  rtree.RTreeG[int]
	stops []Stop
}

func buildStopIndex(stops []Stop) *StopIndex {
	idx := &StopIndex{stops: stops}
	for i, s := range stops {
		p := [2]float64{s.Location.Longitude, s.Location.Latitude}
		idx.tree.Insert(p, p, i)
	}
	return idx
}

// Within returns the stops strictly closer than radiusKm to point, in stop slice order.
func (idx *StopIndex) Within(point geo.Coordinate, radiusKm float64) []Stop {
	if radiusKm <= 0 || !point.Valid() {
		return nil
	}
	b := geo.BoundsAround(point, radiusKm)

	var hits []int
	for _, lon := range b.LonRanges() {
		idx.tree.Search(
			[2]float64{lon[0], b.MinLat},
			[2]float64{lon[1], b.MaxLat},
			func(_, _ [2]float64, i int) bool {
				hits = append(hits, i)
				return true
			})
	}

	slices.Sort(hits)
	hits = slices.Compact(hits)
	out := make([]Stop, 0, len(hits))
	for _, i := range hits {
		s := idx.stops[i]
		if geo.DistanceKm(point, s.Location) < radiusKm {
			out = append(out, s)
		}
	}
	return out
}

func (idx *StopIndex) Len() int {
	return idx.tree.Len()
}
