package planner

import (
	"sort"

	"saquabus.org/internal/geo"
	"saquabus.org/internal/transit"
)

// NearestOptions bounds a proximity search. Zero values disable the bound.
type NearestOptions struct {
	RadiusKm float64
	Limit    int
}

type StopDistance struct {
	transit.Stop
	DistanceKm float64 `json:"distanceKm"`
}

// FindNearest ranks stops by distance from point. A positive radius keeps stops strictly
// closer than RadiusKm; a positive limit keeps the first Limit. Equal distances keep input
// order.
func FindNearest(point geo.Coordinate, stops []transit.Stop, opts NearestOptions) []StopDistance {
	out := make([]StopDistance, 0, len(stops))
	for _, s := range stops {
		d := geo.DistanceKm(point, s.Location)
		if opts.RadiusKm > 0 && !(d < opts.RadiusKm) {
			continue
		}
		out = append(out, StopDistance{Stop: s, DistanceKm: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}
