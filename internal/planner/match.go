package planner

import (
	"sort"

	"saquabus.org/internal/geo"
	"saquabus.org/internal/transit"
)

// Candidate is a line that can carry the rider from near the origin to near the
// destination in its direction of travel.
type Candidate struct {
	Line      transit.Line        `json:"line"`
	Boarding  transit.RouteStop   `json:"boardingStop"`
	Alighting transit.RouteStop   `json:"alightingStop"`
	Segment   []transit.RouteStop `json:"routeSegment"`

	BoardingDistanceKm  float64 `json:"boardingDistanceKm"`
	AlightingDistanceKm float64 `json:"alightingDistanceKm"`
}

// CandidateLines returns the distinct lines that serve at least one origin stop and at
// least one destination stop, in order of first appearance while walking the origin stops.
func CandidateLines(origin, destination []StopDistance, net Network) []int64 {
	atDestination := make(map[int64]bool)
	for _, s := range destination {
		for _, id := range net.LinesForStop(s.ID) {
			atDestination[id] = true
		}
	}

	seen := make(map[int64]bool)
	var lines []int64
	for _, s := range origin {
		for _, id := range net.LinesForStop(s.ID) {
			if atDestination[id] && !seen[id] {
				seen[id] = true
				lines = append(lines, id)
			}
		}
	}
	return lines
}

// MatchRoutes builds a Candidate for each line, dropping lines whose best alighting stop
// does not come after the best boarding stop.
func MatchRoutes(net Network, lineIDs []int64, rider, destination geo.Coordinate) []Candidate {
	var out []Candidate
	for _, id := range lineIDs {
		line, ok := net.Line(id)
		if !ok {
			continue
		}
		if c, ok := MatchLine(line, net.RouteStops(id), rider, destination); ok {
			out = append(out, c)
		}
	}
	return out
}

// MatchLine picks the stop closest to the rider for boarding and the stop closest to the
// destination for alighting, the lower sequence winning ties. It reports false when the
// alighting sequence is not greater than the boarding sequence.
func MatchLine(line transit.Line, stops []transit.RouteStop, rider, destination geo.Coordinate) (Candidate, bool) {
	boarding, boardingKm, ok := closestStop(stops, rider)
	if !ok {
		return Candidate{}, false
	}
	alighting, alightingKm, _ := closestStop(stops, destination)
	if alighting.Sequence <= boarding.Sequence {
		return Candidate{}, false
	}

	var segment []transit.RouteStop
	for _, s := range stops {
		if s.Sequence >= boarding.Sequence && s.Sequence <= alighting.Sequence {
			segment = append(segment, s)
		}
	}
	sort.SliceStable(segment, func(i, j int) bool { return segment[i].Sequence < segment[j].Sequence })

	return Candidate{
		Line:                line,
		Boarding:            boarding,
		Alighting:           alighting,
		Segment:             segment,
		BoardingDistanceKm:  boardingKm,
		AlightingDistanceKm: alightingKm,
	}, true
}

func closestStop(stops []transit.RouteStop, target geo.Coordinate) (transit.RouteStop, float64, bool) {
	var best transit.RouteStop
	bestKm := 0.0
	found := false
	for _, s := range stops {
		d := geo.DistanceKm(target, s.Location)
		if !found || d < bestKm || (d == bestKm && s.Sequence < best.Sequence) {
			best, bestKm, found = s, d, true
		}
	}
	return best, bestKm, found
}
