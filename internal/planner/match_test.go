package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"saquabus.org/internal/geo"
	"saquabus.org/internal/transit"
)

func routeOf(lineID int64, points ...geo.Coordinate) []transit.RouteStop {
	out := make([]transit.RouteStop, len(points))
	for i, p := range points {
		id := string(rune('A' + i))
		out[i] = transit.RouteStop{
			Stop:     transit.Stop{ID: id, Name: id, Location: p},
			LineID:   lineID,
			Sequence: i + 1,
		}
	}
	return out
}

func TestMatchLine(t *testing.T) {
	a, b, c, d := stopAt(1), stopAt(3), stopAt(5), stopAt(7)
	line := transit.Line{ID: 1, Number: "1"}
	route := routeOf(1, a, b, c, d)

	tests := []struct {
		name          string
		rider, dest   geo.Coordinate
		wantOK        bool
		wantBoarding  string
		wantAlighting string
		wantSegment   []string
	}{
		{name: "forward", rider: b, dest: d, wantOK: true, wantBoarding: "B", wantAlighting: "D", wantSegment: []string{"B", "C", "D"}},
		{name: "adjacent", rider: a, dest: b, wantOK: true, wantBoarding: "A", wantAlighting: "B", wantSegment: []string{"A", "B"}},
		{name: "backwards", rider: d, dest: b, wantOK: false},
		{name: "same stop", rider: c, dest: c, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchLine(line, route, tt.rider, tt.dest)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantBoarding, got.Boarding.ID)
			assert.Equal(t, tt.wantAlighting, got.Alighting.ID)
			assert.Equal(t, tt.wantSegment, segmentIDs(got.Segment))
			assert.Equal(t, line, got.Line)
		})
	}
}

func TestMatchLine_TieGoesToLowerSequence(t *testing.T) {
	// a loop line passing the same point twice
	p, q, r := stopAt(1), stopAt(4), stopAt(8)
	route := routeOf(1, p, q, p, r)

	got, ok := MatchLine(transit.Line{ID: 1}, route, p, r)
	require.True(t, ok)
	assert.Equal(t, 1, got.Boarding.Sequence)
	assert.Equal(t, 4, got.Alighting.Sequence)
	assert.Len(t, got.Segment, 4)
}

func TestMatchLine_EmptyRoute(t *testing.T) {
	_, ok := MatchLine(transit.Line{ID: 1}, nil, stopAt(1), stopAt(2))
	assert.False(t, ok)
}

func TestMatchLine_Distances(t *testing.T) {
	route := routeOf(1, stopAt(1), stopAt(5), stopAt(9))
	rider := geo.Coordinate{Latitude: stopAt(1).Latitude + 0.002, Longitude: stopAt(1).Longitude}

	got, ok := MatchLine(transit.Line{ID: 1}, route, rider, stopAt(9))
	require.True(t, ok)
	assert.InDelta(t, geo.DistanceKm(rider, stopAt(1)), got.BoardingDistanceKm, 1e-12)
	assert.InDelta(t, 0, got.AlightingDistanceKm, 1e-12)
	assert.InDelta(t, got.BoardingDistanceKm, Cost(got), 1e-12)
}

func TestCandidateLines(t *testing.T) {
	f := fixture{
		extraLines: []transit.Line{
			{ID: 5, Number: "5"},
			{ID: 7, Number: "7"},
		},
		extraRoutes: []transit.StopOnRoute{
			{LineID: 7, StopID: "2", Sequence: 1},
			{LineID: 7, StopID: "8", Sequence: 2},
			// line 5 never reaches the destination side
			{LineID: 5, StopID: "2", Sequence: 1},
			{LineID: 5, StopID: "3", Sequence: 2},
		},
	}
	net := f.snapshot()

	origin := FindNearest(stopAt(2), net.StopsNear(stopAt(2), 0.5), NearestOptions{})
	dest := FindNearest(stopAt(8), net.StopsNear(stopAt(8), 0.5), NearestOptions{})

	assert.Equal(t, []int64{7, 21}, CandidateLines(origin, dest, net))
	assert.Empty(t, CandidateLines(origin, nil, net))
}

func TestMatchRoutes_DropsBackwardLines(t *testing.T) {
	f := fixture{
		extraLines: []transit.Line{{ID: 12, Number: "12", Origin: "MOMBAÇA", Destination: "BACAXÁ"}},
		extraRoutes: []transit.StopOnRoute{
			{LineID: 12, StopID: "8", Sequence: 1},
			{LineID: 12, StopID: "2", Sequence: 2},
		},
	}
	net := f.snapshot()

	got := MatchRoutes(net, []int64{12, 21, 99}, stopAt(2), stopAt(8))
	require.Len(t, got, 1)
	assert.Equal(t, "21", got[0].Line.Number)
}
