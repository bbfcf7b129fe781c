package planner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"saquabus.org/internal/geo"
	"saquabus.org/internal/transit"
)

func ids(sds []StopDistance) []string {
	out := make([]string, len(sds))
	for i, s := range sds {
		out[i] = s.ID
	}
	return out
}

func TestFindNearest(t *testing.T) {
	stops := fixture{}.snapshot().Stops()

	tests := []struct {
		name string
		at   geo.Coordinate
		opts NearestOptions
		want []string
	}{
		{name: "limit", at: stopAt(5), opts: NearestOptions{Limit: 3}, want: []string{"5", "4", "6"}},
		{name: "radius", at: stopAt(5), opts: NearestOptions{RadiusKm: 0.5}, want: []string{"5"}},
		{name: "nothing in range", at: geo.Coordinate{Latitude: -22.5, Longitude: -42.0}, opts: NearestOptions{RadiusKm: 2}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FindNearest(tt.at, stops, tt.opts)))
		})
	}
}

func TestFindNearest_RadiusIsExclusive(t *testing.T) {
	stops := []transit.Stop{{ID: "a", Location: stopAt(1)}, {ID: "b", Location: stopAt(2)}}
	d := geo.DistanceKm(stopAt(1), stopAt(2))

	assert.Equal(t, []string{"a"}, ids(FindNearest(stopAt(1), stops, NearestOptions{RadiusKm: d})))
	assert.Equal(t, []string{"a", "b"}, ids(FindNearest(stopAt(1), stops, NearestOptions{RadiusKm: math.Nextafter(d, 2*d)})))
}

func TestFindNearest_TiesKeepInputOrder(t *testing.T) {
	p := stopAt(3)
	stops := []transit.Stop{{ID: "z", Location: p}, {ID: "a", Location: p}, {ID: "m", Location: p}}

	assert.Equal(t, []string{"z", "a", "m"}, ids(FindNearest(p, stops, NearestOptions{})))
	assert.Equal(t, []string{"z", "a"}, ids(FindNearest(p, stops, NearestOptions{Limit: 2})))
}

func TestFindNearest_SortedByDistance(t *testing.T) {
	got := FindNearest(stopAt(10), fixture{}.snapshot().Stops(), NearestOptions{})
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].DistanceKm, got[i].DistanceKm)
	}
	assert.Len(t, got, 10)
}
