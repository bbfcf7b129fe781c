package maps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"saquabus.org/internal/cache"
	"saquabus.org/internal/geo"
	"saquabus.org/internal/metrics"
	"saquabus.org/internal/planner"
)

type countingGeocoder struct {
	calls int
	loc   geo.Coordinate
	err   error
}

func (g *countingGeocoder) Geocode(context.Context, string) (geo.Coordinate, error) {
	g.calls++
	return g.loc, g.err
}

type countingTravel struct {
	calls int
	est   planner.TravelEstimate
	err   error
}

func (c *countingTravel) TravelDuration(context.Context, geo.Coordinate, geo.Coordinate, planner.TravelMode) (planner.TravelEstimate, error) {
	c.calls++
	return c.est, c.err
}

func TestCachedGeocoder(t *testing.T) {
	ctx := context.Background()
	next := &countingGeocoder{loc: geo.Coordinate{Latitude: -22.93, Longitude: -42.49}}
	m := metrics.New()
	g := NewCachedGeocoder(next, cache.NewMemoryCache(10), time.Hour, m)

	for range 3 {
		got, err := g.Geocode(ctx, "Praia de Itaúna")
		require.NoError(t, err)
		assert.Equal(t, next.loc, got)
	}
	assert.Equal(t, 1, next.calls)

	_, err := g.Geocode(ctx, "  praia de ITAÚNA")
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls, "normalized address shares the entry")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("geocode", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("geocode", "miss")))
}

func TestCachedGeocoder_Misses(t *testing.T) {
	ctx := context.Background()

	notFound := &countingGeocoder{err: planner.ErrDestinationNotFound}
	g := NewCachedGeocoder(notFound, cache.NewMemoryCache(10), time.Hour, nil)
	for range 2 {
		_, err := g.Geocode(ctx, "Rua Inexistente")
		assert.ErrorIs(t, err, planner.ErrDestinationNotFound)
	}
	assert.Equal(t, 1, notFound.calls, "misses are remembered")

	failing := &countingGeocoder{err: errors.New("timeout")}
	g = NewCachedGeocoder(failing, cache.NewMemoryCache(10), time.Hour, nil)
	for range 2 {
		_, err := g.Geocode(ctx, "Bacaxá")
		assert.Error(t, err)
	}
	assert.Equal(t, 2, failing.calls, "failures are retried")
}

func TestCachedTravelTimer(t *testing.T) {
	ctx := context.Background()
	next := &countingTravel{est: planner.TravelEstimate{Duration: 5 * time.Minute, DurationInTraffic: 7 * time.Minute, DurationText: "7 min"}}
	tt := NewCachedTravelTimer(next, cache.NewMemoryCache(10), time.Minute, nil)

	from := geo.Coordinate{Latitude: -22.92, Longitude: -42.48}
	to := geo.Coordinate{Latitude: -22.913, Longitude: -42.424}

	for range 2 {
		est, err := tt.TravelDuration(ctx, from, to, planner.Driving)
		require.NoError(t, err)
		assert.Equal(t, next.est, est)
	}
	assert.Equal(t, 1, next.calls)

	_, err := tt.TravelDuration(ctx, from, to, planner.Walking)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls, "modes are cached separately")

	next.err = errors.New("quota exceeded")
	_, err = tt.TravelDuration(ctx, to, from, planner.Driving)
	assert.Error(t, err)
}
