package maps

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"saquabus.org/internal/cache"
	"saquabus.org/internal/geo"
	"saquabus.org/internal/metrics"
	"saquabus.org/internal/planner"
)

type geocodeEntry struct {
	Found    bool           `json:"found"`
	Location geo.Coordinate `json:"location"`
}

// CachedGeocoder remembers answers, misses included, for ttl. Cache failures fall through
// to the wrapped geocoder.
type CachedGeocoder struct {
	next    planner.Geocoder
	store   cache.Store
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewCachedGeocoder(next planner.Geocoder, store cache.Store, ttl time.Duration, m *metrics.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		next:    next,
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With(slog.String("component", "geocode_cache")),
	}
}

func (g *CachedGeocoder) Geocode(ctx context.Context, address string) (geo.Coordinate, error) {
	key := cache.KeyGeocode(address)

	var entry geocodeEntry
	hit, err := cache.GetJSON(ctx, g.store, key, &entry)
	if err != nil {
		g.logger.Warn("cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	g.metrics.RecordCache("geocode", hit)
	if hit {
		if !entry.Found {
			return geo.Coordinate{}, planner.ErrDestinationNotFound
		}
		return entry.Location, nil
	}

	loc, err := g.next.Geocode(ctx, address)
	switch {
	case errors.Is(err, planner.ErrDestinationNotFound):
		entry = geocodeEntry{Found: false}
	case err != nil:
		return geo.Coordinate{}, err
	default:
		entry = geocodeEntry{Found: true, Location: loc}
	}
	if serr := cache.SetJSON(ctx, g.store, key, entry, g.ttl); serr != nil {
		g.logger.Warn("cache write failed", slog.String("key", key), slog.String("error", serr.Error()))
	}
	return loc, err
}

// CachedTravelTimer remembers successful travel estimates for ttl. Failures are not cached.
type CachedTravelTimer struct {
	next    planner.TravelTimer
	store   cache.Store
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewCachedTravelTimer(next planner.TravelTimer, store cache.Store, ttl time.Duration, m *metrics.Metrics) *CachedTravelTimer {
	return &CachedTravelTimer{
		next:    next,
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With(slog.String("component", "travel_cache")),
	}
}

func (t *CachedTravelTimer) TravelDuration(ctx context.Context, origin, destination geo.Coordinate, mode planner.TravelMode) (planner.TravelEstimate, error) {
	key := cache.KeyTravel(string(mode), origin.Latitude, origin.Longitude, destination.Latitude, destination.Longitude)

	var est planner.TravelEstimate
	hit, err := cache.GetJSON(ctx, t.store, key, &est)
	if err != nil {
		t.logger.Warn("cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	t.metrics.RecordCache("travel", hit)
	if hit {
		return est, nil
	}

	est, err = t.next.TravelDuration(ctx, origin, destination, mode)
	if err != nil {
		return planner.TravelEstimate{}, err
	}
	if serr := cache.SetJSON(ctx, t.store, key, est, t.ttl); serr != nil {
		t.logger.Warn("cache write failed", slog.String("key", key), slog.String("error", serr.Error()))
	}
	return est, nil
}
