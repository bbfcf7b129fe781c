// Package maps adapts the Google Maps web services to the planner's geocoding and travel
// time lookups.
package maps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	gmaps "googlemaps.github.io/maps"
	"saquabus.org/internal/appconf"
	"saquabus.org/internal/geo"
	"saquabus.org/internal/logging"
	"saquabus.org/internal/metrics"
	"saquabus.org/internal/planner"
)

const language = "pt-BR"

var ErrNotConfigured = errors.New("maps API key is not configured")

// Client answers planner.Geocoder and planner.TravelTimer with the Geocoding and Distance
// Matrix APIs.
type Client struct {
	gm      *gmaps.Client
	region  string
	bias    atomic.Pointer[geo.Bounds]
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewClient builds a client from configuration. Extra options are appended after the API
// key, which lets tests point the client at a local server.
func NewClient(cfg appconf.MapsConfig, m *metrics.Metrics, opts ...gmaps.ClientOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	gm, err := gmaps.NewClient(append([]gmaps.ClientOption{gmaps.WithAPIKey(cfg.APIKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Client{
		gm:      gm,
		region:  cfg.Region,
		metrics: m,
		logger:  slog.Default().With(slog.String("component", "google_maps")),
	}, nil
}

// BiasTo prefers geocoding results inside b, typically the box around the network. It is
// safe to call while lookups are in flight.
func (c *Client) BiasTo(b geo.Bounds) {
	c.bias.Store(&b)
}

func (c *Client) Geocode(ctx context.Context, address string) (geo.Coordinate, error) {
	req := &gmaps.GeocodingRequest{
		Address:  address,
		Region:   c.region,
		Language: language,
	}
	if b := c.bias.Load(); b != nil {
		req.Bounds = &gmaps.LatLngBounds{
			NorthEast: gmaps.LatLng{Lat: b.MaxLat, Lng: b.MaxLon},
			SouthWest: gmaps.LatLng{Lat: b.MinLat, Lng: b.MinLon},
		}
	}

	start := time.Now()
	results, err := c.gm.Geocode(ctx, req)
	switch {
	case isZeroResults(err), err == nil && len(results) == 0:
		c.metrics.RecordLookup("geocode", "not_found", time.Since(start))
		logging.LogOperation(c.logger, "geocode_no_results", slog.String("address", address))
		return geo.Coordinate{}, planner.ErrDestinationNotFound
	case err != nil:
		c.metrics.RecordLookup("geocode", "error", time.Since(start))
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", address, err)
	}

	c.metrics.RecordLookup("geocode", "ok", time.Since(start))
	loc := results[0].Geometry.Location
	return geo.Coordinate{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}

// TravelDuration asks the Distance Matrix for one origin/destination pair. Driving requests
// depart now so the answer carries a traffic aware duration.
func (c *Client) TravelDuration(ctx context.Context, origin, destination geo.Coordinate, mode planner.TravelMode) (planner.TravelEstimate, error) {
	req := &gmaps.DistanceMatrixRequest{
		Origins:      []string{latLng(origin)},
		Destinations: []string{latLng(destination)},
		Language:     language,
		Units:        gmaps.UnitsMetric,
	}
	switch mode {
	case planner.Walking:
		req.Mode = gmaps.TravelModeWalking
	default:
		req.Mode = gmaps.TravelModeDriving
		req.DepartureTime = "now"
		req.TrafficModel = gmaps.TrafficModelBestGuess
	}

	service := "travel_" + string(mode)
	start := time.Now()
	resp, err := c.gm.DistanceMatrix(ctx, req)
	if err != nil {
		c.metrics.RecordLookup(service, "error", time.Since(start))
		return planner.TravelEstimate{}, fmt.Errorf("distance matrix: %w", err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 || resp.Rows[0].Elements[0] == nil {
		c.metrics.RecordLookup(service, "error", time.Since(start))
		return planner.TravelEstimate{}, errors.New("distance matrix: empty response")
	}

	el := resp.Rows[0].Elements[0]
	if el.Status != "OK" {
		c.metrics.RecordLookup(service, "not_found", time.Since(start))
		return planner.TravelEstimate{}, fmt.Errorf("distance matrix: element status %s", el.Status)
	}
	c.metrics.RecordLookup(service, "ok", time.Since(start))

	est := planner.TravelEstimate{
		DistanceMeters:    el.Distance.Meters,
		DistanceText:      el.Distance.HumanReadable,
		Duration:          el.Duration,
		DurationInTraffic: el.DurationInTraffic,
	}
	d, _ := est.Preferred()
	est.DurationText = DurationText(d)
	return est, nil
}

func latLng(c geo.Coordinate) string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

func isZeroResults(err error) bool {
	return err != nil && strings.Contains(err.Error(), "ZERO_RESULTS")
}

// DurationText renders a duration the way the Maps APIs do in Portuguese: "7 min",
// "1 h 5 min".
func DurationText(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%d h", h)
	}
	return fmt.Sprintf("%d h %d min", h, m)
}
