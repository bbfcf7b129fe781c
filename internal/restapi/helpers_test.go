package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"saquabus.org/internal/app"
	"saquabus.org/internal/appconf"
	"saquabus.org/internal/clock"
	"saquabus.org/internal/geo"
	"saquabus.org/internal/logging"
	"saquabus.org/internal/metrics"
	"saquabus.org/internal/models"
	"saquabus.org/internal/planner"
	"saquabus.org/internal/transit"
	"saquabus.org/transitdb"
)

const testAPIKey = "TEST"

var errProviderDown = errors.New("provider down")

// Coordinates of stops 2 and 8 of line 21 in testdata/line21.yaml.
var (
	stopTwo   = geo.Coordinate{Latitude: -22.9190, Longitude: -42.4720}
	stopEight = geo.Coordinate{Latitude: -22.9130, Longitude: -42.4240}
)

type stubGeocoder struct{}

func (stubGeocoder) Geocode(_ context.Context, address string) (geo.Coordinate, error) {
	switch address {
	case "Praia de Itaúna":
		return stopEight, nil
	case "Bacaxá":
		return stopTwo, nil
	case "Rio de Janeiro":
		return geo.Coordinate{Latitude: -22.9068, Longitude: -43.1729}, nil
	case "offline":
		return geo.Coordinate{}, errProviderDown
	}
	return geo.Coordinate{}, planner.ErrDestinationNotFound
}

type stubTravel struct{}

func (stubTravel) TravelDuration(_ context.Context, _, _ geo.Coordinate, mode planner.TravelMode) (planner.TravelEstimate, error) {
	if mode == planner.Walking {
		return planner.TravelEstimate{DistanceMeters: 60, Duration: time.Minute}, nil
	}
	return planner.TravelEstimate{DistanceMeters: 800, Duration: 5 * time.Minute, DurationInTraffic: 7 * time.Minute, DurationText: "7 min"}, nil
}

type stubPredictor struct{}

func (stubPredictor) PredictArrival(context.Context, planner.PredictionContext) string {
	return "09:42"
}

func testLocation(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return loc
}

// mondayMorning is 2024-05-06 09:00 in the service timezone.
func mondayMorning(t *testing.T) time.Time {
	return time.Date(2024, 5, 6, 9, 0, 0, 0, testLocation(t))
}

type testOptions struct {
	rateLimit int
}

// createTestApi builds the API over an in-memory store seeded with line 21, stub lookups
// and a clock frozen on a Monday morning.
func createTestApi(t *testing.T) *RestAPI {
	return createTestApiWith(t, testOptions{rateLimit: 100})
}

func createTestApiWith(t *testing.T, opts testOptions) *RestAPI {
	t.Helper()
	ctx := context.Background()

	client, err := transitdb.NewClient(transitdb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	clk := clock.NewMockClock(mondayMorning(t))
	m := metrics.New()

	mgr, err := transit.InitManager(ctx, client, transit.Config{
		SeedPath: filepath.Join("..", "..", "testdata", "line21.yaml"),
		OnReload: func(snap *transit.Snapshot) { m.SetNetworkCounts(snap.Counts()) },
	}, clk)
	require.NoError(t, err)
	t.Cleanup(mgr.Shutdown)

	cfg := appconf.Default()
	cfg.Env = appconf.Test
	cfg.ApiKeys = []string{testAPIKey}
	cfg.RateLimit = opts.rateLimit

	p := planner.New(cfg.Planner, planner.Dependencies{
		Network:   func() planner.Network { return mgr.Snapshot() },
		Geocoder:  stubGeocoder{},
		Travel:    stubTravel{},
		Predictor: stubPredictor{},
		Clock:     clk,
	})

	api := NewRestAPI(&app.Application{
		Config:         cfg,
		Logger:         newTestLogger(),
		TransitManager: mgr,
		Planner:        p,
		Clock:          clk,
		Metrics:        m,
	})
	t.Cleanup(api.Shutdown)
	return api
}

func newTestLogger() *slog.Logger {
	return logging.NewStructuredLogger(io.Discard, slog.LevelError, true)
}

func serveAndRetrieveEndpoint(t *testing.T, endpoint string) (*RestAPI, *http.Response, models.ResponseModel) {
	api := createTestApi(t)
	resp, model := serveApi(t, api, http.MethodGet, endpoint, nil, "")
	return api, resp, model
}

// serveApi sends one request to api and decodes the response envelope.
func serveApi(t *testing.T, api *RestAPI, method, endpoint string, body any, apiKey string) (*http.Response, models.ResponseModel) {
	t.Helper()
	mux := http.NewServeMux()
	api.SetRoutes(mux)
	server := httptest.NewServer(api.Handler(mux))
	defer server.Close()

	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = bytes.NewBufferString(raw)
	}

	req, err := http.NewRequest(method, server.URL+endpoint, reader)
	require.NoError(t, err)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var model models.ResponseModel
	if len(raw) > 0 && resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(raw, &model), "body: %s", raw)
	}
	return resp, model
}

func dataMap(t *testing.T, model models.ResponseModel) map[string]any {
	t.Helper()
	data, ok := model.Data.(map[string]any)
	require.True(t, ok, "data is %T", model.Data)
	return data
}

func listOf(t *testing.T, model models.ResponseModel) []any {
	t.Helper()
	list, ok := dataMap(t, model)["list"].([]any)
	require.True(t, ok, "list missing")
	return list
}

func fieldErrorsOf(t *testing.T, model models.ResponseModel) map[string]any {
	t.Helper()
	fe, ok := dataMap(t, model)["fieldErrors"].(map[string]any)
	require.True(t, ok, "fieldErrors missing")
	return fe
}

func idsOf(t *testing.T, list []any, key string) []string {
	t.Helper()
	ids := make([]string, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		require.True(t, ok, "item %d is %T", i, item)
		id, ok := obj[key].(string)
		require.True(t, ok, "item %d key %q is %T", i, key, obj[key])
		ids = append(ids, id)
	}
	return ids
}
