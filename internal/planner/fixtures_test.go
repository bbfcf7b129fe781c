package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"saquabus.org/internal/appconf"
	"saquabus.org/internal/clock"
	"saquabus.org/internal/geo"
	"saquabus.org/internal/schedule"
	"saquabus.org/internal/transit"
)

var brt = time.FixedZone("BRT", -3*3600)

// Monday 2024-05-06 in Saquarema.
func mondayAt(hour, minute int) time.Time {
	return time.Date(2024, 5, 6, hour, minute, 0, 0, brt)
}

// stopAt returns the position of stop n (1..10) of line 21.
func stopAt(n int) geo.Coordinate {
	return geo.Coordinate{
		Latitude:  -22.9200 + 0.001*float64(n-1),
		Longitude: -42.4800 + 0.008*float64(n-1),
	}
}

type fixture struct {
	withOffsets bool
	extraLines  []transit.Line
	extraStops  []transit.Stop
	extraRoutes []transit.StopOnRoute
}

func (f fixture) snapshot() *transit.Snapshot {
	var stops []transit.Stop
	var routes []transit.StopOnRoute
	var path []geo.Coordinate
	for n := 1; n <= 10; n++ {
		id := fmt.Sprint(n)
		stops = append(stops, transit.Stop{ID: id, Name: "Parada " + id, Location: stopAt(n)})
		sor := transit.StopOnRoute{LineID: 21, StopID: id, Sequence: n}
		if f.withOffsets {
			m := 3 * (n - 1)
			sor.OffsetMinutes = &m
		}
		routes = append(routes, sor)
		path = append(path, stopAt(n))
	}

	lines := []transit.Line{{
		ID:          21,
		Number:      "21",
		Origin:      "BACAXÁ",
		Destination: "MOMBAÇA",
		Polyline:    geo.EncodePolyline(path),
	}}

	var deps []schedule.Departure
	add := func(dt schedule.DayType, times ...string) {
		for _, t := range times {
			deps = append(deps, schedule.Departure{LineID: 21, DayType: dt, Time: schedule.MustParseTimeOfDay(t)})
		}
	}
	add(schedule.Weekday, "08:00", "09:30", "11:00")
	add(schedule.Saturday, "08:00", "12:00")
	add(schedule.SundayHoliday, "09:00")

	return transit.NewSnapshot(
		append(lines, f.extraLines...),
		append(stops, f.extraStops...),
		append(routes, f.extraRoutes...),
		deps)
}

type fakeGeocoder struct {
	results map[string]geo.Coordinate
	err     error
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string) (geo.Coordinate, error) {
	if f.err != nil {
		return geo.Coordinate{}, f.err
	}
	c, ok := f.results[address]
	if !ok {
		return geo.Coordinate{}, ErrDestinationNotFound
	}
	return c, nil
}

type travelCall struct {
	Origin, Destination geo.Coordinate
	Mode                TravelMode
}

type fakeTravel struct {
	mu       sync.Mutex
	estimate map[TravelMode]TravelEstimate
	errs     map[TravelMode]error
	calls    []travelCall
}

func (f *fakeTravel) TravelDuration(_ context.Context, origin, destination geo.Coordinate, mode TravelMode) (TravelEstimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, travelCall{origin, destination, mode})
	if err := f.errs[mode]; err != nil {
		return TravelEstimate{}, err
	}
	return f.estimate[mode], nil
}

func (f *fakeTravel) modes() []TravelMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []TravelMode
	for _, c := range f.calls {
		out = append(out, c.Mode)
	}
	return out
}

type fakePredictor struct {
	mu   sync.Mutex
	text string
	got  []PredictionContext
}

func (f *fakePredictor) PredictArrival(_ context.Context, pc PredictionContext) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, pc)
	return f.text
}

type harness struct {
	planner   *Planner
	clock     *clock.MockClock
	geocoder  *fakeGeocoder
	travel    *fakeTravel
	predictor *fakePredictor
}

func defaultPlannerConfig() appconf.PlannerConfig {
	return appconf.Default().Planner
}

func newHarness(net Network, cfg appconf.PlannerConfig, now time.Time) *harness {
	h := &harness{
		clock: clock.NewMockClock(now),
		geocoder: &fakeGeocoder{results: map[string]geo.Coordinate{
			"Praia de Itaúna": stopAt(8),
			"Bacaxá":          stopAt(2),
			"Terminal":        stopAt(1),
			"Rio de Janeiro":  {Latitude: -22.9068, Longitude: -43.1729},
		}},
		travel: &fakeTravel{estimate: map[TravelMode]TravelEstimate{
			Driving: {DistanceMeters: 800, Duration: 5 * time.Minute, DurationInTraffic: 7 * time.Minute, DurationText: "7 min", DistanceText: "0,8 km"},
			Walking: {DistanceMeters: 60, Duration: time.Minute},
		}, errs: map[TravelMode]error{}},
		predictor: &fakePredictor{text: "9:42 (previsão com alta confiança)"},
	}
	h.planner = New(cfg, Dependencies{
		Network:   Static(net),
		Geocoder:  h.geocoder,
		Travel:    h.travel,
		Predictor: h.predictor,
		Clock:     h.clock,
	})
	return h
}

func ptr[T any](v T) *T { return &v }
