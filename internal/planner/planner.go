// Package planner answers rider questions over a transit network: which line to take
// between two places and when to leave, when buses reach a stop, and which stops are near.
package planner

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"saquabus.org/internal/appconf"
	"saquabus.org/internal/clock"
	"saquabus.org/internal/geo"
	"saquabus.org/internal/logging"
	"saquabus.org/internal/schedule"
	"saquabus.org/internal/transit"
)

// Dependencies are the collaborators a Planner calls. Nil lookups behave as permanently
// unavailable. Clock must return service local time.
type Dependencies struct {
	Network   func() Network
	Geocoder  Geocoder
	Travel    TravelTimer
	Predictor ArrivalPredictor
	Clock     clock.Clock
}

type Planner struct {
	cfg       appconf.PlannerConfig
	network   func() Network
	geocoder  Geocoder
	travel    TravelTimer
	predictor ArrivalPredictor
	clock     clock.Clock
	logger    *slog.Logger
}

func New(cfg appconf.PlannerConfig, deps Dependencies) *Planner {
	p := &Planner{
		cfg:       cfg,
		network:   deps.Network,
		geocoder:  deps.Geocoder,
		travel:    deps.Travel,
		predictor: deps.Predictor,
		clock:     deps.Clock,
		logger:    slog.Default().With(slog.String("component", "planner")),
	}
	if p.geocoder == nil || p.travel == nil {
		u := unavailable{}
		if p.geocoder == nil {
			p.geocoder = u
		}
		if p.travel == nil {
			p.travel = u
		}
	}
	if p.predictor == nil {
		p.predictor = unavailable{}
	}
	if p.clock == nil {
		p.clock = clock.RealClock{}
	}
	if p.cfg.SafetyBuffer == 0 {
		p.cfg.SafetyBuffer = SafetyBuffer
	}
	if p.cfg.PredictionWorkers <= 0 {
		p.cfg.PredictionWorkers = 1
	}
	return p
}

type unavailable struct{}

func (unavailable) Geocode(context.Context, string) (geo.Coordinate, error) {
	return geo.Coordinate{}, ErrLookupUnavailable
}

func (unavailable) TravelDuration(context.Context, geo.Coordinate, geo.Coordinate, TravelMode) (TravelEstimate, error) {
	return TravelEstimate{}, ErrLookupUnavailable
}

func (unavailable) PredictArrival(context.Context, PredictionContext) string {
	return ""
}

// Static adapts a fixed network to the Dependencies.Network signature.
func Static(n Network) func() Network {
	return func() Network { return n }
}

func (p *Planner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.ExternalTimeout > 0 {
		return context.WithTimeout(ctx, p.cfg.ExternalTimeout)
	}
	return context.WithCancel(ctx)
}

type PlanTripRequest struct {
	Origin             geo.Coordinate `json:"origin"`
	DestinationAddress string         `json:"destinationAddress" validate:"required"`
}

// PlanTripResult carries the outcome of PlanTrip. Which fields are set depends on Status:
// NO_COVERAGE names the side without stops in CoverageGap, NO_MORE_DEPARTURES_TODAY and
// ETA_UNAVAILABLE carry the matched route without times, OK carries everything.
// RecommendedLeaveTime is omitted when the walking time could not be looked up, the
// alighting estimate when neither the provider nor the timetable knows that leg.
type PlanTripResult struct {
	Status      Status          `json:"status"`
	Destination *geo.Coordinate `json:"destination,omitempty"`
	CoverageGap string          `json:"coverageGap,omitempty"`

	Line          *transit.Line       `json:"line,omitempty"`
	BoardingStop  *transit.RouteStop  `json:"boardingStop,omitempty"`
	AlightingStop *transit.RouteStop  `json:"alightingStop,omitempty"`
	RouteSegment  []transit.RouteStop `json:"routeSegment,omitempty"`
	Polyline      string              `json:"polyline,omitempty"`
	WalkingCostKm float64             `json:"walkingCostKm,omitempty"`

	DayType       schedule.DayType    `json:"dayType,omitempty"`
	LastDeparture *schedule.Departure `json:"lastDeparture,omitempty"`
	NextDeparture *schedule.Departure `json:"nextDeparture,omitempty"`

	NextDepartureTime                      *time.Time `json:"nextDepartureTime,omitempty"`
	EstimatedBusArrivalAtStopTime          *time.Time `json:"estimatedBusArrivalAtStopTime,omitempty"`
	EstimatedBusArrivalAtAlightingStopTime *time.Time `json:"estimatedBusArrivalAtAlightingStopTime,omitempty"`
	RecommendedArrivalAtStopTime           *time.Time `json:"recommendedArrivalAtStopTime,omitempty"`
	RecommendedLeaveTime                   *time.Time `json:"recommendedLeaveTime,omitempty"`

	BusTravelSource           string `json:"busTravelSource,omitempty"`
	BusTravelSeconds          int64  `json:"busTravelSeconds,omitempty"`
	AlightingBusTravelSource  string `json:"alightingBusTravelSource,omitempty"`
	AlightingBusTravelSeconds int64  `json:"alightingBusTravelSeconds,omitempty"`
	WalkingSeconds            int64  `json:"walkingSeconds,omitempty"`

	BoardingPrediction  *StopPrediction `json:"boardingPrediction,omitempty"`
	AlightingPrediction *StopPrediction `json:"alightingPrediction,omitempty"`
}

// Sources of the bus running time, most preferred first.
const (
	SourceTraffic   = "traffic"
	SourceStatic    = "static"
	SourceTimetable = "timetable"
	SourceTerminal  = "terminal"
)

// PlanTrip picks the line with the least walking between the rider and the destination
// and times the next departure. Negative answers are Status values; an error means the
// request was invalid (*ValidationError) or geocoding was unreachable (ErrLookupUnavailable).
func (p *Planner) PlanTrip(ctx context.Context, req PlanTripRequest) (*PlanTripResult, error) {
	req.DestinationAddress = strings.TrimSpace(req.DestinationAddress)
	if err := Validate(req); err != nil {
		return nil, err
	}

	destination, err := p.geocode(ctx, req.DestinationAddress)
	if errors.Is(err, ErrDestinationNotFound) {
		return &PlanTripResult{Status: StatusDestinationNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	net := p.network()
	result := &PlanTripResult{Destination: &destination}

	originStops := FindNearest(req.Origin, net.StopsNear(req.Origin, p.cfg.SearchRadiusKm), NearestOptions{})
	if len(originStops) == 0 {
		result.Status, result.CoverageGap = StatusNoCoverage, "origin"
		return result, nil
	}
	destinationStops := FindNearest(destination, net.StopsNear(destination, p.cfg.SearchRadiusKm), NearestOptions{})
	if len(destinationStops) == 0 {
		result.Status, result.CoverageGap = StatusNoCoverage, "destination"
		return result, nil
	}

	candidates := MatchRoutes(net, CandidateLines(originStops, destinationStops, net), req.Origin, destination)
	best, ok := SelectBest(candidates)
	if !ok {
		result.Status = StatusNoRouteFound
		return result, nil
	}

	result.Line = &best.Line
	result.BoardingStop = &best.Boarding
	result.AlightingStop = &best.Alighting
	result.RouteSegment = best.Segment
	result.WalkingCostKm = Cost(best)
	result.Polyline = geo.TrimEncoded(best.Line.Polyline, best.Boarding.Location, best.Alighting.Location)

	now := p.clock.Now()
	result.DayType = schedule.DayTypeFor(now)
	deps := net.Departures(best.Line.ID, result.DayType)
	if last, ok := schedule.LastDeparture(deps, schedule.TimeOfDayOf(now)); ok {
		result.LastDeparture = &last
	}
	next, ok := schedule.NextDeparture(deps, schedule.TimeOfDayOf(now))
	if !ok {
		result.Status = StatusNoMoreDeparturesToday
		return result, nil
	}
	result.NextDeparture = &next
	departureAt := next.Time.On(now)
	result.NextDepartureTime = &departureAt

	legs := p.lookupLegs(ctx, net.RouteStops(best.Line.ID), best.Boarding, best.Alighting, req.Origin)
	if !legs.boarding.known {
		result.Status = StatusETAUnavailable
		return result, nil
	}

	eta := ComposeETA(departureAt, legs.boarding.duration, legs.walking, p.cfg.SafetyBuffer)
	result.Status = StatusOK
	result.BusTravelSource = legs.boarding.source
	result.BusTravelSeconds = int64(legs.boarding.duration / time.Second)
	result.EstimatedBusArrivalAtStopTime = &eta.BusArrival
	result.RecommendedArrivalAtStopTime = &eta.ArriveAtStopBy
	if legs.walkingKnown {
		result.WalkingSeconds = int64(legs.walking / time.Second)
		result.RecommendedLeaveTime = &eta.LeaveBy
	}
	if legs.alighting.known {
		alightAt := departureAt.Add(legs.alighting.duration)
		result.EstimatedBusArrivalAtAlightingStopTime = &alightAt
		result.AlightingBusTravelSource = legs.alighting.source
		result.AlightingBusTravelSeconds = int64(legs.alighting.duration / time.Second)
	}

	result.BoardingPrediction, result.AlightingPrediction = p.phraseTrip(ctx, now, best, next, legs)
	return result, nil
}

// phraseTrip asks the predictor about the boarding and the alighting stop concurrently.
func (p *Planner) phraseTrip(ctx context.Context, now time.Time, trip Candidate, departure schedule.Departure,
	legs legTimes) (boarding, alighting *StopPrediction) {
	var g errgroup.Group
	g.Go(func() error {
		boarding = p.phrase(ctx, now, trip.Line, trip.Boarding.Name, departure, legs.boarding)
		return nil
	})
	g.Go(func() error {
		alighting = p.phrase(ctx, now, trip.Line, trip.Alighting.Name, departure, legs.alighting)
		return nil
	})
	_ = g.Wait()
	return boarding, alighting
}

func (p *Planner) geocode(ctx context.Context, address string) (geo.Coordinate, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	c, err := p.geocoder.Geocode(ctx, address)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, ErrDestinationNotFound):
		return geo.Coordinate{}, err
	default:
		logging.LogError(p.logger, "geocoding failed", err, slog.String("address", address))
		return geo.Coordinate{}, errors.Join(ErrLookupUnavailable, err)
	}
}

type legTimes struct {
	boarding     busLeg
	alighting    busLeg
	walking      time.Duration
	walkingKnown bool
}

// lookupLegs fetches the bus running times from the line's first stop to boarding and to
// alighting, and the rider's walk to boarding, in parallel. A failed bus lookup falls back
// to the timetable offsets; a failed walk lookup leaves walking unknown.
func (p *Planner) lookupLegs(ctx context.Context, route []transit.RouteStop, boarding, alighting transit.RouteStop, rider geo.Coordinate) legTimes {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var legs legTimes
	var walkEst TravelEstimate
	var walkErr error
	terminal := route[0]

	var g errgroup.Group
	g.Go(func() error {
		legs.boarding = p.runningTime(ctx, terminal, boarding)
		return nil
	})
	g.Go(func() error {
		legs.alighting = p.runningTime(ctx, terminal, alighting)
		return nil
	})
	g.Go(func() error {
		walkEst, walkErr = p.travel.TravelDuration(ctx, rider, boarding.Location, Walking)
		return nil
	})
	_ = g.Wait()

	if walkErr == nil {
		legs.walking, legs.walkingKnown = walkEst.Duration, true
	} else {
		p.logger.Warn("walking lookup failed", slog.String("error", walkErr.Error()),
			slog.String("stop_id", boarding.ID))
	}
	return legs
}

// offsetBetween is the scheduled running time between two stops of the same line.
func offsetBetween(from, to transit.RouteStop) (time.Duration, bool) {
	end, ok := to.Offset()
	if !ok {
		return 0, false
	}
	start, _ := from.Offset()
	if end < start {
		return 0, false
	}
	return end - start, true
}
