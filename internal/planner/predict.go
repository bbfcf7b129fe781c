package planner

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"saquabus.org/internal/schedule"
	"saquabus.org/internal/transit"
)

type PredictArrivalRequest struct {
	StopID string `json:"stopId" validate:"required"`
}

// LinePrediction is the arrival outlook of one line at a stop. The reference departure is
// the last one when that bus has not reached the stop yet, otherwise the next one.
type LinePrediction struct {
	Line          transit.Line        `json:"line"`
	Status        Status              `json:"status"`
	DayType       schedule.DayType    `json:"dayType"`
	LastDeparture *schedule.Departure `json:"lastDeparture,omitempty"`
	NextDeparture *schedule.Departure `json:"nextDeparture,omitempty"`

	ReferenceDeparture *schedule.Departure `json:"referenceDeparture,omitempty"`
	EstimatedArrival   *time.Time          `json:"estimatedArrival,omitempty"`
	TravelSource       string              `json:"travelSource,omitempty"`

	NaturalLanguagePrediction string `json:"naturalLanguagePrediction,omitempty"`
	PredictedTime             string `json:"predictedTime,omitempty"`
}

type PredictArrivalResult struct {
	Stop        transit.Stop     `json:"stop"`
	Predictions []LinePrediction `json:"predictions"`
}

// PredictArrival reports, for every line serving a stop, the surrounding departures and
// an arrival estimate. Lines are handled concurrently; one line's failed lookups never
// affect another's answer.
func (p *Planner) PredictArrival(ctx context.Context, req PredictArrivalRequest) (*PredictArrivalResult, error) {
	req.StopID = strings.TrimSpace(req.StopID)
	if err := Validate(req); err != nil {
		return nil, err
	}

	net := p.network()
	stop, ok := net.Stop(req.StopID)
	if !ok {
		return nil, ErrStopNotFound
	}

	now := p.clock.Now()
	lineIDs := net.LinesForStop(stop.ID)
	predictions := make([]LinePrediction, len(lineIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.PredictionWorkers)
	for i, id := range lineIDs {
		line, ok := net.Line(id)
		if !ok {
			continue
		}
		route := net.RouteStops(id)
		deps := net.Departures(id, schedule.DayTypeFor(now))
		g.Go(func() error {
			predictions[i] = p.predictLine(gctx, now, line, route, deps, stop)
			return nil
		})
	}
	_ = g.Wait()

	out := predictions[:0]
	for _, lp := range predictions {
		if lp.Line.ID != 0 {
			out = append(out, lp)
		}
	}
	return &PredictArrivalResult{Stop: stop, Predictions: out}, nil
}

func (p *Planner) predictLine(ctx context.Context, now time.Time, line transit.Line, route []transit.RouteStop,
	deps []schedule.Departure, stop transit.Stop) LinePrediction {
	lp := LinePrediction{Line: line, DayType: schedule.DayTypeFor(now)}

	nowOfDay := schedule.TimeOfDayOf(now)
	last, hasLast := schedule.LastDeparture(deps, nowOfDay)
	next, hasNext := schedule.NextDeparture(deps, nowOfDay)
	if hasLast {
		lp.LastDeparture = &last
	}
	if hasNext {
		lp.NextDeparture = &next
	}

	target, onRoute := routeStopFor(route, stop.ID)
	if !onRoute || len(route) == 0 {
		lp.Status = StatusETAUnavailable
		return lp
	}

	leg := p.runningTime(ctx, route[0], target)
	lp.TravelSource = leg.source

	var ref schedule.Departure
	switch {
	case hasLast && leg.known && !last.Time.On(now).Add(leg.duration).Before(now):
		ref = last
	case hasNext:
		ref = next
	default:
		lp.Status = StatusNoMoreDeparturesToday
		return lp
	}
	lp.ReferenceDeparture = &ref

	if !leg.known {
		lp.Status = StatusETAUnavailable
		return lp
	}

	arrival := ref.Time.On(now).Add(leg.duration)
	lp.EstimatedArrival = &arrival
	lp.Status = StatusOK

	if sp := p.phrase(ctx, now, line, stop.Name, ref, leg); sp != nil {
		lp.NaturalLanguagePrediction = sp.NaturalLanguagePrediction
		lp.PredictedTime = sp.PredictedTime
	}
	return lp
}

// busLeg is the bus running time from a line's first stop to one of its stops.
type busLeg struct {
	duration time.Duration
	known    bool
	source   string
	estimate TravelEstimate
}

// runningTime is the bus time from the line's first stop to target: provider estimate
// first, timetable offsets second.
func (p *Planner) runningTime(ctx context.Context, terminal, target transit.RouteStop) busLeg {
	if terminal.Sequence == target.Sequence {
		return busLeg{known: true, source: SourceTerminal}
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	est, err := p.travel.TravelDuration(ctx, terminal.Location, target.Location, Driving)
	if err == nil {
		d, traffic := est.Preferred()
		leg := busLeg{duration: d, known: true, source: SourceStatic, estimate: est}
		if traffic {
			leg.source = SourceTraffic
		}
		return leg
	}
	p.logger.Warn("bus travel lookup failed", slog.String("error", err.Error()),
		slog.Int64("line_id", target.LineID), slog.String("stop_id", target.ID))

	if d, ok := offsetBetween(terminal, target); ok {
		return busLeg{duration: d, known: true, source: SourceTimetable}
	}
	return busLeg{}
}

// StopPrediction is the predictor's phrasing of a bus arrival at one stop.
type StopPrediction struct {
	NaturalLanguagePrediction string `json:"naturalLanguagePrediction"`
	PredictedTime             string `json:"predictedTime,omitempty"`
}

// phrase asks the predictor to word the arrival of the bus leaving at departure. Nil when
// the leg is unknown or the predictor has nothing to say.
func (p *Planner) phrase(ctx context.Context, now time.Time, line transit.Line, stopName string,
	departure schedule.Departure, leg busLeg) *StopPrediction {
	if !leg.known {
		return nil
	}
	durationText := leg.estimate.DurationText
	if durationText == "" {
		durationText = fmt.Sprintf("%d min", int(leg.duration.Round(time.Minute)/time.Minute))
	}
	text := p.predictor.PredictArrival(ctx, PredictionContext{
		Now:           now,
		Line:          line,
		StopName:      stopName,
		DepartureTime: departure.Time.String(),
		DurationText:  durationText,
		DistanceText:  leg.estimate.DistanceText,
	})
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &StopPrediction{NaturalLanguagePrediction: text, PredictedTime: ExtractClockTime(text)}
}

func routeStopFor(route []transit.RouteStop, stopID string) (transit.RouteStop, bool) {
	for _, rs := range route {
		if rs.ID == stopID {
			return rs, true
		}
	}
	return transit.RouteStop{}, false
}

var clockTimePattern = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)

// ExtractClockTime returns the first HH:MM found in text, zero padded, or "".
func ExtractClockTime(text string) string {
	m := clockTimePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	hour, _ := strconv.Atoi(m[1])
	return fmt.Sprintf("%02d:%s", hour, m[2])
}
