package planner

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sort"
	"strings"

	"saquabus.org/internal/geo"
	"saquabus.org/internal/schedule"
	"saquabus.org/internal/transit"
)

const maxNearestStops = 100

type FindNearestStopsRequest struct {
	Point geo.Coordinate `json:"point"`
	Limit int            `json:"limit" validate:"gte=0,lte=100"`
}

// NearbyStop is a ranked stop with the numbers of the lines serving it.
type NearbyStop struct {
	StopDistance
	Lines []string `json:"lines"`
}

// FindNearestStops ranks every stop by distance from the point. A zero limit uses the
// configured default.
func (p *Planner) FindNearestStops(_ context.Context, req FindNearestStopsRequest) ([]NearbyStop, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit == 0 {
		limit = min(p.cfg.NearestStopsLimit, maxNearestStops)
	}

	net := p.network()
	ranked := FindNearest(req.Point, net.Stops(), NearestOptions{Limit: limit})

	out := make([]NearbyStop, len(ranked))
	for i, sd := range ranked {
		out[i] = NearbyStop{StopDistance: sd, Lines: lineNumbers(net, net.LinesForStop(sd.ID))}
	}
	return out, nil
}

func lineNumbers(net Network, ids []int64) []string {
	seen := make(map[string]bool, len(ids))
	numbers := make([]string, 0, len(ids))
	for _, id := range ids {
		l, ok := net.Line(id)
		if !ok || seen[l.Number] {
			continue
		}
		seen[l.Number] = true
		numbers = append(numbers, l.Number)
	}
	sort.Strings(numbers)
	return numbers
}

type CommonLinesRequest struct {
	Origin             geo.Coordinate `json:"origin"`
	DestinationAddress string         `json:"destinationAddress" validate:"required"`
}

type CommonLinesResult struct {
	Status      Status          `json:"status"`
	Destination *geo.Coordinate `json:"destination,omitempty"`
	CoverageGap string          `json:"coverageGap,omitempty"`
	Lines       []transit.Line  `json:"commonLines"`
}

// CommonLines lists the lines serving stops near both ends, ignoring direction of travel.
func (p *Planner) CommonLines(ctx context.Context, req CommonLinesRequest) (*CommonLinesResult, error) {
	req.DestinationAddress = strings.TrimSpace(req.DestinationAddress)
	if err := Validate(req); err != nil {
		return nil, err
	}

	destination, err := p.geocode(ctx, req.DestinationAddress)
	if errors.Is(err, ErrDestinationNotFound) {
		return &CommonLinesResult{Status: StatusDestinationNotFound, Lines: []transit.Line{}}, nil
	}
	if err != nil {
		return nil, err
	}

	net := p.network()
	result := &CommonLinesResult{Destination: &destination, Lines: []transit.Line{}}

	radius := p.cfg.CommonLinesRadiusKm
	originStops := FindNearest(req.Origin, net.StopsNear(req.Origin, radius), NearestOptions{})
	if len(originStops) == 0 {
		result.Status, result.CoverageGap = StatusNoCoverage, "origin"
		return result, nil
	}
	destinationStops := FindNearest(destination, net.StopsNear(destination, radius), NearestOptions{})
	if len(destinationStops) == 0 {
		result.Status, result.CoverageGap = StatusNoCoverage, "destination"
		return result, nil
	}

	for _, id := range CandidateLines(originStops, destinationStops, net) {
		if l, ok := net.Line(id); ok {
			result.Lines = append(result.Lines, l)
		}
	}
	result.Status = StatusOK
	if len(result.Lines) == 0 {
		result.Status = StatusNoRouteFound
	}
	return result, nil
}

// Stops lists stops ordered by neighborhood, then name; stops without a neighborhood come
// last. A non-empty neighborhood keeps only the stops in it, ignoring case.
func (p *Planner) Stops(neighborhood string) []transit.Stop {
	neighborhood = strings.TrimSpace(neighborhood)

	out := []transit.Stop{}
	for _, s := range p.network().Stops() {
		if neighborhood == "" || strings.EqualFold(s.Neighborhood, neighborhood) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b transit.Stop) int {
		if (a.Neighborhood == "") != (b.Neighborhood == "") {
			if a.Neighborhood == "" {
				return 1
			}
			return -1
		}
		return cmp.Or(
			cmp.Compare(a.Neighborhood, b.Neighborhood),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out
}

// StopDetail is a stop with the lines serving it.
type StopDetail struct {
	transit.Stop
	Lines []transit.Line `json:"lines"`
}

func (p *Planner) StopDetail(id string) (*StopDetail, error) {
	net := p.network()
	stop, ok := net.Stop(id)
	if !ok {
		return nil, ErrStopNotFound
	}
	detail := &StopDetail{Stop: stop, Lines: []transit.Line{}}
	for _, lineID := range net.LinesForStop(id) {
		if l, ok := net.Line(lineID); ok {
			detail.Lines = append(detail.Lines, l)
		}
	}
	return detail, nil
}

type LineRoute struct {
	Line  transit.Line        `json:"line"`
	Stops []transit.RouteStop `json:"stops"`
}

// Lines returns every line ordered by number.
func (p *Planner) Lines() []transit.Line {
	return p.network().Lines()
}

// LineRoute returns a line with its stops in travel order.
func (p *Planner) LineRoute(number string) (*LineRoute, error) {
	net := p.network()
	line, ok := net.LineByNumber(number)
	if !ok {
		return nil, ErrLineNotFound
	}
	return &LineRoute{Line: line, Stops: net.RouteStops(line.ID)}, nil
}

type LineSchedule struct {
	Line       transit.Line         `json:"line"`
	DayType    schedule.DayType     `json:"dayType"`
	Departures []schedule.Departure `json:"departures"`
}

// LineSchedule returns a line's departures for dayType, or for today when dayType is empty.
func (p *Planner) LineSchedule(number string, dayType schedule.DayType) (*LineSchedule, error) {
	net := p.network()
	line, ok := net.LineByNumber(number)
	if !ok {
		return nil, ErrLineNotFound
	}
	if dayType == "" {
		dayType = schedule.DayTypeFor(p.clock.Now())
	}
	deps := net.Departures(line.ID, dayType)
	if deps == nil {
		deps = []schedule.Departure{}
	}
	return &LineSchedule{Line: line, DayType: dayType, Departures: deps}, nil
}

const defaultUpcomingArrivals = 3

type ArrivalsRequest struct {
	LineNumber string              `json:"lineNumber" validate:"required"`
	StopID     string              `json:"stopId" validate:"required"`
	DayType    schedule.DayType    `json:"dayType"`
	At         *schedule.TimeOfDay `json:"at"`
}

type Arrivals struct {
	Line         transit.Line         `json:"line"`
	Stop         transit.RouteStop    `json:"stop"`
	DayType      schedule.DayType     `json:"dayType"`
	At           schedule.TimeOfDay   `json:"at"`
	ArrivalTimes []schedule.TimeOfDay `json:"arrivalTimes"`
}

// UpcomingArrivals estimates the next bus passages at a stop from the timetable alone:
// each departure plus the stop's running time offset. Defaults are today's day type and
// the current time.
func (p *Planner) UpcomingArrivals(req ArrivalsRequest) (*Arrivals, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	net := p.network()
	line, ok := net.LineByNumber(req.LineNumber)
	if !ok {
		return nil, ErrLineNotFound
	}
	route := net.RouteStops(line.ID)
	target, ok := routeStopFor(route, req.StopID)
	if !ok {
		return nil, ErrStopNotOnLine
	}
	offset, ok := offsetBetween(route[0], target)
	if !ok {
		return nil, ErrRunningTimeUnknown
	}

	now := p.clock.Now()
	dayType := req.DayType
	if dayType == "" {
		dayType = schedule.DayTypeFor(now)
	}
	at := schedule.TimeOfDayOf(now)
	if req.At != nil {
		at = *req.At
	}

	times := schedule.UpcomingArrivals(net.Departures(line.ID, dayType), offset, at, defaultUpcomingArrivals)
	if times == nil {
		times = []schedule.TimeOfDay{}
	}
	return &Arrivals{Line: line, Stop: target, DayType: dayType, At: at, ArrivalTimes: times}, nil
}
