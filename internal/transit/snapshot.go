package transit

import (
	"context"
	"fmt"
	"sort"

	"saquabus.org/internal/geo"
	"saquabus.org/internal/schedule"
	"saquabus.org/transitdb"
)

type departureKey struct {
	lineID  int64
	dayType schedule.DayType
}

// Snapshot is an immutable, fully joined view of the network. All lookups are in memory;
// returned slices are copies and may be modified by the caller.
type Snapshot struct {
	lines        []Line
	linesByID    map[int64]int
	linesByNum   map[string]int
	stops        []Stop
	stopsByID    map[string]int
	routeStops   map[int64][]RouteStop
	linesByStop  map[string][]int64
	departures   map[departureKey][]schedule.Departure
	stopIndex    *StopIndex
	bounds       geo.Bounds
	hasBounds    bool
	departureCnt int
}

// NewSnapshot joins the raw rows. Route entries naming unknown lines or stops are dropped.
func NewSnapshot(lines []Line, stops []Stop, routes []StopOnRoute, departures []schedule.Departure) *Snapshot {
	s := &Snapshot{
		linesByID:   make(map[int64]int, len(lines)),
		linesByNum:  make(map[string]int, len(lines)),
		stopsByID:   make(map[string]int, len(stops)),
		routeStops:  make(map[int64][]RouteStop),
		linesByStop: make(map[string][]int64),
		departures:  make(map[departureKey][]schedule.Departure),
	}

	s.lines = append([]Line(nil), lines...)
	sort.SliceStable(s.lines, func(i, j int) bool {
		if s.lines[i].Number != s.lines[j].Number {
			return s.lines[i].Number < s.lines[j].Number
		}
		return s.lines[i].ID < s.lines[j].ID
	})
	for i, l := range s.lines {
		s.linesByID[l.ID] = i
		s.linesByNum[l.Number] = i
	}

	s.stops = append([]Stop(nil), stops...)
	sort.SliceStable(s.stops, func(i, j int) bool { return s.stops[i].ID < s.stops[j].ID })
	locations := make([]geo.Coordinate, 0, len(s.stops))
	for i, st := range s.stops {
		s.stopsByID[st.ID] = i
		locations = append(locations, st.Location)
	}
	s.stopIndex = buildStopIndex(s.stops)
	s.bounds, s.hasBounds = geo.BoundsOf(locations)

	for _, r := range routes {
		si, ok := s.stopsByID[r.StopID]
		if !ok {
			continue
		}
		if _, ok := s.linesByID[r.LineID]; !ok {
			continue
		}
		s.routeStops[r.LineID] = append(s.routeStops[r.LineID], RouteStop{
			Stop:          s.stops[si],
			LineID:        r.LineID,
			Sequence:      r.Sequence,
			OffsetMinutes: r.OffsetMinutes,
		})
	}
	for lineID, rs := range s.routeStops {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Sequence < rs[j].Sequence })
		seen := make(map[string]bool, len(rs))
		for _, r := range rs {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			s.linesByStop[r.ID] = append(s.linesByStop[r.ID], lineID)
		}
	}
	for _, ids := range s.linesByStop {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	for _, d := range departures {
		if _, ok := s.linesByID[d.LineID]; !ok {
			continue
		}
		k := departureKey{d.LineID, d.DayType}
		s.departures[k] = append(s.departures[k], d)
		s.departureCnt++
	}
	for _, deps := range s.departures {
		sort.SliceStable(deps, func(i, j int) bool { return deps[i].Time < deps[j].Time })
	}

	return s
}

// LoadSnapshot reads the whole network from the store.
func LoadSnapshot(ctx context.Context, q *transitdb.Queries) (*Snapshot, error) {
	dbLines, err := q.ListLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load lines: %w", err)
	}
	dbStops, err := q.ListStops(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stops: %w", err)
	}
	dbRoutes, err := q.ListStopOnRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stop sequences: %w", err)
	}
	dbSchedules, err := q.ListSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}

	lines := make([]Line, len(dbLines))
	for i, l := range dbLines {
		lines[i] = LineFromDB(l)
	}

	stops := make([]Stop, len(dbStops))
	for i, st := range dbStops {
		stops[i] = StopFromDB(st)
	}

	routes := make([]StopOnRoute, len(dbRoutes))
	for i, r := range dbRoutes {
		routes[i] = StopOnRoute{LineID: r.LineID, StopID: r.StopID, Sequence: int(r.Sequence)}
		if r.OffsetMinutes.Valid {
			m := int(r.OffsetMinutes.Int64)
			routes[i].OffsetMinutes = &m
		}
	}

	departures := make([]schedule.Departure, 0, len(dbSchedules))
	for _, d := range dbSchedules {
		dayType, err := schedule.ParseDayType(d.DayType)
		if err != nil {
			return nil, fmt.Errorf("schedule %d: %w", d.ID, err)
		}
		departures = append(departures, schedule.Departure{
			LineID:    d.LineID,
			DayType:   dayType,
			Time:      schedule.TimeOfDay(d.DepartureTime),
			Direction: d.Direction.String,
			Notes:     d.Notes.String,
		})
	}

	return NewSnapshot(lines, stops, routes, departures), nil
}

func LineFromDB(l transitdb.Line) Line {
	return Line{
		ID:          l.ID,
		Number:      l.Number,
		Origin:      l.Origin,
		Destination: l.Destination,
		Polyline:    l.Polyline.String,
	}
}

func StopFromDB(s transitdb.Stop) Stop {
	return Stop{
		ID:           s.ID,
		Name:         s.Name,
		Location:     geo.Coordinate{Latitude: s.Lat, Longitude: s.Lon},
		Neighborhood: s.Neighborhood.String,
	}
}

// Lines returns every line ordered by number.
func (s *Snapshot) Lines() []Line {
	return append([]Line(nil), s.lines...)
}

func (s *Snapshot) Line(id int64) (Line, bool) {
	i, ok := s.linesByID[id]
	if !ok {
		return Line{}, false
	}
	return s.lines[i], true
}

func (s *Snapshot) LineByNumber(number string) (Line, bool) {
	i, ok := s.linesByNum[number]
	if !ok {
		return Line{}, false
	}
	return s.lines[i], true
}

// Stops returns every stop ordered by id.
func (s *Snapshot) Stops() []Stop {
	return append([]Stop(nil), s.stops...)
}

func (s *Snapshot) Stop(id string) (Stop, bool) {
	i, ok := s.stopsByID[id]
	if !ok {
		return Stop{}, false
	}
	return s.stops[i], true
}

// StopsNear returns the stops strictly closer than radiusKm to point, ordered by id.
func (s *Snapshot) StopsNear(point geo.Coordinate, radiusKm float64) []Stop {
	return s.stopIndex.Within(point, radiusKm)
}

// LinesForStop returns the ids of the lines serving a stop, ascending.
func (s *Snapshot) LinesForStop(stopID string) []int64 {
	return append([]int64(nil), s.linesByStop[stopID]...)
}

// RouteStops returns a line's stops ordered by sequence.
func (s *Snapshot) RouteStops(lineID int64) []RouteStop {
	return append([]RouteStop(nil), s.routeStops[lineID]...)
}

// Departures returns a line's departures for a day type ordered by time.
func (s *Snapshot) Departures(lineID int64, dayType schedule.DayType) []schedule.Departure {
	return append([]schedule.Departure(nil), s.departures[departureKey{lineID, dayType}]...)
}

// Bounds returns the box around every stop, or false for an empty network.
func (s *Snapshot) Bounds() (geo.Bounds, bool) {
	return s.bounds, s.hasBounds
}

// Counts summarizes the snapshot for health and debug output.
func (s *Snapshot) Counts() map[string]int {
	routeStops := 0
	for _, rs := range s.routeStops {
		routeStops += len(rs)
	}
	return map[string]int{
		"lines":      len(s.lines),
		"stops":      len(s.stops),
		"routeStops": routeStops,
		"departures": s.departureCnt,
	}
}
