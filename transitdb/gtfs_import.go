package transitdb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"saquabus.org/internal/geo"
	"saquabus.org/internal/logging"
	"saquabus.org/internal/schedule"
)

// ImportGTFS converts a static GTFS feed into lines, stops, stop sequences and terminal
// departures. Each route becomes one line described by its representative trip: the
// longest trip in the most common direction. Every trip in that direction contributes its
// first departure to the timetable of each day type its service runs on.
func (c *Client) ImportGTFS(ctx context.Context, data []byte, source string) error {
	logger := slog.Default().With(slog.String("component", "gtfs_importer"))

	static, err := gtfs.ParseStatic(data, gtfs.ParseStaticOptions{})
	if err != nil {
		return fmt.Errorf("failed to parse GTFS: %w", err)
	}

	logging.LogOperation(logger, "gtfs_parsed",
		slog.Int("routes", len(static.Routes)),
		slog.Int("stops", len(static.Stops)),
		slog.Int("trips", len(static.Trips)),
		slog.Int("warnings", len(static.Warnings)))

	tripsByRoute := make(map[string][]*gtfs.ScheduledTrip)
	for i := range static.Trips {
		t := &static.Trips[i]
		if t.Route == nil || len(t.StopTimes) < 2 {
			continue
		}
		tripsByRoute[t.Route.Id] = append(tripsByRoute[t.Route.Id], t)
	}

	return c.importIfChanged(ctx, data, "gtfs:"+source, "gtfs_importer", func(ctx context.Context, q *Queries) error {
		for _, s := range static.Stops {
			// stops without coordinates are generic nodes or boarding areas
			if s.Latitude == nil || s.Longitude == nil {
				continue
			}
			if _, err := q.UpsertStop(ctx, UpsertStopParams{
				ID:   s.Id,
				Name: s.Name,
				Lat:  *s.Latitude,
				Lon:  *s.Longitude,
			}); err != nil {
				return fmt.Errorf("unable to create stop %s: %w", s.Id, err)
			}
		}

		for _, r := range static.Routes {
			trips := tripsByRoute[r.Id]
			if len(trips) == 0 {
				continue
			}
			added, err := importGTFSRoute(ctx, q, r, trips)
			if err != nil {
				return fmt.Errorf("route %s: %w", r.Id, err)
			}
			logging.LogOperation(logger, "gtfs_route_imported",
				slog.String("route", r.Id),
				slog.Int("departures_added", added))
		}
		return nil
	})
}

func importGTFSRoute(ctx context.Context, q *Queries, r gtfs.Route, trips []*gtfs.ScheduledTrip) (int, error) {
	rep := representativeTrip(trips)

	stopTimes := append([]gtfs.ScheduledStopTime(nil), rep.StopTimes...)
	sort.SliceStable(stopTimes, func(i, j int) bool { return stopTimes[i].StopSequence < stopTimes[j].StopSequence })

	first := stopTimes[0]
	last := stopTimes[len(stopTimes)-1]

	number := r.ShortName
	if number == "" {
		number = r.Id
	}

	line, err := q.UpsertLine(ctx, CreateLineParams{
		Number:      number,
		Origin:      stopName(first.Stop),
		Destination: pickFirstAvailable(rep.Headsign, stopName(last.Stop)),
		Polyline:    toNullString(tripPolyline(rep, stopTimes)),
	})
	if err != nil {
		return 0, fmt.Errorf("unable to upsert line: %w", err)
	}

	if err := q.DeleteStopOnRoutesForLine(ctx, line.ID); err != nil {
		return 0, err
	}

	// stop_sequence only has to increase; stored sequences are renumbered from 1
	sequence := int64(0)
	for _, st := range stopTimes {
		if st.Stop == nil {
			continue
		}
		sequence++
		offset := int((st.ArrivalTime - first.DepartureTime) / time.Minute)
		if err := q.CreateStopOnRoute(ctx, CreateStopOnRouteParams{
			LineID:        line.ID,
			StopID:        st.Stop.Id,
			Sequence:      sequence,
			OffsetMinutes: toNullInt64Ptr(&offset),
		}); err != nil {
			return 0, fmt.Errorf("unable to add stop %s: %w", st.Stop.Id, err)
		}
	}

	added := 0
	for _, t := range trips {
		if t.DirectionId != rep.DirectionId || t.Service == nil {
			continue
		}
		departure := earliestDeparture(t.StopTimes)
		for _, dayType := range serviceDayTypes(t.Service) {
			ok, err := q.CreateScheduleIgnoringDuplicates(ctx, CreateScheduleParams{
				LineID:        line.ID,
				DayType:       string(dayType),
				DepartureTime: int64(departure / time.Second),
				Direction:     toNullString(t.Headsign),
			})
			if err != nil {
				return 0, fmt.Errorf("unable to add departure for trip %s: %w", t.ID, err)
			}
			if ok {
				added++
			}
		}
	}
	return added, nil
}

// representativeTrip picks the longest trip in the direction with the most trips.
// Ties fall back to trip id so repeated imports choose the same trip.
func representativeTrip(trips []*gtfs.ScheduledTrip) *gtfs.ScheduledTrip {
	counts := make(map[int64]int)
	for _, t := range trips {
		counts[int64(t.DirectionId)]++
	}

	var best *gtfs.ScheduledTrip
	for _, t := range trips {
		if best == nil {
			best = t
			continue
		}
		ct, cb := counts[int64(t.DirectionId)], counts[int64(best.DirectionId)]
		switch {
		case ct != cb:
			if ct > cb {
				best = t
			}
		case len(t.StopTimes) != len(best.StopTimes):
			if len(t.StopTimes) > len(best.StopTimes) {
				best = t
			}
		case t.ID < best.ID:
			best = t
		}
	}
	return best
}

func earliestDeparture(stopTimes []gtfs.ScheduledStopTime) time.Duration {
	first := stopTimes[0]
	for _, st := range stopTimes[1:] {
		if st.StopSequence < first.StopSequence {
			first = st
		}
	}
	return first.DepartureTime
}

func serviceDayTypes(s *gtfs.Service) []schedule.DayType {
	var out []schedule.DayType
	if s.Monday || s.Tuesday || s.Wednesday || s.Thursday || s.Friday {
		out = append(out, schedule.Weekday)
	}
	if s.Saturday {
		out = append(out, schedule.Saturday)
	}
	if s.Sunday {
		out = append(out, schedule.SundayHoliday)
	}
	return out
}

// tripPolyline encodes the trip's shape, or the stop coordinates when it has none.
func tripPolyline(t *gtfs.ScheduledTrip, stopTimes []gtfs.ScheduledStopTime) string {
	var path []geo.Coordinate
	if t.Shape != nil && len(t.Shape.Points) > 1 {
		for _, p := range t.Shape.Points {
			path = append(path, geo.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude})
		}
	} else {
		for _, st := range stopTimes {
			if st.Stop != nil && st.Stop.Latitude != nil && st.Stop.Longitude != nil {
				path = append(path, geo.Coordinate{Latitude: *st.Stop.Latitude, Longitude: *st.Stop.Longitude})
			}
		}
	}
	if len(path) < 2 {
		return ""
	}
	return geo.EncodePolyline(path)
}

func stopName(s *gtfs.Stop) string {
	if s == nil {
		return ""
	}
	return pickFirstAvailable(s.Name, s.Id)
}

func pickFirstAvailable(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
