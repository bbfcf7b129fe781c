// Package transit holds the read-only network the planner works against: lines, stops,
// ordered stop sequences and departure tables, loaded from transitdb into flat values.
package transit

import (
	"time"

	"saquabus.org/internal/geo"
)

type Stop struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Location     geo.Coordinate `json:"location"`
	Neighborhood string         `json:"neighborhood,omitempty"`
}

type Line struct {
	ID          int64  `json:"id"`
	Number      string `json:"number"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Polyline    string `json:"polyline,omitempty"`
}

// StopOnRoute places a stop on a line. OffsetMinutes is the scheduled running time from
// the line's origin terminal, when known.
type StopOnRoute struct {
	LineID        int64  `json:"lineId"`
	StopID        string `json:"stopId"`
	Sequence      int    `json:"sequence"`
	OffsetMinutes *int   `json:"offsetMinutes,omitempty"`
}

// RouteStop is a StopOnRoute joined with its stop.
type RouteStop struct {
	Stop
	LineID        int64 `json:"lineId"`
	Sequence      int   `json:"sequence"`
	OffsetMinutes *int  `json:"offsetMinutes,omitempty"`
}

// Offset returns the running time from the origin terminal.
func (rs RouteStop) Offset() (time.Duration, bool) {
	if rs.OffsetMinutes == nil {
		return 0, false
	}
	return time.Duration(*rs.OffsetMinutes) * time.Minute, true
}
