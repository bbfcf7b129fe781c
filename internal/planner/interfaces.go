package planner

import (
	"context"
	"time"

	"saquabus.org/internal/geo"
	"saquabus.org/internal/schedule"
	"saquabus.org/internal/transit"
)

// Network is the read side of the transit data. *transit.Snapshot implements it.
type Network interface {
	Lines() []transit.Line
	Line(id int64) (transit.Line, bool)
	LineByNumber(number string) (transit.Line, bool)
	Stops() []transit.Stop
	StopsNear(point geo.Coordinate, radiusKm float64) []transit.Stop
	Stop(id string) (transit.Stop, bool)
	LinesForStop(stopID string) []int64
	RouteStops(lineID int64) []transit.RouteStop
	Departures(lineID int64, dayType schedule.DayType) []schedule.Departure
}

// Geocoder resolves free text addresses. A miss returns ErrDestinationNotFound.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geo.Coordinate, error)
}

type TravelMode string

const (
	Driving TravelMode = "driving"
	Walking TravelMode = "walking"
)

// TravelEstimate is one origin/destination answer from a routing provider.
type TravelEstimate struct {
	DistanceMeters    int           `json:"distanceMeters"`
	Duration          time.Duration `json:"duration"`
	DurationInTraffic time.Duration `json:"durationInTraffic,omitempty"`
	DistanceText      string        `json:"distanceText,omitempty"`
	DurationText      string        `json:"durationText,omitempty"`
}

// Preferred returns the traffic aware duration when present, else the static one.
func (e TravelEstimate) Preferred() (time.Duration, bool) {
	if e.DurationInTraffic > 0 {
		return e.DurationInTraffic, true
	}
	return e.Duration, false
}

type TravelTimer interface {
	TravelDuration(ctx context.Context, origin, destination geo.Coordinate, mode TravelMode) (TravelEstimate, error)
}

// PredictionContext is what an ArrivalPredictor gets to phrase an arrival estimate.
type PredictionContext struct {
	Now           time.Time
	Line          transit.Line
	StopName      string
	DepartureTime string
	DurationText  string
	DistanceText  string
}

// ArrivalPredictor phrases an arrival estimate. It never fails; problems come back as a
// fallback sentence.
type ArrivalPredictor interface {
	PredictArrival(ctx context.Context, pc PredictionContext) string
}
