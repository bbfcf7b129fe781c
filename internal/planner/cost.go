package planner

import "time"

// SafetyBuffer is how long before the bus a rider should be at the stop.
const SafetyBuffer = 120 * time.Second

// Cost is the total walking distance of a candidate in kilometres.
func Cost(c Candidate) float64 {
	return c.BoardingDistanceKm + c.AlightingDistanceKm
}

// SelectBest returns the cheapest candidate; the earliest wins ties.
func SelectBest(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if Cost(c) < Cost(best) {
			best = c
		}
	}
	return best, true
}

// ETA is the timing of a planned boarding.
type ETA struct {
	Departure      time.Time `json:"departure"`
	BusArrival     time.Time `json:"busArrival"`
	ArriveAtStopBy time.Time `json:"arriveAtStopBy"`
	LeaveBy        time.Time `json:"leaveBy"`
}

// ComposeETA chains a terminal departure, the bus running time to the boarding stop and
// the rider's walk: the bus reaches the stop at departure+busTravel, the rider should be
// there buffer earlier and leave walking earlier still.
func ComposeETA(departure time.Time, busTravel, walking, buffer time.Duration) ETA {
	busArrival := departure.Add(busTravel)
	arriveBy := busArrival.Add(-buffer)
	return ETA{
		Departure:      departure,
		BusArrival:     busArrival,
		ArriveAtStopBy: arriveBy,
		LeaveBy:        arriveBy.Add(-walking),
	}
}
