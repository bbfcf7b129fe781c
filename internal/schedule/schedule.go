// Package schedule answers timetable questions for a single line and day type:
// the last departure before now, the next one after now, and estimated arrivals
// at stops further down the route.
package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DayType selects which timetable applies on a calendar day.
type DayType string

const (
	Weekday       DayType = "WEEKDAY"
	Saturday      DayType = "SATURDAY"
	SundayHoliday DayType = "SUNDAY_HOLIDAY"
)

// DayTypes lists every day type in timetable order.
var DayTypes = []DayType{Weekday, Saturday, SundayHoliday}

// DayTypeFor maps t's weekday in its own location to a DayType.
// Public holidays are not detected; they use the weekday timetable.
func DayTypeFor(t time.Time) DayType {
	switch t.Weekday() {
	case time.Sunday:
		return SundayHoliday
	case time.Saturday:
		return Saturday
	default:
		return Weekday
	}
}

func (d DayType) Valid() bool {
	switch d {
	case Weekday, Saturday, SundayHoliday:
		return true
	}
	return false
}

// ParseDayType accepts the canonical names plus the operator's timetable codes.
func ParseDayType(s string) (DayType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WEEKDAY", "SEG-SEX", "SEMANA", "DIA_UTIL":
		return Weekday, nil
	case "SATURDAY", "SAB", "SABADO":
		return Saturday, nil
	case "SUNDAY_HOLIDAY", "DOM-FER", "DOMINGO", "FERIADO":
		return SundayHoliday, nil
	}
	return "", fmt.Errorf("unknown day type %q", s)
}

// TimeOfDay is a wall clock time as seconds since local midnight. Values past 24h are
// allowed for trips that run after midnight.
type TimeOfDay int

const maxTimeOfDay = TimeOfDay(48 * 3600)

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM or HH:MM:SS", s)
	}
	var fields [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		fields[i] = n
	}
	if fields[1] > 59 || fields[2] > 59 {
		return 0, fmt.Errorf("invalid time %q: minutes and seconds must be below 60", s)
	}
	t := TimeOfDay(fields[0]*3600 + fields[1]*60 + fields[2])
	if t >= maxTimeOfDay {
		return 0, fmt.Errorf("invalid time %q: hour out of range", s)
	}
	return t, nil
}

// MustParseTimeOfDay is ParseTimeOfDay for literals; it panics on bad input.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeOfDayOf returns the wall clock time of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// String formats as HH:MM, wrapping hours past midnight.
func (t TimeOfDay) String() string {
	minutes := int(t) / 60
	return fmt.Sprintf("%02d:%02d", (minutes/60)%24, minutes%60)
}

// On returns the instant of t on the calendar day of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, day.Location()).Add(time.Duration(t) * time.Second)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Departure is one scheduled departure of a line from its origin terminal.
type Departure struct {
	LineID    int64     `json:"lineId"`
	DayType   DayType   `json:"dayType"`
	Time      TimeOfDay `json:"time"`
	Direction string    `json:"direction,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// sorted returns deps ordered by time. The input is returned as is when already sorted,
// otherwise a sorted copy is made so the caller's slice is never reordered.
func sorted(deps []Departure) []Departure {
	less := func(i, j int) bool { return deps[i].Time < deps[j].Time }
	if sort.SliceIsSorted(deps, less) {
		return deps
	}
	cp := make([]Departure, len(deps))
	copy(cp, deps)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Time < cp[j].Time })
	return cp
}

// LastDeparture returns the latest departure strictly before now.
func LastDeparture(deps []Departure, now TimeOfDay) (Departure, bool) {
	s := sorted(deps)
	i := sort.Search(len(s), func(i int) bool { return s[i].Time >= now })
	if i == 0 {
		return Departure{}, false
	}
	return s[i-1], true
}

// NextDeparture returns the earliest departure strictly after now.
func NextDeparture(deps []Departure, now TimeOfDay) (Departure, bool) {
	s := sorted(deps)
	i := sort.Search(len(s), func(i int) bool { return s[i].Time > now })
	if i == len(s) {
		return Departure{}, false
	}
	return s[i], true
}

// UpcomingArrivals estimates when buses reach a stop that lies offset after the origin:
// each departure plus offset, keeping those at or after now, earliest first, at most limit
// (limit <= 0 means no limit).
func UpcomingArrivals(deps []Departure, offset time.Duration, now TimeOfDay, limit int) []TimeOfDay {
	s := sorted(deps)
	shift := TimeOfDay(offset / time.Second)

	var arrivals []TimeOfDay
	for _, d := range s {
		at := d.Time + shift
		if at < now {
			continue
		}
		arrivals = append(arrivals, at)
		if limit > 0 && len(arrivals) == limit {
			break
		}
	}
	return arrivals
}
