package planner

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Status is the outcome of a planning or prediction request. Every value except OK is an
// expected negative answer, not a failure.
type Status string

const (
	StatusOK                    Status = "OK"
	StatusDestinationNotFound   Status = "DESTINATION_NOT_FOUND"
	StatusNoCoverage            Status = "NO_COVERAGE"
	StatusNoRouteFound          Status = "NO_ROUTE_FOUND"
	StatusNoMoreDeparturesToday Status = "NO_MORE_DEPARTURES_TODAY"
	StatusETAUnavailable        Status = "ETA_UNAVAILABLE"
)

var (
	ErrDestinationNotFound = errors.New("destination not found")
	ErrLookupUnavailable   = errors.New("external lookup unavailable")
	ErrStopNotFound        = errors.New("stop not found")
	ErrLineNotFound        = errors.New("line not found")
	ErrStopNotOnLine       = errors.New("stop is not served by line")
	ErrRunningTimeUnknown  = errors.New("running time to stop is unknown")
)

// ValidationError lists the rejected request fields with their messages.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], ", ")))
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}
