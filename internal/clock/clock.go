// Package clock abstracts the current time so planner and schedule lookups can be tested
// deterministically. Service logic always reads time through a Clock pinned to the
// service time zone.
package clock

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Clock provides an abstraction for time operations.
type Clock interface {
	Now() time.Time
	NowUnixMilli() int64
}

// RealClock implements Clock using the system time.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

// MockClock is a controllable, thread-safe Clock for tests.
type MockClock struct {
	currentTime time.Time
	mu          sync.Mutex
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime
}

func (m *MockClock) NowUnixMilli() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime.UnixMilli()
}

// Set changes the mock clock's current time.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = t
}

// Advance moves the mock clock by d; negative durations move it backwards.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(d)
}

// locationClock reports another clock's instant in a fixed location.
type locationClock struct {
	inner Clock
	loc   *time.Location
}

// InLocation wraps c so Now returns times expressed in loc. A nil loc returns c unchanged.
func InLocation(c Clock, loc *time.Location) Clock {
	if loc == nil {
		return c
	}
	return locationClock{inner: c, loc: loc}
}

func (l locationClock) Now() time.Time {
	return l.inner.Now().In(l.loc)
}

func (l locationClock) NowUnixMilli() int64 {
	return l.inner.NowUnixMilli()
}

// ReplayClock starts at a pinned instant and then moves forward with the wall clock, so a
// staging server can replay a chosen service day with departures rolling past as usual.
type ReplayClock struct {
	start   time.Time
	started time.Time
}

// NewReplayClock takes the pinned instant from envVar or, when that is unset, from the
// first line of filePath. Either source may be empty.
func NewReplayClock(envVar, filePath string, loc *time.Location) (*ReplayClock, error) {
	var raw, source string
	switch {
	case envVar != "" && os.Getenv(envVar) != "":
		raw, source = os.Getenv(envVar), envVar
	case filePath != "":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read pinned time: %w", err)
		}
		raw, source = string(data), filePath
	default:
		return nil, errors.New("no pinned time configured")
	}

	start, err := ParsePinnedTime(raw, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return &ReplayClock{start: start, started: time.Now()}, nil
}

func (c *ReplayClock) Now() time.Time {
	return c.start.Add(time.Since(c.started))
}

func (c *ReplayClock) NowUnixMilli() int64 {
	return c.Now().UnixMilli()
}

var pinnedLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// ParsePinnedTime accepts RFC 3339, or a local date and time in loc.
func ParsePinnedTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if loc == nil {
		return time.Time{}, fmt.Errorf("time %q has no offset and no location is configured", s)
	}
	for _, layout := range pinnedLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time %q: expected RFC 3339, YYYY-MM-DD HH:MM:SS or YYYY-MM-DD HH:MM", s)
}
