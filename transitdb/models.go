package transitdb

import "database/sql"

type Line struct {
	ID          int64
	Number      string
	Origin      string
	Destination string
	Polyline    sql.NullString
}

type Stop struct {
	ID           string
	Name         string
	Lat          float64
	Lon          float64
	Neighborhood sql.NullString
}

type StopOnRoute struct {
	LineID        int64
	StopID        string
	Sequence      int64
	OffsetMinutes sql.NullInt64
}

type Schedule struct {
	ID            int64
	LineID        int64
	DayType       string
	DepartureTime int64 // seconds since midnight
	Direction     sql.NullString
	Notes         sql.NullString
}

type ImportMetadatum struct {
	Source     string
	FileHash   string
	ImportTime int64
}
