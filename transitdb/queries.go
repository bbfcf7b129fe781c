package transitdb

// Hand-written queries over schema.sql. Keep the column lists in the scan helpers in
// sync with the tables when the schema changes.

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

// IsUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY constraint.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsForeignKeyViolation reports whether err came from a FOREIGN KEY constraint.
func IsForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLine(row rowScanner) (Line, error) {
	var i Line
	err := row.Scan(&i.ID, &i.Number, &i.Origin, &i.Destination, &i.Polyline)
	return i, err
}

func scanStop(row rowScanner) (Stop, error) {
	var i Stop
	err := row.Scan(&i.ID, &i.Name, &i.Lat, &i.Lon, &i.Neighborhood)
	return i, err
}

func scanSchedule(row rowScanner) (Schedule, error) {
	var i Schedule
	err := row.Scan(&i.ID, &i.LineID, &i.DayType, &i.DepartureTime, &i.Direction, &i.Notes)
	return i, err
}

const createLine = `
INSERT INTO lines (number, origin, destination, polyline)
VALUES (?, ?, ?, ?)
RETURNING id, number, origin, destination, polyline
`

type CreateLineParams struct {
	Number      string
	Origin      string
	Destination string
	Polyline    sql.NullString
}

func (q *Queries) CreateLine(ctx context.Context, arg CreateLineParams) (Line, error) {
	row := q.db.QueryRowContext(ctx, createLine, arg.Number, arg.Origin, arg.Destination, arg.Polyline)
	return scanLine(row)
}

const upsertLine = `
INSERT INTO lines (number, origin, destination, polyline)
VALUES (?, ?, ?, ?)
ON CONFLICT (number) DO UPDATE SET
    origin = excluded.origin,
    destination = excluded.destination,
    polyline = COALESCE(excluded.polyline, lines.polyline)
RETURNING id, number, origin, destination, polyline
`

func (q *Queries) UpsertLine(ctx context.Context, arg CreateLineParams) (Line, error) {
	row := q.db.QueryRowContext(ctx, upsertLine, arg.Number, arg.Origin, arg.Destination, arg.Polyline)
	return scanLine(row)
}

const getLineByNumber = `
SELECT id, number, origin, destination, polyline FROM lines WHERE number = ?
`

func (q *Queries) GetLineByNumber(ctx context.Context, number string) (Line, error) {
	return scanLine(q.db.QueryRowContext(ctx, getLineByNumber, number))
}

const listLines = `
SELECT id, number, origin, destination, polyline FROM lines ORDER BY number, id
`

func (q *Queries) ListLines(ctx context.Context) ([]Line, error) {
	rows, err := q.db.QueryContext(ctx, listLines)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below
	var items []Line
	for rows.Next() {
		i, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertStop = `
INSERT INTO stops (id, name, lat, lon, neighborhood)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    neighborhood = COALESCE(excluded.neighborhood, stops.neighborhood)
RETURNING id, name, lat, lon, neighborhood
`

type UpsertStopParams struct {
	ID           string
	Name         string
	Lat          float64
	Lon          float64
	Neighborhood sql.NullString
}

func (q *Queries) UpsertStop(ctx context.Context, arg UpsertStopParams) (Stop, error) {
	row := q.db.QueryRowContext(ctx, upsertStop, arg.ID, arg.Name, arg.Lat, arg.Lon, arg.Neighborhood)
	return scanStop(row)
}

const getStop = `
SELECT id, name, lat, lon, neighborhood FROM stops WHERE id = ?
`

func (q *Queries) GetStop(ctx context.Context, id string) (Stop, error) {
	return scanStop(q.db.QueryRowContext(ctx, getStop, id))
}

const listStops = `
SELECT id, name, lat, lon, neighborhood FROM stops ORDER BY id
`

func (q *Queries) ListStops(ctx context.Context) ([]Stop, error) {
	rows, err := q.db.QueryContext(ctx, listStops)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below
	var items []Stop
	for rows.Next() {
		i, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createStopOnRoute = `
INSERT INTO stop_on_route (line_id, stop_id, sequence, offset_minutes)
VALUES (?, ?, ?, ?)
`

type CreateStopOnRouteParams struct {
	LineID        int64
	StopID        string
	Sequence      int64
	OffsetMinutes sql.NullInt64
}

func (q *Queries) CreateStopOnRoute(ctx context.Context, arg CreateStopOnRouteParams) error {
	_, err := q.db.ExecContext(ctx, createStopOnRoute, arg.LineID, arg.StopID, arg.Sequence, arg.OffsetMinutes)
	return err
}

const deleteStopOnRoutesForLine = `
DELETE FROM stop_on_route WHERE line_id = ?
`

func (q *Queries) DeleteStopOnRoutesForLine(ctx context.Context, lineID int64) error {
	_, err := q.db.ExecContext(ctx, deleteStopOnRoutesForLine, lineID)
	return err
}

const listStopOnRoutes = `
SELECT line_id, stop_id, sequence, offset_minutes
FROM stop_on_route
ORDER BY line_id, sequence
`

func (q *Queries) ListStopOnRoutes(ctx context.Context) ([]StopOnRoute, error) {
	rows, err := q.db.QueryContext(ctx, listStopOnRoutes)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below
	var items []StopOnRoute
	for rows.Next() {
		var i StopOnRoute
		if err := rows.Scan(&i.LineID, &i.StopID, &i.Sequence, &i.OffsetMinutes); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getStopOnRoute = `
SELECT line_id, stop_id, sequence, offset_minutes
FROM stop_on_route
WHERE line_id = ? AND stop_id = ?
ORDER BY sequence
LIMIT 1
`

func (q *Queries) GetStopOnRoute(ctx context.Context, lineID int64, stopID string) (StopOnRoute, error) {
	var i StopOnRoute
	err := q.db.QueryRowContext(ctx, getStopOnRoute, lineID, stopID).
		Scan(&i.LineID, &i.StopID, &i.Sequence, &i.OffsetMinutes)
	return i, err
}

const createSchedule = `
INSERT INTO schedules (line_id, day_type, departure_time, direction, notes)
VALUES (?, ?, ?, ?, ?)
RETURNING id, line_id, day_type, departure_time, direction, notes
`

type CreateScheduleParams struct {
	LineID        int64
	DayType       string
	DepartureTime int64
	Direction     sql.NullString
	Notes         sql.NullString
}

func (q *Queries) CreateSchedule(ctx context.Context, arg CreateScheduleParams) (Schedule, error) {
	row := q.db.QueryRowContext(ctx, createSchedule, arg.LineID, arg.DayType, arg.DepartureTime, arg.Direction, arg.Notes)
	return scanSchedule(row)
}

const createScheduleIgnoringDuplicates = `
INSERT INTO schedules (line_id, day_type, departure_time, direction, notes)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (line_id, day_type, departure_time) DO NOTHING
`

// CreateScheduleIgnoringDuplicates inserts a departure unless the same
// (line, day type, time) already exists. It reports whether a row was written.
func (q *Queries) CreateScheduleIgnoringDuplicates(ctx context.Context, arg CreateScheduleParams) (bool, error) {
	res, err := q.db.ExecContext(ctx, createScheduleIgnoringDuplicates, arg.LineID, arg.DayType, arg.DepartureTime, arg.Direction, arg.Notes)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

const listSchedules = `
SELECT id, line_id, day_type, departure_time, direction, notes
FROM schedules
ORDER BY line_id, day_type, departure_time
`

func (q *Queries) ListSchedules(ctx context.Context) ([]Schedule, error) {
	return q.listSchedules(ctx, listSchedules)
}

const listSchedulesForLine = `
SELECT id, line_id, day_type, departure_time, direction, notes
FROM schedules
WHERE line_id = ? AND day_type = ?
ORDER BY departure_time
`

func (q *Queries) ListSchedulesForLine(ctx context.Context, lineID int64, dayType string) ([]Schedule, error) {
	return q.listSchedules(ctx, listSchedulesForLine, lineID, dayType)
}

func (q *Queries) listSchedules(ctx context.Context, query string, args ...interface{}) ([]Schedule, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below
	var items []Schedule
	for rows.Next() {
		i, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getImportMetadata = `
SELECT source, file_hash, import_time FROM import_metadata WHERE source = ?
`

func (q *Queries) GetImportMetadata(ctx context.Context, source string) (ImportMetadatum, error) {
	var i ImportMetadatum
	err := q.db.QueryRowContext(ctx, getImportMetadata, source).Scan(&i.Source, &i.FileHash, &i.ImportTime)
	return i, err
}

func (q *Queries) ListImportMetadata(ctx context.Context) ([]ImportMetadatum, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT source, file_hash, import_time FROM import_metadata ORDER BY import_time DESC, source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below

	var items []ImportMetadatum
	for rows.Next() {
		var i ImportMetadatum
		if err := rows.Scan(&i.Source, &i.FileHash, &i.ImportTime); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertImportMetadata = `
INSERT INTO import_metadata (source, file_hash, import_time)
VALUES (?, ?, ?)
ON CONFLICT (source) DO UPDATE SET
    file_hash = excluded.file_hash,
    import_time = excluded.import_time
`

func (q *Queries) UpsertImportMetadata(ctx context.Context, arg ImportMetadatum) error {
	_, err := q.db.ExecContext(ctx, upsertImportMetadata, arg.Source, arg.FileHash, arg.ImportTime)
	return err
}

func (q *Queries) ClearSchedules(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM schedules`)
	return err
}

func (q *Queries) ClearStopOnRoutes(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM stop_on_route`)
	return err
}

func (q *Queries) ClearStops(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM stops`)
	return err
}

func (q *Queries) ClearLines(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM lines`)
	return err
}
