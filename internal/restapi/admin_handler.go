package restapi

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"saquabus.org/internal/logging"
	"saquabus.org/internal/models"
	"saquabus.org/internal/planner"
	"saquabus.org/internal/schedule"
	"saquabus.org/internal/transit"
	"saquabus.org/transitdb"
)

// requireAPIKey rejects requests without one of the configured admin keys.
func (api *RestAPI) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.sendUnauthorized(w, r)
			return
		}
		next(w, r)
	}
}

// decodeBody reads and validates an admin request body, answering 400 on failure.
func (api *RestAPI) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := readJSON(w, r, dst); err != nil {
		api.validationErrorResponse(w, r, fieldErrors{"body": {err.Error()}})
		return false
	}
	if err := planner.Validate(dst); err != nil {
		api.plannerErrorResponse(w, r, err)
		return false
	}
	return true
}

// reloadAfterWrite refreshes the in-memory network so the change is visible to riders.
func (api *RestAPI) reloadAfterWrite(ctx context.Context, w http.ResponseWriter, r *http.Request) bool {
	if err := api.TransitManager.Reload(ctx); err != nil {
		api.serverErrorResponse(w, r, err)
		return false
	}
	return true
}

func (api *RestAPI) sendCreated(w http.ResponseWriter, r *http.Request, data any) {
	api.sendResponseWithStatus(w, r, http.StatusCreated, models.NewResponse(http.StatusCreated, data, "Created", api.clock()))
}

func (api *RestAPI) lineFromPath(w http.ResponseWriter, r *http.Request) (transitdb.Line, bool) {
	line, err := api.TransitManager.DB().Queries.GetLineByNumber(r.Context(), r.PathValue("number"))
	if errors.Is(err, sql.ErrNoRows) {
		api.sendError(w, r, http.StatusNotFound, planner.ErrLineNotFound.Error())
		return line, false
	}
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return line, false
	}
	return line, true
}

type createLineRequest struct {
	Number      string `json:"number" validate:"required"`
	Origin      string `json:"origin" validate:"required"`
	Destination string `json:"destination" validate:"required"`
	Polyline    string `json:"polyline"`
}

func (api *RestAPI) createLineHandler(w http.ResponseWriter, r *http.Request) {
	var req createLineRequest
	if !api.decodeBody(w, r, &req) {
		return
	}

	line, err := api.TransitManager.DB().Queries.CreateLine(r.Context(), transitdb.CreateLineParams{
		Number:      strings.TrimSpace(req.Number),
		Origin:      req.Origin,
		Destination: req.Destination,
		Polyline:    transitdb.ToNullString(req.Polyline),
	})
	if transitdb.IsUniqueViolation(err) {
		api.sendError(w, r, http.StatusConflict, "line "+req.Number+" already exists")
		return
	}
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	if !api.reloadAfterWrite(r.Context(), w, r) {
		return
	}
	logging.LogOperation(api.Logger, "line_created", slog.String("number", line.Number))
	api.sendCreated(w, r, transit.LineFromDB(line))
}

type createStopRequest struct {
	ID           string  `json:"id"`
	Name         string  `json:"name" validate:"required"`
	Lat          float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng          float64 `json:"lng" validate:"gte=-180,lte=180"`
	Neighborhood string  `json:"neighborhood"`
}

// createStopHandler upserts a stop. Without an id one is derived from the coordinates.
func (api *RestAPI) createStopHandler(w http.ResponseWriter, r *http.Request) {
	var req createStopRequest
	if !api.decodeBody(w, r, &req) {
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = transitdb.StopIDFor(req.Lat, req.Lng)
	}

	stop, err := api.TransitManager.DB().Queries.UpsertStop(r.Context(), transitdb.UpsertStopParams{
		ID:           id,
		Name:         req.Name,
		Lat:          req.Lat,
		Lon:          req.Lng,
		Neighborhood: transitdb.ToNullString(req.Neighborhood),
	})
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	if !api.reloadAfterWrite(r.Context(), w, r) {
		return
	}
	api.sendCreated(w, r, transit.StopFromDB(stop))
}

type createScheduleRequest struct {
	DayType   string `json:"dayType" validate:"required"`
	Time      string `json:"time" validate:"required"`
	Direction string `json:"direction"`
	Notes     string `json:"notes"`
}

func (api *RestAPI) createScheduleHandler(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if !api.decodeBody(w, r, &req) {
		return
	}
	fe := fieldErrors{}
	dayType, err := schedule.ParseDayType(req.DayType)
	if err != nil {
		fe.add("dayType", "must be one of WEEKDAY, SATURDAY, SUNDAY_HOLIDAY")
	}
	at, err := schedule.ParseTimeOfDay(req.Time)
	if err != nil {
		fe.add("time", "must be HH:MM")
	}
	if !fe.empty() {
		api.validationErrorResponse(w, r, fe)
		return
	}

	line, ok := api.lineFromPath(w, r)
	if !ok {
		return
	}

	row, err := api.TransitManager.DB().Queries.CreateSchedule(r.Context(), transitdb.CreateScheduleParams{
		LineID:        line.ID,
		DayType:       string(dayType),
		DepartureTime: int64(at),
		Direction:     transitdb.ToNullString(req.Direction),
		Notes:         transitdb.ToNullString(req.Notes),
	})
	if transitdb.IsUniqueViolation(err) {
		api.sendError(w, r, http.StatusConflict, "departure "+at.String()+" already exists for "+string(dayType))
		return
	}
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	if !api.reloadAfterWrite(r.Context(), w, r) {
		return
	}
	api.sendCreated(w, r, schedule.Departure{
		LineID:    row.LineID,
		DayType:   dayType,
		Time:      schedule.TimeOfDay(row.DepartureTime),
		Direction: row.Direction.String,
		Notes:     row.Notes.String,
	})
}

type addStopToLineRequest struct {
	StopID        string `json:"stopId" validate:"required"`
	Sequence      int    `json:"sequence" validate:"gte=1"`
	OffsetMinutes *int   `json:"offsetMinutes" validate:"omitempty,gte=0"`
}

func (api *RestAPI) addStopToLineHandler(w http.ResponseWriter, r *http.Request) {
	var req addStopToLineRequest
	if !api.decodeBody(w, r, &req) {
		return
	}
	line, ok := api.lineFromPath(w, r)
	if !ok {
		return
	}

	params := transitdb.CreateStopOnRouteParams{
		LineID:        line.ID,
		StopID:        req.StopID,
		Sequence:      int64(req.Sequence),
		OffsetMinutes: transitdb.ToNullInt64Ptr(req.OffsetMinutes),
	}
	err := api.TransitManager.DB().Queries.CreateStopOnRoute(r.Context(), params)
	switch {
	case transitdb.IsForeignKeyViolation(err):
		api.sendError(w, r, http.StatusNotFound, planner.ErrStopNotFound.Error())
		return
	case transitdb.IsUniqueViolation(err):
		api.sendError(w, r, http.StatusConflict, "sequence already used on this line")
		return
	case err != nil:
		api.serverErrorResponse(w, r, err)
		return
	}
	if !api.reloadAfterWrite(r.Context(), w, r) {
		return
	}
	api.sendCreated(w, r, transit.StopOnRoute{
		LineID:        line.ID,
		StopID:        req.StopID,
		Sequence:      req.Sequence,
		OffsetMinutes: req.OffsetMinutes,
	})
}

// reloadHandler re-imports the configured sources and swaps in the new network.
func (api *RestAPI) reloadHandler(w http.ResponseWriter, r *http.Request) {
	if err := api.TransitManager.ForceUpdate(r.Context()); err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	counts := api.TransitManager.Snapshot().Counts()
	logging.LogOperation(api.Logger, "network_reloaded", slog.Int("lines", counts["lines"]))
	api.sendResponse(w, r, models.NewOKResponse(counts, api.clock()))
}
