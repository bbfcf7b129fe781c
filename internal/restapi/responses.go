package restapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"saquabus.org/internal/clock"
	"saquabus.org/internal/logging"
	"saquabus.org/internal/models"
	"saquabus.org/internal/planner"
)

func (api *RestAPI) clock() clock.Clock {
	if api.Application != nil && api.Clock != nil {
		return api.Clock
	}
	return clock.RealClock{}
}

func (api *RestAPI) logger() *slog.Logger {
	if api.Application != nil && api.Logger != nil {
		return api.Logger
	}
	return slog.Default()
}

func setJSONResponseType(w *http.ResponseWriter) {
	(*w).Header().Set("Content-Type", "application/json")
}

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	api.sendResponseWithStatus(w, r, http.StatusOK, response)
}

func (api *RestAPI) sendResponseWithStatus(w http.ResponseWriter, r *http.Request, status int, response models.ResponseModel) {
	setJSONResponseType(&w)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(api.logger(), "failed to encode response", err,
			slog.String("path", r.URL.Path))
	}
}

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, code int, message string) {
	api.sendResponseWithStatus(w, r, code, models.NewResponse(code, nil, message, api.clock()))
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusNotFound, "resource not found")
}

func (api *RestAPI) sendUnauthorized(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusUnauthorized, "permission denied")
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(api.logger(), "internal server error", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", RequestIDFrom(r.Context())))
	api.sendError(w, r, http.StatusInternalServerError, "internal server error")
}

func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	response := models.NewResponse(http.StatusBadRequest, models.ErrorData{FieldErrors: fieldErrors}, "invalid request", api.clock())
	api.sendResponseWithStatus(w, r, http.StatusBadRequest, response)
}

// plannerErrorResponse maps the planner's error values onto HTTP statuses.
func (api *RestAPI) plannerErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var verr *planner.ValidationError
	switch {
	case errors.As(err, &verr):
		api.validationErrorResponse(w, r, verr.Fields)
	case errors.Is(err, planner.ErrLookupUnavailable):
		logging.LogError(api.logger(), "external lookup unavailable", err,
			slog.String("path", r.URL.Path))
		api.sendError(w, r, http.StatusServiceUnavailable, "address lookup is unavailable, try again later")
	case errors.Is(err, planner.ErrStopNotFound),
		errors.Is(err, planner.ErrLineNotFound),
		errors.Is(err, planner.ErrStopNotOnLine),
		errors.Is(err, planner.ErrRunningTimeUnknown):
		api.sendError(w, r, http.StatusNotFound, err.Error())
	default:
		api.serverErrorResponse(w, r, err)
	}
}
