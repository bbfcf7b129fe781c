package restapi

import (
	"net/http"
	"strings"

	"saquabus.org/internal/models"
	"saquabus.org/internal/planner"
)

// statusCode maps a planner outcome to the HTTP status of its response. Outcomes that
// leave the rider without a usable line are 404s that still carry the result.
func statusCode(s planner.Status) int {
	switch s {
	case planner.StatusDestinationNotFound, planner.StatusNoCoverage, planner.StatusNoRouteFound:
		return http.StatusNotFound
	default:
		return http.StatusOK
	}
}

func (api *RestAPI) sendOutcome(w http.ResponseWriter, r *http.Request, status planner.Status, data any) {
	code := statusCode(status)
	api.sendResponseWithStatus(w, r, code, models.NewResponse(code, data, string(status), api.clock()))
}

func (api *RestAPI) planTripHandler(w http.ResponseWriter, r *http.Request) {
	fe := fieldErrors{}
	origin := parseCoordinate(r, "fromLat", "fromLng", fe)
	toAddress := strings.TrimSpace(r.URL.Query().Get("toAddress"))
	if toAddress == "" {
		fe.add("toAddress", "is required")
	}
	if !fe.empty() {
		api.validationErrorResponse(w, r, fe)
		return
	}

	result, err := api.Planner.PlanTrip(r.Context(), planner.PlanTripRequest{
		Origin:             origin,
		DestinationAddress: toAddress,
	})
	if err != nil {
		api.plannerErrorResponse(w, r, err)
		return
	}
	api.Metrics.RecordTripPlan(string(result.Status))
	api.sendOutcome(w, r, result.Status, result)
}

func (api *RestAPI) commonLinesHandler(w http.ResponseWriter, r *http.Request) {
	fe := fieldErrors{}
	origin := parseCoordinate(r, "fromLat", "fromLng", fe)
	toAddress := strings.TrimSpace(r.URL.Query().Get("toAddress"))
	if toAddress == "" {
		fe.add("toAddress", "is required")
	}
	if !fe.empty() {
		api.validationErrorResponse(w, r, fe)
		return
	}

	result, err := api.Planner.CommonLines(r.Context(), planner.CommonLinesRequest{
		Origin:             origin,
		DestinationAddress: toAddress,
	})
	if err != nil {
		api.plannerErrorResponse(w, r, err)
		return
	}
	api.sendOutcome(w, r, result.Status, result)
}
