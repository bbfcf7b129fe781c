package restapi

import (
	"net/http"

	"saquabus.org/internal/models"
	"saquabus.org/internal/planner"
)

func (api *RestAPI) nearbyStopsHandler(w http.ResponseWriter, r *http.Request) {
	fe := fieldErrors{}
	point := parseCoordinate(r, "lat", "lng", fe)
	limit := parseOptionalInt(r, "limit", fe)
	if !fe.empty() {
		api.validationErrorResponse(w, r, fe)
		return
	}

	stops, err := api.Planner.FindNearestStops(r.Context(), planner.FindNearestStopsRequest{Point: point, Limit: limit})
	if err != nil {
		api.plannerErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewListResponse(stops, false, api.clock()))
}

func (api *RestAPI) stopsHandler(w http.ResponseWriter, r *http.Request) {
	stops := api.Planner.Stops(r.URL.Query().Get("neighborhood"))
	api.sendResponse(w, r, models.NewListResponse(stops, false, api.clock()))
}

func (api *RestAPI) stopHandler(w http.ResponseWriter, r *http.Request) {
	detail, err := api.Planner.StopDetail(r.PathValue("id"))
	if err != nil {
		api.plannerErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(detail, api.clock()))
}

func (api *RestAPI) stopPredictionsHandler(w http.ResponseWriter, r *http.Request) {
	result, err := api.Planner.PredictArrival(r.Context(), planner.PredictArrivalRequest{StopID: r.PathValue("id")})
	if err != nil {
		api.plannerErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(result, api.clock()))
}
