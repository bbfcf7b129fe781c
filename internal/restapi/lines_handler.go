package restapi

import (
	"net/http"
	"strings"

	"saquabus.org/internal/models"
	"saquabus.org/internal/planner"
	"saquabus.org/internal/schedule"
)

func (api *RestAPI) linesHandler(w http.ResponseWriter, r *http.Request) {
	api.sendResponse(w, r, models.NewListResponse(api.Planner.Lines(), false, api.clock()))
}

func (api *RestAPI) lineRouteHandler(w http.ResponseWriter, r *http.Request) {
	route, err := api.Planner.LineRoute(r.PathValue("number"))
	if err != nil {
		api.plannerErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(route, api.clock()))
}

// parseDayTypeParam reads an optional dayType; empty means today.
func parseDayTypeParam(r *http.Request, fe fieldErrors) schedule.DayType {
	raw := strings.TrimSpace(r.URL.Query().Get("dayType"))
	if raw == "" {
		return ""
	}
	d, err := schedule.ParseDayType(raw)
	if err != nil {
		fe.add("dayType", "must be one of WEEKDAY, SATURDAY, SUNDAY_HOLIDAY")
		return ""
	}
	return d
}

func (api *RestAPI) lineScheduleHandler(w http.ResponseWriter, r *http.Request) {
	fe := fieldErrors{}
	dayType := parseDayTypeParam(r, fe)
	if !fe.empty() {
		api.validationErrorResponse(w, r, fe)
		return
	}

	sched, err := api.Planner.LineSchedule(r.PathValue("number"), dayType)
	if err != nil {
		api.plannerErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(sched, api.clock()))
}

func (api *RestAPI) lineArrivalsHandler(w http.ResponseWriter, r *http.Request) {
	fe := fieldErrors{}
	req := planner.ArrivalsRequest{
		LineNumber: r.PathValue("number"),
		StopID:     r.PathValue("stopId"),
		DayType:    parseDayTypeParam(r, fe),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("time")); raw != "" {
		at, err := schedule.ParseTimeOfDay(raw)
		if err != nil {
			fe.add("time", "must be HH:MM")
		} else {
			req.At = &at
		}
	}
	if !fe.empty() {
		api.validationErrorResponse(w, r, fe)
		return
	}

	arrivals, err := api.Planner.UpcomingArrivals(req)
	if err != nil {
		api.plannerErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(arrivals, api.clock()))
}
