package restapi

import (
	"net/http"
	"time"

	"saquabus.org/internal/models"
	"saquabus.org/internal/schedule"
)

// currentTimeHandler reports the service clock. Clients use it to render departures
// relative to the server's notion of "now" rather than the phone's.
func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	clk := api.clock()
	now := clk.Now()
	api.sendResponse(w, r, models.NewOKResponse(models.CurrentTimeData{
		ReadableTime: now.Format(time.RFC3339),
		Time:         now.UnixMilli(),
		DayType:      string(schedule.DayTypeFor(now)),
	}, clk))
}
