package restapi

import (
	"encoding/json"
	"net/http"
	"time"

	"saquabus.org/internal/logging"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string         `json:"status"`
	Detail   string         `json:"detail,omitempty"`
	LoadedAt *time.Time     `json:"networkLoadedAt,omitempty"`
	Counts   map[string]int `json:"counts,omitempty"`
}

// healthHandler answers 200 only when a network snapshot is loaded and the store answers
// a ping. Load balancers keep traffic away from instances still importing.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, body := api.checkHealth(r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (api *RestAPI) checkHealth(r *http.Request) (int, HealthResponse) {
	if api.Application == nil || api.TransitManager == nil {
		return http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Detail: "manager or database not initialized"}
	}
	store := api.TransitManager.DB()
	if store == nil || store.DB == nil {
		return http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Detail: "manager or database not initialized"}
	}

	snap := api.TransitManager.Snapshot()
	if snap == nil || !api.TransitManager.IsHealthy() {
		return http.StatusServiceUnavailable, HealthResponse{Status: "starting", Detail: "network data is not loaded"}
	}

	if err := store.DB.PingContext(r.Context()); err != nil {
		logging.LogError(api.logger(), "transit DB ping failed", err)
		return http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Detail: "database connection failed"}
	}

	loadedAt := api.TransitManager.LoadedAt()
	return http.StatusOK, HealthResponse{Status: "ok", LoadedAt: &loadedAt, Counts: snap.Counts()}
}
