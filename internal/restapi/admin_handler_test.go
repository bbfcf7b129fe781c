package restapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRoutesRequireAPIKey(t *testing.T) {
	api := createTestApi(t)

	endpoints := []string{
		"/api/admin/lines",
		"/api/admin/stops",
		"/api/admin/lines/21/schedules",
		"/api/admin/lines/21/stops",
		"/api/admin/reload",
	}
	for _, endpoint := range endpoints {
		t.Run(endpoint, func(t *testing.T) {
			resp, model := serveApi(t, api, http.MethodPost, endpoint, map[string]any{}, "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "permission denied", model.Text)

			resp, _ = serveApi(t, api, http.MethodPost, endpoint, map[string]any{}, "wrong")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestCreateLineHandler(t *testing.T) {
	api := createTestApi(t)

	body := map[string]any{"number": "40", "origin": "Centro", "destination": "Itaúna"}
	resp, model := serveApi(t, api, http.MethodPost, "/api/admin/lines", body, testAPIKey)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "40", dataMap(t, model)["number"])

	resp, model = serveApi(t, api, http.MethodGet, "/api/lines", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"21", "40"}, idsOf(t, listOf(t, model), "number"), "new line is visible without a restart")

	resp, _ = serveApi(t, api, http.MethodPost, "/api/admin/lines", body, testAPIKey)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, model = serveApi(t, api, http.MethodPost, "/api/admin/lines", map[string]any{"number": "41"}, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fe := fieldErrorsOf(t, model)
	assert.Contains(t, fe, "origin")
	assert.Contains(t, fe, "destination")
}

func TestAdminBodyErrors(t *testing.T) {
	api := createTestApi(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"number": `},
		{"unknown field", `{"number": "50", "origin": "a", "destination": "b", "colour": "red"}`},
		{"two documents", `{"number": "50", "origin": "a", "destination": "b"}{}`},
		{"wrong type", `{"number": 50, "origin": "a", "destination": "b"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, model := serveApi(t, api, http.MethodPost, "/api/admin/lines", tt.body, testAPIKey)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, fieldErrorsOf(t, model), "body")
		})
	}
}

func TestCreateStopHandler(t *testing.T) {
	api := createTestApi(t)

	t.Run("id derived from coordinates", func(t *testing.T) {
		resp, model := serveApi(t, api, http.MethodPost, "/api/admin/stops",
			map[string]any{"name": "Lagoa", "lat": -22.93, "lng": -42.49}, testAPIKey)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "-22.93_-42.49", dataMap(t, model)["id"])

		resp, _ = serveApi(t, api, http.MethodGet, "/api/stops/-22.93_-42.49", nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("out of range latitude", func(t *testing.T) {
		resp, model := serveApi(t, api, http.MethodPost, "/api/admin/stops",
			map[string]any{"name": "Nowhere", "lat": -95, "lng": 0}, testAPIKey)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, fieldErrorsOf(t, model), "lat")
	})
}

func TestCreateScheduleHandler(t *testing.T) {
	api := createTestApi(t)

	resp, model := serveApi(t, api, http.MethodPost, "/api/admin/lines/21/schedules",
		map[string]any{"dayType": "dom-fer", "time": "18:15", "direction": "MOMBAÇA"}, testAPIKey)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := dataMap(t, model)
	assert.Equal(t, "SUNDAY_HOLIDAY", data["dayType"])
	assert.Equal(t, "18:15", data["time"])

	resp, model = serveApi(t, api, http.MethodGet, "/api/lines/21/schedule?dayType=SUNDAY_HOLIDAY", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	deps := dataMap(t, model)["departures"].([]any)
	assert.Equal(t, []string{"09:00", "18:15"}, idsOf(t, deps, "time"))

	tests := []struct {
		name     string
		endpoint string
		body     map[string]any
		wantCode int
	}{
		{"duplicate departure", "/api/admin/lines/21/schedules", map[string]any{"dayType": "SUNDAY_HOLIDAY", "time": "18:15"}, http.StatusConflict},
		{"unknown line", "/api/admin/lines/99/schedules", map[string]any{"dayType": "WEEKDAY", "time": "07:00"}, http.StatusNotFound},
		{"bad day type", "/api/admin/lines/21/schedules", map[string]any{"dayType": "someday", "time": "07:00"}, http.StatusBadRequest},
		{"bad time", "/api/admin/lines/21/schedules", map[string]any{"dayType": "WEEKDAY", "time": "7h"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := serveApi(t, api, http.MethodPost, tt.endpoint, tt.body, testAPIKey)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
		})
	}
}

func TestAddStopToLineHandler(t *testing.T) {
	api := createTestApi(t)

	resp, _ := serveApi(t, api, http.MethodPost, "/api/admin/stops",
		map[string]any{"id": "11", "name": "Jaconé", "lat": -22.9100, "lng": -42.4000}, testAPIKey)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, model := serveApi(t, api, http.MethodPost, "/api/admin/lines/21/stops",
		map[string]any{"stopId": "11", "sequence": 11, "offsetMinutes": 30}, testAPIKey)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "11", dataMap(t, model)["stopId"])

	resp, model = serveApi(t, api, http.MethodGet, "/api/lines/21/route", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stops := dataMap(t, model)["stops"].([]any)
	assert.Len(t, stops, 11)
	assert.Equal(t, "11", stops[10].(map[string]any)["id"])

	tests := []struct {
		name     string
		endpoint string
		body     map[string]any
		wantCode int
	}{
		{"sequence taken", "/api/admin/lines/21/stops", map[string]any{"stopId": "3", "sequence": 11}, http.StatusConflict},
		{"unknown stop", "/api/admin/lines/21/stops", map[string]any{"stopId": "ghost", "sequence": 12}, http.StatusNotFound},
		{"unknown line", "/api/admin/lines/99/stops", map[string]any{"stopId": "3", "sequence": 1}, http.StatusNotFound},
		{"negative offset", "/api/admin/lines/21/stops", map[string]any{"stopId": "3", "sequence": 13, "offsetMinutes": -1}, http.StatusBadRequest},
		{"zero sequence", "/api/admin/lines/21/stops", map[string]any{"stopId": "3", "sequence": 0}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := serveApi(t, api, http.MethodPost, tt.endpoint, tt.body, testAPIKey)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
		})
	}
}

func TestReloadHandler(t *testing.T) {
	api := createTestApi(t)

	resp, model := serveApi(t, api, http.MethodPost, "/api/admin/reload", nil, testAPIKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	counts := dataMap(t, model)
	assert.Equal(t, float64(1), counts["lines"])
	assert.Equal(t, float64(10), counts["stops"])
	assert.Equal(t, float64(6), counts["departures"])
}
