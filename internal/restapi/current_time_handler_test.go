package restapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentTimeHandler(t *testing.T) {
	_, resp, model := serveAndRetrieveEndpoint(t, "/api/current-time")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, http.StatusOK, model.Code)
	assert.Equal(t, "OK", model.Text)
	assert.Equal(t, 1, model.Version)

	now := mondayMorning(t)
	assert.Equal(t, now.UnixMilli(), model.CurrentTime)

	data := dataMap(t, model)
	assert.Equal(t, float64(now.UnixMilli()), data["time"])
	assert.Equal(t, "2024-05-06T09:00:00-03:00", data["readableTime"])
	assert.Equal(t, "WEEKDAY", data["dayType"])
}
