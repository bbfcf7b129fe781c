package restapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigHandler(t *testing.T) {
	_, resp, model := serveAndRetrieveEndpoint(t, "/api/config")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := dataMap(t, model)
	assert.Equal(t, "saquabus", data["id"])
	assert.Equal(t, "America/Sao_Paulo", data["serviceTimezone"])
	assert.Equal(t, 1.5, data["searchRadiusKm"])
	assert.Equal(t, 0.7, data["commonLinesRadiusKm"])
	assert.Equal(t, float64(120), data["safetyBufferSeconds"])
	assert.Equal(t, float64(mondayMorning(t).UnixMilli()), data["networkLoadedAt"])

	git, ok := data["gitProperties"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, git["git.commit.id.abbrev"])
}

func TestBuildProperties(t *testing.T) {
	props := buildProperties()
	assert.NotEmpty(t, props.GitBuildVersion)
	assert.Contains(t, []string{"true", "false"}, props.GitDirty)
	if props.GitCommitId != "unknown" && len(props.GitCommitId) >= 7 {
		assert.Equal(t, props.GitCommitId[:7], props.GitCommitIdAbbrev)
	}
}
