package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"saquabus.org/internal/clock"
)

func TestGitPropertiesJSONTags(t *testing.T) {
	props := GitProperties{
		GitCommitId:     "abc12345",
		GitBuildVersion: "1.0.0",
		GitDirty:        "false",
	}

	data, err := json.Marshal(props)
	require.NoError(t, err)
	jsonString := string(data)

	assert.Contains(t, jsonString, `"git.commit.id":"abc12345"`)
	assert.Contains(t, jsonString, `"git.build.version":"1.0.0"`)
	assert.NotContains(t, jsonString, "GitCommitId")
}

func TestNewOKResponse(t *testing.T) {
	now := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	c := clock.NewMockClock(now)

	resp := NewOKResponse(map[string]string{"line": "21"}, c)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, now.UnixMilli(), resp.CurrentTime)
	assert.Equal(t, "OK", resp.Text)
	assert.Equal(t, APIVersion, resp.Version)

	data, err := json.Marshal(NewListResponse([]int{}, false, c))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"data":{"list":[],"limitExceeded":false}`)

	data, err = json.Marshal(NewResponse(404, nil, "line not found", c))
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"data"`)
}
