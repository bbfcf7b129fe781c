package models

// GitProperties describes the running build.
type GitProperties struct {
	GitBuildVersion   string `json:"git.build.version"`
	GitCommitId       string `json:"git.commit.id"`
	GitCommitIdAbbrev string `json:"git.commit.id.abbrev"`
	GitCommitTime     string `json:"git.commit.time"`
	GitDirty          string `json:"git.dirty"`
}

// ConfigModel is the public service configuration.
type ConfigModel struct {
	GitProperties       GitProperties `json:"gitProperties"`
	Id                  string        `json:"id"`
	Name                string        `json:"name"`
	ServiceTimezone     string        `json:"serviceTimezone"`
	SearchRadiusKm      float64       `json:"searchRadiusKm"`
	CommonLinesRadiusKm float64       `json:"commonLinesRadiusKm"`
	SafetyBufferSeconds int64         `json:"safetyBufferSeconds"`
	NetworkLoadedAt     int64         `json:"networkLoadedAt"`
}

// CurrentTimeData is the service clock as riders see it: local time and the timetable
// that applies today.
type CurrentTimeData struct {
	ReadableTime string `json:"readableTime"`
	Time         int64  `json:"time"`
	DayType      string `json:"dayType"`
}
