package restapi

import (
	"net/http"
	"runtime/debug"

	"saquabus.org/internal/models"
)

// buildProperties reads the VCS stamp the go tool embeds in the binary.
func buildProperties() models.GitProperties {
	props := models.GitProperties{
		GitBuildVersion:   "unknown",
		GitCommitId:       "unknown",
		GitCommitIdAbbrev: "unknown",
		GitDirty:          "false",
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return props
	}
	if info.Main.Version != "" {
		props.GitBuildVersion = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			props.GitCommitId = s.Value
			if len(s.Value) >= 7 {
				props.GitCommitIdAbbrev = s.Value[:7]
			}
		case "vcs.time":
			props.GitCommitTime = s.Value
		case "vcs.modified":
			props.GitDirty = s.Value
		}
	}
	return props
}

func (api *RestAPI) configHandler(w http.ResponseWriter, r *http.Request) {
	cfg := api.Config
	entry := models.ConfigModel{
		GitProperties:       buildProperties(),
		Id:                  "saquabus",
		Name:                "Saquarema Bus",
		ServiceTimezone:     cfg.ServiceTimezone,
		SearchRadiusKm:      cfg.Planner.SearchRadiusKm,
		CommonLinesRadiusKm: cfg.Planner.CommonLinesRadiusKm,
		SafetyBufferSeconds: int64(cfg.Planner.SafetyBuffer.Seconds()),
	}
	if api.TransitManager != nil {
		if loaded := api.TransitManager.LoadedAt(); !loaded.IsZero() {
			entry.NetworkLoadedAt = loaded.UnixMilli()
		}
	}
	api.sendResponse(w, r, models.NewOKResponse(entry, api.clock()))
}
