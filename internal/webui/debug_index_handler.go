package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"saquabus.org/internal/appconf"
	"saquabus.org/internal/schedule"
	"saquabus.org/internal/transit"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

var dumper = spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true, DisableCapacities: true}

type debugData struct {
	Title string
	Pre   string
}

func writeDebugData(w http.ResponseWriter, title string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := debugTemplate.Execute(w, debugData{Title: title, Pre: dumper.Sdump(data)}); err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}
	if webUI.TransitManager == nil || webUI.TransitManager.Snapshot() == nil {
		http.Error(w, "network not loaded", http.StatusServiceUnavailable)
		return
	}
	snap := webUI.TransitManager.Snapshot()

	var data any
	var title string

	switch r.URL.Query().Get("dataType") {
	case "counts":
		data, title = snap.Counts(), "Network - Counts"
	case "lines":
		data, title = snap.Lines(), "Network - Lines"
	case "stops":
		data, title = snap.Stops(), "Network - Stops"
	case "routes":
		routes := make(map[string][]transit.RouteStop)
		for _, l := range snap.Lines() {
			routes[l.Number] = snap.RouteStops(l.ID)
		}
		data, title = routes, "Network - Stop Sequences"
	case "schedules":
		tables := make(map[string]map[schedule.DayType][]string)
		for _, l := range snap.Lines() {
			byDay := make(map[schedule.DayType][]string)
			for _, d := range schedule.DayTypes {
				for _, dep := range snap.Departures(l.ID, d) {
					byDay[d] = append(byDay[d], dep.Time.String())
				}
			}
			tables[l.Number] = byDay
		}
		data, title = tables, "Network - Departures"
	case "store":
		stats, err := webUI.TransitManager.DB().Stats(r.Context())
		if err != nil {
			slog.Error("failed to read store stats", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		data, title = stats, "Store - Tables and Imports"
	case "config":
		cfg := webUI.Config
		cfg.ApiKeys = nil
		cfg.Maps.APIKey = redact(cfg.Maps.APIKey)
		cfg.LLM.APIKey = redact(cfg.LLM.APIKey)
		cfg.Cache.RedisPassword = redact(cfg.Cache.RedisPassword)
		data, title = cfg, "Service Configuration"
	default:
		data = map[string]string{
			"error": "Please use one of the following: counts, lines, stops, routes, schedules, store, config.",
		}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data)
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "[redacted]"
}
