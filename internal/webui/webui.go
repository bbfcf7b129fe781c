// Package webui serves the browser facing pages: static assets and, outside production,
// a dump of the loaded network.
package webui

import (
	"net/http"

	"saquabus.org/internal/app"
)

type WebUI struct {
	*app.Application
	// PublicDir holds the static front end. Empty means "./public".
	PublicDir string
}

func (webUI *WebUI) SetWebUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", webUI.indexHandler)
	mux.HandleFunc("GET /assets/{file}", webUI.staticHandler)
	mux.HandleFunc("GET /debug/", webUI.debugIndexHandler)
}
